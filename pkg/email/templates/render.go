package templates

import (
	"bytes"
	"context"
	"fmt"

	"github.com/a-h/templ"
)

// Render produces the HTML body for component. An empty result is an error:
// Postmark rejects messages without a body.
func Render(ctx context.Context, component templ.Component) (string, error) {
	if component == nil {
		return "", fmt.Errorf("templates: nil component")
	}
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return "", fmt.Errorf("templates: render: %w", err)
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("templates: empty body")
	}
	return buf.String(), nil
}
