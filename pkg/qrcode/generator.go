package qrcode

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyContent   = errors.New("content cannot be empty")
	ErrInvalidLink    = errors.New("payment link must be an absolute http(s) URL")
	ErrGenerateFailed = errors.New("failed to generate QR code")
)

const (
	DefaultSize = 256
	MinSize     = 64
	MaxSize     = 1024
)

// Generate encodes content as a PNG QR code of size×size pixels. size is
// clamped to [MinSize, MaxSize]; zero or negative selects DefaultSize.
func Generate(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	png, err := skipqrcode.Encode(content, skipqrcode.Medium, clampSize(size))
	if err != nil {
		return nil, errors.Join(ErrGenerateFailed, err)
	}
	return png, nil
}

// PaymentLink renders a checkout link so a customer can pay from a phone.
func PaymentLink(link string, size int) ([]byte, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, ErrInvalidLink
	}
	return Generate(u.String(), size)
}

// DataURI returns png as an inline image for HTML emails and pages.
func DataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

func clampSize(size int) int {
	if size <= 0 {
		return DefaultSize
	}
	return min(max(size, MinSize), MaxSize)
}
