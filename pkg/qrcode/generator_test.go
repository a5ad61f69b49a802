package qrcode_test

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/qrcode"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		size     int
		wantSize int
	}{
		{name: "default size", size: 0, wantSize: qrcode.DefaultSize},
		{name: "explicit size", size: 300, wantSize: 300},
		{name: "clamped up", size: 10, wantSize: qrcode.MinSize},
		{name: "clamped down", size: 5000, wantSize: qrcode.MaxSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := qrcode.Generate("https://pay.example.com/s/abc", tt.size)
			require.NoError(t, err)

			img, err := png.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantSize, img.Bounds().Dx())
		})
	}

	_, err := qrcode.Generate(" \t\n", 0)
	assert.ErrorIs(t, err, qrcode.ErrEmptyContent)
}

func TestPaymentLink(t *testing.T) {
	t.Parallel()

	data, err := qrcode.PaymentLink("https://payments.example.com/checkout?payment_session_id=s1", 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	for _, link := range []string{"", "not a url", "/relative/path", "javascript:alert(1)", "ftp://example.com/x"} {
		_, err := qrcode.PaymentLink(link, 0)
		assert.ErrorIs(t, err, qrcode.ErrInvalidLink, link)
	}
}

func TestDataURI(t *testing.T) {
	t.Parallel()

	data, err := qrcode.Generate("hello", 0)
	require.NoError(t, err)
	uri := qrcode.DataURI(data)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}
