package qrsession

import (
	"encoding/base64"
	"strings"

	"github.com/skip2/go-qrcode"

	"checkclass/internal/domain"
)

const dataURLPrefix = "data:image/png;base64,"

// Render encodes code as a square PNG of size pixels.
func Render(code string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(code, qrcode.Medium, size)
}

// Terminal renders code with block characters for display in a terminal.
func Terminal(code string) (string, error) {
	q, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}

// DecodeDataURL returns the PNG bytes of an inline image produced by Session.DataURL.
func DecodeDataURL(s string) ([]byte, error) {
	if !strings.HasPrefix(s, dataURLPrefix) {
		return nil, domain.Invalid("not a PNG data URL")
	}
	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, dataURLPrefix))
	if err != nil {
		return nil, domain.Invalid("corrupt PNG data URL")
	}
	return png, nil
}
