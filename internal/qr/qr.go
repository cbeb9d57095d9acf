package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the pixel size of the code image stored with an item.
const DefaultSize = 256

// Generator renders scannable QR images for item identifiers. Rendering is a
// pure function of the identifier: the same input always yields identical
// bytes.
type Generator struct {
	level qrcode.RecoveryLevel
}

func New() *Generator {
	return &Generator{level: qrcode.Medium}
}

// PNG encodes the identifier as a QR code of the given pixel size.
// Identifiers here are a few characters long, far below symbology capacity;
// the encoder error is still propagated rather than truncating input.
func (g *Generator) PNG(id string, size int) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("identifier is empty")
	}
	if size <= 0 {
		size = DefaultSize
	}

	png, err := qrcode.Encode(id, g.level, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %q: %w", id, err)
	}
	return png, nil
}

// DataURI returns the code image as an embeddable data URI.
func (g *Generator) DataURI(id string) (string, error) {
	png, err := g.PNG(id, DefaultSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
