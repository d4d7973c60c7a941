package service

import (
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// MenuQR renders share codes pointing at a restaurant's public menu page.
type MenuQR struct {
	BaseURL string
}

// URL is the public menu link encoded in the code.
func (g MenuQR) URL(slug string) string {
	return g.BaseURL + "/menu/" + slug
}

// PNG encodes the public menu link as a PNG image.
func (g MenuQR) PNG(slug string) ([]byte, error) {
	return qrcode.Encode(g.URL(slug), qrcode.Medium, qrSize)
}
