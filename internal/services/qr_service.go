package services

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultQRSize = 256
	MinQRSize     = 64
	MaxQRSize     = 1024
)

// QRService renders scannable share links for referral codes.
type QRService struct {
	baseURL string
}

func NewQRService(baseURL string) *QRService {
	return &QRService{baseURL: strings.TrimRight(baseURL, "/")}
}

// ShareLink is the registration URL that carries code.
func (s *QRService) ShareLink(code string) string {
	return s.baseURL + "/register?ref=" + url.QueryEscape(code)
}

func (s *QRService) PNG(code string, size int) ([]byte, error) {
	if size < MinQRSize || size > MaxQRSize {
		return nil, validationError(fmt.Sprintf("size must be between %d and %d", MinQRSize, MaxQRSize))
	}

	qr, err := qrcode.New(s.ShareLink(code), qrcode.Medium)
	if err != nil {
		return nil, err
	}
	qr.ForegroundColor = color.Black
	qr.BackgroundColor = color.White

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(size)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SVG draws one unit square per dark module.
func (s *QRService) SVG(code string) (string, error) {
	qr, err := qrcode.New(s.ShareLink(code), qrcode.Medium)
	if err != nil {
		return "", err
	}

	qr.DisableBorder = true
	bitmap := qr.Bitmap()
	n := len(bitmap)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" shape-rendering="crispEdges">`, n, n)
	sb.WriteString(`<rect width="100%" height="100%" fill="#FFFFFF"/>`)
	sb.WriteString(`<path fill="#000000" d="`)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if bitmap[y][x] {
				fmt.Fprintf(&sb, "M%d %dh1v1h-1z", x, y)
			}
		}
	}
	sb.WriteString(`"/></svg>`)
	return sb.String(), nil
}
