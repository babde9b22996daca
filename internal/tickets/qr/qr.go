package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"
	"sync"

	"github.com/skip2/go-qrcode"

	"zafo-tickets/internal/models"
)

const (
	// DocumentSize is the raster width used when a QR code is embedded in a
	// ticket document.
	DocumentSize = 120
	// PreviewSize is the raster width used for inline previews.
	PreviewSize = 80
	// Margin is the quiet zone around the symbol, in modules.
	Margin = 2
)

var ErrInvalidSize = errors.New("qr size must be positive")

var palette = color.Palette{color.White, color.Black}

// Encoder turns text payloads into square PNG rasters. It holds no state
// between calls and is safe for concurrent use.
type Encoder struct {
	Level qrcode.RecoveryLevel
}

func NewEncoder() *Encoder {
	return &Encoder{Level: qrcode.Medium}
}

// Encode returns a size x size PNG encoding payload, with a quiet zone of
// Margin modules. Dark modules are black and light modules white.
func (e *Encoder) Encode(payload string, size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	code, err := qrcode.New(payload, e.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr payload: %w", err)
	}
	code.DisableBorder = true

	img := rasterize(trim(code.Bitmap()), size)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to write qr png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeOrPlaceholder never fails: when encoding is impossible the fixed
// placeholder raster is returned and ok is false.
func (e *Encoder) EncodeOrPlaceholder(payload string, size int) (raster []byte, ok bool) {
	raster, err := e.Encode(payload, size)
	if err != nil {
		return Placeholder(), false
	}
	return raster, true
}

// Payload is the text carried by a ticket's QR code. It is derived on every
// call so any change to the attendee or ticket identity changes the code.
func Payload(t models.TicketRecord) string {
	return strings.Join([]string{
		"Name: " + t.AttendeeName,
		"Email: " + t.AttendeeEmail,
		"Ticket Number: " + t.TicketNumber,
		"Amount: " + strconv.FormatFloat(t.TicketPrice, 'f', -1, 64) + " " + t.Currency,
		"Purchase Date: " + t.PurchaseDate,
	}, "\n")
}

var (
	placeholderOnce sync.Once
	placeholderPNG  []byte
)

// Placeholder is a 1x1 transparent PNG substituted for a QR code that could
// not be produced.
func Placeholder() []byte {
	placeholderOnce.Do(func() {
		var buf bytes.Buffer
		// a zero NRGBA pixel is fully transparent
		_ = png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 1, 1)))
		placeholderPNG = buf.Bytes()
	})
	out := make([]byte, len(placeholderPNG))
	copy(out, placeholderPNG)
	return out
}

// trim drops any light border around the symbol. Finder patterns put dark
// modules on the outer rows and columns of every symbol.
func trim(bitmap [][]bool) [][]bool {
	top, bottom := 0, len(bitmap)-1
	for top <= bottom && !anyDark(bitmap[top]) {
		top++
	}
	for bottom >= top && !anyDark(bitmap[bottom]) {
		bottom--
	}
	if top > bottom {
		return nil
	}

	left, right := len(bitmap[top]), -1
	for _, row := range bitmap[top : bottom+1] {
		for x, dark := range row {
			if dark {
				left = min(left, x)
				right = max(right, x)
			}
		}
	}

	out := make([][]bool, 0, bottom-top+1)
	for _, row := range bitmap[top : bottom+1] {
		out = append(out, row[left:right+1])
	}
	return out
}

func anyDark(row []bool) bool {
	for _, dark := range row {
		if dark {
			return true
		}
	}
	return false
}

// rasterize maps every pixel to the module under it, so the symbol plus
// margin always fills exactly size x size pixels.
func rasterize(symbol [][]bool, size int) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, size, size), palette)
	modules := len(symbol) + 2*Margin

	for y := 0; y < size; y++ {
		my := y*modules/size - Margin
		if my < 0 || my >= len(symbol) {
			continue
		}
		row := symbol[my]
		for x := 0; x < size; x++ {
			mx := x*modules/size - Margin
			if mx >= 0 && mx < len(row) && row[mx] {
				img.SetColorIndex(x, y, 1)
			}
		}
	}
	return img
}
