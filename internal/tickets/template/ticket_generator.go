package template

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"zafo-tickets/internal/models"
	"zafo-tickets/internal/tickets/qr"
)

const (
	// Width is the template width in layout units. Rasters are Width*scale
	// pixels wide.
	Width = 600.0

	padding      = 24.0
	headerHeight = 64.0
	lineSpacing  = 1.35
	qrBox        = float64(qr.DocumentSize)

	DefaultBrand  = "Zafo"
	DefaultAccent = "#4f46e5"

	Disclaimer = "This ticket admits one person for a single entry. " +
		"Present it printed or on your phone at the venue entrance, where the QR code is scanned."
)

var ErrInvalidScale = errors.New("render scale must be positive")

type Options struct {
	Brand  string
	Accent string
}

// View is a populated ticket template. Text is drawn as glyphs and never
// interpreted, so caller-supplied values are used verbatim.
type View struct {
	Brand  string
	Accent string

	Title    string
	Date     string
	Location string

	AttendeeName  string
	AttendeeEmail string
	TicketNumber  string
	PurchaseDate  string
	Total         string

	Disclaimer string
	QR         image.Image
}

// Populate fills the fixed ticket template with the ticket's fields and its
// QR raster. A raster that cannot be decoded is replaced by the placeholder.
func Populate(t models.TicketRecord, qrPNG []byte, opts Options) *View {
	if opts.Brand == "" {
		opts.Brand = DefaultBrand
	}
	if opts.Accent == "" {
		opts.Accent = DefaultAccent
	}

	code, err := imaging.Decode(bytes.NewReader(qrPNG))
	if err != nil {
		code, _ = imaging.Decode(bytes.NewReader(qr.Placeholder()))
	}

	return &View{
		Brand:         opts.Brand,
		Accent:        opts.Accent,
		Title:         t.EventTitle,
		Date:          t.EventDate,
		Location:      t.EventLocation,
		AttendeeName:  t.AttendeeName,
		AttendeeEmail: t.AttendeeEmail,
		TicketNumber:  t.TicketNumber,
		PurchaseDate:  t.PurchaseDate,
		Total:         FormatAmount(t.TicketPrice, t.Currency),
		Disclaimer:    Disclaimer,
		QR:            code,
	}
}

// FormatAmount renders a price the way it is printed on the ticket face.
func FormatAmount(price float64, currency string) string {
	return strings.TrimSpace(fmt.Sprintf("%.2f %s", price, strings.ToUpper(strings.TrimSpace(currency))))
}

type textOp struct {
	style    textStyle
	text     string
	x        float64
	baseline float64
	anchor   float64 // 0 left aligned, 1 right aligned
}

type layout struct {
	height float64
	texts  []textOp
	rules  []float64
	qrX    float64
	qrY    float64
}

// Size reports the raster dimensions Draw produces at the given scale.
func (v *View) Size(scale float64) (int, int, error) {
	if scale <= 0 {
		return 0, 0, ErrInvalidScale
	}
	l, err := v.layout()
	if err != nil {
		return 0, 0, err
	}
	return int(math.Ceil(Width * scale)), int(math.Ceil(l.height * scale)), nil
}

// Draw rasterizes the template. Every coordinate and font size is
// multiplied by scale, so text stays sharp at print resolution.
func (v *View) Draw(scale float64) (image.Image, error) {
	if scale <= 0 {
		return nil, ErrInvalidScale
	}
	l, err := v.layout()
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(int(math.Ceil(Width*scale)), int(math.Ceil(l.height*scale)))
	dc.SetHexColor("#ffffff")
	dc.Clear()

	dc.SetHexColor(v.Accent)
	dc.DrawRectangle(0, 0, Width*scale, headerHeight*scale)
	dc.Fill()

	dc.SetHexColor("#e5e7eb")
	dc.SetLineWidth(scale)
	for _, y := range l.rules {
		dc.DrawLine(padding*scale, y*scale, (Width-padding)*scale, y*scale)
		dc.Stroke()
	}

	faces := make(map[textStyle]font.Face)
	for _, op := range l.texts {
		face, ok := faces[op.style]
		if !ok {
			face = op.style.face(scale)
			faces[op.style] = face
		}
		dc.SetFontFace(face)
		dc.SetHexColor(op.style.color)
		dc.DrawStringAnchored(op.text, op.x*scale, op.baseline*scale, op.anchor, 0)
	}

	if v.QR != nil {
		side := int(math.Round(qrBox * scale))
		code := imaging.Resize(v.QR, side, side, imaging.NearestNeighbor)
		dc.DrawImage(code, int(math.Round(l.qrX*scale)), int(math.Round(l.qrY*scale)))
	}

	return dc.Image(), nil
}

func (v *View) layout() (*layout, error) {
	if err := loadFonts(); err != nil {
		return nil, err
	}

	m := gg.NewContext(1, 1)
	l := &layout{}
	content := Width - 2*padding

	// header band
	l.texts = append(l.texts,
		textOp{style: brandStyle, text: strings.ToUpper(v.Brand), x: padding, baseline: headerHeight/2 + brandStyle.size/2 - 2},
		textOp{style: kickerStyle, text: "EVENT TICKET", x: Width - padding, baseline: headerHeight/2 + kickerStyle.size/2 - 1, anchor: 1},
	)

	y := headerHeight + padding
	y = l.block(m, titleStyle, v.Title, padding, y, content)
	y += 4
	y = l.block(m, bodyStyle, "Date: "+v.Date, padding, y, content)
	y = l.block(m, bodyStyle, "Location: "+v.Location, padding, y, content)

	y += 12
	l.rules = append(l.rules, y)
	y += 16

	// attendee column on the left, QR code on the right
	column := content - qrBox - padding
	top := y
	y = l.block(m, labelStyle, "ATTENDEE", padding, y, column)
	y = l.block(m, strongStyle, v.AttendeeName, padding, y, column)
	y = l.block(m, bodyStyle, v.AttendeeEmail, padding, y, column)
	y += 10
	y = l.block(m, labelStyle, "TICKET NUMBER", padding, y, column)
	y = l.block(m, numberStyle, v.TicketNumber, padding, y, column)
	y += 10
	y = l.block(m, labelStyle, "PURCHASE DATE", padding, y, column)
	y = l.block(m, bodyStyle, v.PurchaseDate, padding, y, column)

	l.qrX, l.qrY = Width-padding-qrBox, top
	caption := l.block(m, captionStyle, "Scan at entry", l.qrX, top+qrBox+6, qrBox)
	y = math.Max(y, caption)

	y += 12
	l.rules = append(l.rules, y)
	y += 16

	l.texts = append(l.texts,
		textOp{style: labelStyle, text: "TOTAL", x: padding, baseline: y + totalStyle.size},
		textOp{style: totalStyle, text: v.Total, x: Width - padding, baseline: y + totalStyle.size, anchor: 1},
	)
	y += totalStyle.size * lineSpacing

	y += 12
	l.rules = append(l.rules, y)
	y += 12
	y = l.block(m, footerStyle, v.Disclaimer, padding, y, content)

	l.height = y + padding
	return l, nil
}

// block word-wraps text into width and returns the y below the last line.
func (l *layout) block(m *gg.Context, style textStyle, text string, x, y, width float64) float64 {
	m.SetFontFace(style.face(1))
	lines := m.WordWrap(text, width)
	if len(lines) == 0 {
		lines = []string{""}
	}
	for _, line := range lines {
		l.texts = append(l.texts, textOp{style: style, text: line, x: x, baseline: y + style.size})
		y += style.size * lineSpacing
	}
	return y
}
