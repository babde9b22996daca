package template_test

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zafo-tickets/internal/models"
	"zafo-tickets/internal/tickets/qr"
	"zafo-tickets/internal/tickets/template"
)

func sampleTicket() models.TicketRecord {
	return models.TicketRecord{
		EventTitle:    "Lakeside Jazz Night",
		EventDate:     "Sat, Jun 14 2025 19:30",
		EventLocation: "Harbour Hall, Oslo",
		AttendeeName:  "Ada Lovelace",
		AttendeeEmail: "ada@example.com",
		TicketNumber:  "ZF-000123",
		TicketPrice:   49.5,
		Currency:      "usd",
		PurchaseDate:  "2025-05-01",
	}
}

func TestPopulate(t *testing.T) {
	ticket := sampleTicket()
	code, err := qr.NewEncoder().Encode(qr.Payload(ticket), qr.DocumentSize)
	require.NoError(t, err)

	view := template.Populate(ticket, code, template.Options{})

	assert.Equal(t, template.DefaultBrand, view.Brand)
	assert.Equal(t, template.DefaultAccent, view.Accent)
	assert.Equal(t, ticket.EventTitle, view.Title)
	assert.Equal(t, ticket.EventLocation, view.Location)
	assert.Equal(t, ticket.TicketNumber, view.TicketNumber)
	assert.Equal(t, "49.50 USD", view.Total)
	assert.Equal(t, template.Disclaimer, view.Disclaimer)
	require.NotNil(t, view.QR)
	assert.Equal(t, qr.DocumentSize, view.QR.Bounds().Dx())
}

func TestPopulateFallsBackOnUnreadableQR(t *testing.T) {
	view := template.Populate(sampleTicket(), []byte("not a png"), template.Options{Brand: "Acme"})

	assert.Equal(t, "Acme", view.Brand)
	require.NotNil(t, view.QR)
	assert.Equal(t, 1, view.QR.Bounds().Dx())
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "10.00 USD", template.FormatAmount(10, "usd"))
	assert.Equal(t, "0.99 EUR", template.FormatAmount(0.99, " EUR "))
	assert.Equal(t, "5.00", template.FormatAmount(5, ""))
}

func TestDrawScalesRaster(t *testing.T) {
	ticket := sampleTicket()
	code, _ := qr.NewEncoder().EncodeOrPlaceholder(qr.Payload(ticket), qr.DocumentSize)
	view := template.Populate(ticket, code, template.Options{})

	one, err := view.Draw(1)
	require.NoError(t, err)
	three, err := view.Draw(3)
	require.NoError(t, err)

	assert.Equal(t, int(template.Width), one.Bounds().Dx())
	assert.Equal(t, 3*int(template.Width), three.Bounds().Dx())
	assert.InDelta(t, 3*one.Bounds().Dy(), three.Bounds().Dy(), 3)

	w, h, err := view.Size(3)
	require.NoError(t, err)
	assert.Equal(t, three.Bounds().Dx(), w)
	assert.Equal(t, three.Bounds().Dy(), h)
}

func TestDrawRejectsInvalidScale(t *testing.T) {
	view := template.Populate(sampleTicket(), qr.Placeholder(), template.Options{})

	_, err := view.Draw(0)
	assert.ErrorIs(t, err, template.ErrInvalidScale)
	_, _, err = view.Size(-1)
	assert.ErrorIs(t, err, template.ErrInvalidScale)
}

func TestDrawGrowsWithLongText(t *testing.T) {
	short := template.Populate(sampleTicket(), qr.Placeholder(), template.Options{})

	ticket := sampleTicket()
	ticket.EventTitle = strings.Repeat("Extended festival edition ", 40)
	long := template.Populate(ticket, qr.Placeholder(), template.Options{})

	_, shortH, err := short.Size(1)
	require.NoError(t, err)
	_, longH, err := long.Size(1)
	require.NoError(t, err)
	assert.Greater(t, longH, shortH)
}

func TestDrawIsDeterministic(t *testing.T) {
	ticket := sampleTicket()
	code, _ := qr.NewEncoder().EncodeOrPlaceholder(qr.Payload(ticket), qr.DocumentSize)

	encode := func() []byte {
		img, err := template.Populate(ticket, code, template.Options{}).Draw(2)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, img))
		return buf.Bytes()
	}

	assert.Equal(t, encode(), encode())
}

func TestDrawPaintsHeaderAndQR(t *testing.T) {
	ticket := sampleTicket()
	code, ok := qr.NewEncoder().EncodeOrPlaceholder(qr.Payload(ticket), qr.DocumentSize)
	require.True(t, ok)

	img, err := template.Populate(ticket, code, template.Options{Accent: "#ff0000"}).Draw(1)
	require.NoError(t, err)

	// top-left corner is inside the header band
	r, g, b, _ := img.At(2, 2).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Zero(t, g)
	assert.Zero(t, b)

	// pure black only comes from QR modules in the right-hand column
	dark := 0
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := 600 - 24 - qr.DocumentSize; x < 600-24; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r == 0 {
				dark++
			}
		}
	}
	assert.Positive(t, dark)
}
