package render

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/signintech/gopdf"
)

// Document geometry in millimetres. Pages are A4 portrait.
const (
	PageMarginMM = 10.0
	ImageWidthMM = 190.0
	PageHeightMM = 295.0

	mmToPt = 72.0 / 25.4
)

// ImageHeightMM is the printed height of a raster scaled to ImageWidthMM,
// preserving its aspect ratio.
func ImageHeightMM(bounds image.Rectangle) float64 {
	if bounds.Dx() == 0 {
		return 0
	}
	return float64(bounds.Dy()) * ImageWidthMM / float64(bounds.Dx())
}

// PageCount is the number of pages a single ticket of the given printed
// height spreads over. A remainder of exactly zero still opens a page.
func PageCount(heightMM float64) int {
	pages := 1
	for left := heightMM - PageHeightMM; left >= 0; left -= PageHeightMM {
		pages++
	}
	return pages
}

type document struct {
	pdf     *gopdf.GoPdf
	pages   int
	tickets []string
}

func newDocument() *document {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	return &document{pdf: pdf}
}

func (d *document) addPage(ticketNumber string) {
	d.pdf.AddPage()
	d.pages++
	d.tickets = append(d.tickets, ticketNumber)
}

func (d *document) place(holder gopdf.ImageHolder, yMM, heightMM float64) error {
	rect := &gopdf.Rect{W: ImageWidthMM * mmToPt, H: heightMM * mmToPt}
	if err := d.pdf.ImageByHolder(holder, PageMarginMM*mmToPt, yMM*mmToPt, rect); err != nil {
		return fmt.Errorf("failed to place ticket image: %w", err)
	}
	return nil
}

// addSpread lays one ticket out over as many pages as its height needs,
// shifting the same image up by one page height on every extra page.
func (d *document) addSpread(img image.Image, ticketNumber string) error {
	holder, height, err := embed(img)
	if err != nil {
		return err
	}

	d.addPage(ticketNumber)
	if err := d.place(holder, PageMarginMM, height); err != nil {
		return err
	}

	for left := height - PageHeightMM; left >= 0; left -= PageHeightMM {
		d.addPage(ticketNumber)
		if err := d.place(holder, left-height, height); err != nil {
			return err
		}
	}
	return nil
}

// addFullPage gives a ticket exactly one page; anything taller than the
// page is cut off rather than carried over.
func (d *document) addFullPage(img image.Image, ticketNumber string) error {
	holder, height, err := embed(img)
	if err != nil {
		return err
	}

	d.addPage(ticketNumber)
	return d.place(holder, PageMarginMM, height)
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func embed(img image.Image) (gopdf.ImageHolder, float64, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, 0, fmt.Errorf("failed to encode ticket raster: %w", err)
	}
	holder, err := gopdf.ImageHolderByBytes(buf.Bytes())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load ticket raster: %w", err)
	}
	return holder, ImageHeightMM(img.Bounds()), nil
}
