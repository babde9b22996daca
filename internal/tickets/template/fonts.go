package template

import (
	"fmt"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontsOnce sync.Once
	fontsErr  error

	regularFont *truetype.Font
	boldFont    *truetype.Font
	monoFont    *truetype.Font
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if regularFont, fontsErr = truetype.Parse(goregular.TTF); fontsErr != nil {
			fontsErr = fmt.Errorf("failed to load regular font: %w", fontsErr)
			return
		}
		if boldFont, fontsErr = truetype.Parse(gobold.TTF); fontsErr != nil {
			fontsErr = fmt.Errorf("failed to load bold font: %w", fontsErr)
			return
		}
		if monoFont, fontsErr = truetype.Parse(gomono.TTF); fontsErr != nil {
			fontsErr = fmt.Errorf("failed to load mono font: %w", fontsErr)
		}
	})
	return fontsErr
}

type fontKind int

const (
	fontRegular fontKind = iota
	fontBold
	fontMono
)

// textStyle is comparable so it can key a face cache.
type textStyle struct {
	kind  fontKind
	size  float64
	color string
}

func (s textStyle) face(scale float64) font.Face {
	f := regularFont
	switch s.kind {
	case fontBold:
		f = boldFont
	case fontMono:
		f = monoFont
	}
	return truetype.NewFace(f, &truetype.Options{Size: s.size * scale, Hinting: font.HintingNone})
}

var (
	brandStyle   = textStyle{fontBold, 24, "#ffffff"}
	kickerStyle  = textStyle{fontBold, 12, "#e0e7ff"}
	titleStyle   = textStyle{fontBold, 24, "#111827"}
	bodyStyle    = textStyle{fontRegular, 14, "#374151"}
	labelStyle   = textStyle{fontBold, 11, "#6b7280"}
	strongStyle  = textStyle{fontBold, 16, "#111827"}
	numberStyle  = textStyle{fontMono, 16, "#111827"}
	captionStyle = textStyle{fontRegular, 11, "#6b7280"}
	totalStyle   = textStyle{fontBold, 20, "#111827"}
	footerStyle  = textStyle{fontRegular, 11, "#6b7280"}
)
