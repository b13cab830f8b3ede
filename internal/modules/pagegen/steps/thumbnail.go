package steps

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"

	_ "image/jpeg"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	_ "golang.org/x/image/webp"

	"github.com/dydqjadlsp/detailpage/internal/domain/page"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

const (
	ThumbnailWidth  = 640
	ThumbnailHeight = 360
)

var fallbackBand = color.NRGBA{R: 0xE5, G: 0xE7, B: 0xEB, A: 0xFF}

type RenderThumbnailDeps struct {
	Log   *logger.Logger
	Store ObjectStore
}

type RenderThumbnailInput struct {
	ProjectID uuid.UUID
	Document  page.Document
	// FirstImage is the generated image of the first block, when there is one.
	FirstImage []byte
}

// RenderThumbnail draws a 640x360 preview and stores it next to the block
// images. The first block's image is used when it decodes; otherwise the page
// is drawn as colored bands, one per block.
func RenderThumbnail(ctx context.Context, deps RenderThumbnailDeps, in RenderThumbnailInput) (string, error) {
	if deps.Store == nil {
		return "", fmt.Errorf("render_thumbnail: missing store")
	}
	if in.ProjectID == uuid.Nil {
		return "", fmt.Errorf("render_thumbnail: missing project_id")
	}

	var (
		buf bytes.Buffer
		err error
	)
	if len(in.FirstImage) > 0 {
		err = downscaleCover(&buf, in.FirstImage, ThumbnailWidth, ThumbnailHeight)
		if err != nil && deps.Log != nil {
			deps.Log.Warn("thumbnail source did not decode; drawing silhouette", "project_id", in.ProjectID.String(), "error", err)
		}
	}
	if len(in.FirstImage) == 0 || err != nil {
		buf.Reset()
		if err = drawSilhouette(&buf, in.Document, ThumbnailWidth, ThumbnailHeight); err != nil {
			return "", err
		}
	}
	return storeObject(ctx, deps.Store, ThumbnailKey(in.ProjectID), buf.Bytes())
}

// downscaleCover center-crops raw to the target aspect ratio and scales it.
func downscaleCover(w *bytes.Buffer, raw []byte, width, height int) error {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	cw, ch := b.Dx(), b.Dy()
	if cw == 0 || ch == 0 {
		return fmt.Errorf("decode image: empty bounds")
	}
	if cw*height > ch*width {
		cw = ch * width / height
	} else {
		ch = cw * height / width
	}
	x0 := b.Min.X + (b.Dx()-cw)/2
	y0 := b.Min.Y + (b.Dy()-ch)/2
	crop := image.Rect(x0, y0, x0+cw, y0+ch)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Over, nil)
	if err := png.Encode(w, dst); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func drawSilhouette(w *bytes.Buffer, doc page.Document, width, height int) error {
	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	n := len(doc.Content)
	if n > 0 {
		band := float64(height) / float64(n)
		for i, b := range doc.Content {
			c, ok := parseHexColor(b.Props.String(page.PropBackground))
			if !ok {
				c = fallbackBand
			}
			dc.SetColor(c)
			dc.DrawRectangle(0, float64(i)*band, float64(width), band)
			dc.Fill()
		}
	}

	if face := labelFace(); face != nil {
		label := fmt.Sprintf("%d sections", n)
		dc.SetFontFace(face)
		tw, th := dc.MeasureString(label)
		pad := 12.0
		dc.SetColor(color.NRGBA{A: 0x99})
		dc.DrawRoundedRectangle(float64(width)-tw-3*pad, float64(height)-th-3*pad, tw+2*pad, th+2*pad, 8)
		dc.Fill()
		dc.SetColor(color.White)
		dc.DrawString(label, float64(width)-tw-2*pad, float64(height)-2*pad)
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

var (
	labelOnce sync.Once
	labelFont *truetype.Font
)

// labelFace returns a fresh face per call; faces cache glyphs and are not
// safe for concurrent use, the parsed font is.
func labelFace() font.Face {
	labelOnce.Do(func() {
		f, err := truetype.Parse(gobold.TTF)
		if err == nil {
			labelFont = f
		}
	})
	if labelFont == nil {
		return nil
	}
	return truetype.NewFace(labelFont, &truetype.Options{Size: 22})
}

func parseHexColor(s string) (color.NRGBA, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.NRGBA{}, false
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: raw[0], G: raw[1], B: raw[2], A: 0xFF}, true
}
