package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"strconv"

	"github.com/dmitrijs2005/folio/internal/common"
	"golang.org/x/image/draw"
)

// Preset holds the transform options applied to one media kind.
type Preset struct {
	Kind        Kind
	Quality     int
	MaxWidth    int
	MaxHeight   int
	Format      string
	ChunkSize   int64
	QualityTier string
}

var (
	ImagePreset = Preset{Kind: KindImage, Quality: 80, MaxWidth: 1920, MaxHeight: 1080, Format: "auto"}
	VideoPreset = Preset{Kind: KindVideo, QualityTier: "auto:low", ChunkSize: 6 * common.MiB}
)

// Metadata renders the preset as object metadata.
func (p Preset) Metadata() map[string]string {
	md := map[string]string{"preset": p.Kind.String()}
	if p.Quality > 0 {
		md["quality"] = strconv.Itoa(p.Quality)
	}
	if p.MaxWidth > 0 && p.MaxHeight > 0 {
		md["max-size"] = fmt.Sprintf("%dx%d", p.MaxWidth, p.MaxHeight)
		md["crop"] = "limit"
	}
	if p.Format != "" {
		md["format"] = p.Format
	}
	if p.QualityTier != "" {
		md["quality-tier"] = p.QualityTier
	}
	if p.ChunkSize > 0 {
		md["chunk-size"] = strconv.FormatInt(p.ChunkSize, 10)
	}
	return md
}

// Transformed is a re-encoded image.
type Transformed struct {
	Data        []byte
	ContentType string
	Format      string
	Ext         string
	Width       int
	Height      int
}

// maxPixels bounds width*height of images we are willing to decode.
var maxPixels = 40_000_000

var (
	errAnimated      = errors.New("animated gif")
	errImageTooLarge = errors.New("image too large")
)

// FitImage decodes a jpeg, png or gif, scales it down to fit inside
// maxW x maxH (never up) and re-encodes it: png when the result has
// transparency, jpeg at quality otherwise. Animated gifs and images above
// maxPixels are rejected before decoding so the caller can keep the original.
func FitImage(data []byte, maxW, maxH, quality int) (*Transformed, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d", errImageTooLarge, cfg.Width, cfg.Height)
	}
	if format == "gif" {
		g, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode gif: %w", err)
		}
		if len(g.Image) > 1 {
			return nil, errAnimated
		}
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	b := src.Bounds()
	w, h := fitInside(b.Dx(), b.Dy(), maxW, maxH)

	var out image.Image = src
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		out = dst
	}

	var buf bytes.Buffer
	res := &Transformed{Width: w, Height: h}
	if opaque(out) {
		err = jpeg.Encode(&buf, out, &jpeg.Options{Quality: quality})
		res.ContentType, res.Format, res.Ext = common.ContentTypeJPEG, "jpeg", ".jpg"
	} else {
		err = png.Encode(&buf, out)
		res.ContentType, res.Format, res.Ext = common.ContentTypePNG, "png", ".png"
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", res.Format, err)
	}
	res.Data = buf.Bytes()

	return res, nil
}

// fitInside scales w x h down to fit in maxW x maxH keeping the aspect ratio.
func fitInside(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 || (w <= maxW && h <= maxH) {
		return w, h
	}
	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := int(math.Max(1, math.Round(float64(w)*scale)))
	nh := int(math.Max(1, math.Round(float64(h)*scale)))
	return nw, nh
}

func opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return true
}
