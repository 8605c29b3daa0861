package uploader

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"
)

const (
	defaultMaxDimension = 1920
	defaultTargetBytes  = 1 << 20
	defaultQuality      = 85
	defaultMinQuality   = 45
	qualityStep         = 10
)

// ImagingCompressor re-encodes images as JPEG: it applies the EXIF
// orientation, fits the image into MaxDimension on both axes and lowers the
// quality until the payload is at most TargetBytes or MinQuality is reached.
// Small, upright JPEGs are returned unchanged.
type ImagingCompressor struct {
	MaxDimension int
	TargetBytes  int64
	Quality      int
	MinQuality   int
}

// NewImagingCompressor returns a compressor targeting 1 MiB and 1920px.
func NewImagingCompressor() *ImagingCompressor {
	return &ImagingCompressor{
		MaxDimension: defaultMaxDimension,
		TargetBytes:  defaultTargetBytes,
		Quality:      defaultQuality,
		MinQuality:   defaultMinQuality,
	}
}

// Compress implements Compressor.
func (c *ImagingCompressor) Compress(ctx context.Context, item Item) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(item.Data))
	if err != nil {
		return Item{}, fmt.Errorf("decode image header: %w", err)
	}

	orientation := readOrientation(item.Data)
	if format == "jpeg" && orientation <= 1 && item.Size() <= c.TargetBytes &&
		cfg.Width <= c.MaxDimension && cfg.Height <= c.MaxDimension {
		return item, nil
	}

	img, err := imaging.Decode(bytes.NewReader(item.Data))
	if err != nil {
		return Item{}, fmt.Errorf("decode image: %w", err)
	}
	img = applyOrientation(img, orientation)
	img = imaging.Fit(img, c.MaxDimension, c.MaxDimension, imaging.Lanczos)
	if format != "jpeg" {
		// JPEG has no alpha channel.
		bounds := img.Bounds()
		background := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
		img = imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
	}

	var buf bytes.Buffer
	for quality := c.Quality; ; quality -= qualityStep {
		if err := ctx.Err(); err != nil {
			return Item{}, err
		}
		buf.Reset()
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return Item{}, fmt.Errorf("encode jpeg: %w", err)
		}
		if int64(buf.Len()) <= c.TargetBytes || quality-qualityStep < c.MinQuality {
			break
		}
	}

	return Item{
		ClientID:    item.ClientID,
		Name:        jpegName(item.Name),
		ContentType: "image/jpeg",
		Data:        buf.Bytes(),
	}, nil
}

// readOrientation returns the EXIF orientation tag, or 1 when absent.
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func jpegName(name string) string {
	base := strings.TrimSuffix(name, path.Ext(name))
	if base == "" {
		base = "image"
	}
	return base + ".jpg"
}

// PassthroughCompressor returns items unchanged.
type PassthroughCompressor struct{}

// Compress implements Compressor.
func (PassthroughCompressor) Compress(ctx context.Context, item Item) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}
	return item, nil
}

var (
	_ Compressor = (*ImagingCompressor)(nil)
	_ Compressor = PassthroughCompressor{}
)
