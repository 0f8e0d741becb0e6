package pdfocr

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/bmharper/cimg/v2"
	"github.com/bmharper/docangle"
	"github.com/bmharper/textorient"
)

// DefaultMaxAngle is the default skew search range, in degrees either side of zero.
const DefaultMaxAngle = 2.5

// Straightener deskews scanned images and rotates them upright before OCR.
// Tesseract copes poorly with text that is rotated by more than a degree or two.
type Straightener struct {
	orient   *textorient.Orient
	MaxAngle float64
}

func NewStraightener(maxAngle float64) (*Straightener, error) {
	orient, err := textorient.NewOrient()
	if err != nil {
		return nil, fmt.Errorf("load orientation model: %w", err)
	}
	if maxAngle <= 0 {
		maxAngle = DefaultMaxAngle
	}
	return &Straightener{orient: orient, MaxAngle: maxAngle}, nil
}

// Straighten returns img, or a corrected copy if it was skewed or not upright.
func (s *Straightener) Straighten(img image.Image) (image.Image, error) {
	src, err := cimg.FromImage(cimgCompatible(img), true)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	fixed := src
	angle := imageAngle(src, s.MaxAngle)
	if angle != 0 {
		fixed = rotateImage(src, -angle)
	}
	upright, err := s.orient.MakeUpright(fixed)
	if err != nil {
		return nil, err
	}
	if upright == src {
		// There was no transformation at all
		return img, nil
	}
	return upright.ToImage()
}

// cimgCompatible returns img if cimg can wrap it directly, otherwise an NRGBA
// copy. Decoded PDF images are often paletted, CMYK or 16 bit.
func cimgCompatible(img image.Image) image.Image {
	switch img.(type) {
	case *image.Gray, *image.RGBA, *image.NRGBA:
		return img
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func rotateImage(img *cimg.Image, angle float64) *cimg.Image {
	const cropLimitDegrees = 5
	var newWidth int
	var newHeight int
	if math.Abs(angle) <= cropLimitDegrees {
		// If the angle is small, then just clip, because there's usually padding implicitly added by the rotated scan
		newWidth = img.Width
		newHeight = img.Height
	} else {
		cosA := math.Abs(math.Cos(angle * math.Pi / 180))
		sinA := math.Abs(math.Sin(angle * math.Pi / 180))
		newWidth = int(float64(img.Width)*cosA + float64(img.Height)*sinA)
		newHeight = int(float64(img.Width)*sinA + float64(img.Height)*cosA)
	}

	fixed := cimg.NewImage(newWidth, newHeight, img.Format)
	cimg.Rotate(img, fixed, angle*math.Pi/180, nil)
	return fixed
}

func imageAngle(img *cimg.Image, maxAngle float64) float64 {
	params := docangle.NewWhiteLinesParams()
	params.Include90Degrees = false
	params.MinDeltaDegrees = -maxAngle
	params.MaxDeltaDegrees = maxAngle
	_, angle := docangle.GetAngleWhiteLines(makeDocAngleImage(img), params)
	return angle
}

func makeDocAngleImage(img *cimg.Image) *docangle.Image {
	img = img.ToGray()
	return &docangle.Image{
		Pixels: img.Pixels,
		Width:  img.Width,
		Height: img.Height,
	}
}
