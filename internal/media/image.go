package media

import (
	"bytes"
	"crypto/sha1" // #nosec G505 -- change detection only
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // register decoder
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder
)

func decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// toNRGBA returns img as a non-premultiplied RGBA image starting at 0,0.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// pixelHash identifies the decoded pixels together with the requested size, so a
// re-encoded download of the same picture is recognized.
func pixelHash(img image.Image, width, height int) string {
	h := sha1.New() // #nosec G401 -- change detection only
	fmt.Fprintf(h, "w%dh%d.", width, height)
	n := toNRGBA(img)
	h.Write(n.Pix)
	return hex.EncodeToString(h.Sum(nil))
}

// visibleBounds returns the smallest rectangle holding every pixel with a non-zero
// alpha. ok is false for a fully transparent image.
func visibleBounds(img *image.NRGBA) (image.Rectangle, bool) {
	b := img.Bounds()
	x1, y1, x2, y2 := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).A == 0 {
				continue
			}
			x1, x2 = min(x1, x), max(x2, x)
			y1, y2 = min(y1, y), max(y2, y)
		}
	}
	if x2 < x1 || y2 < y1 {
		return b, false
	}
	return image.Rect(x1, y1, x2+1, y2+1), true
}

// cropDrawing keeps the visible part of a drawing. When the requested box is larger
// than the visible part but still fits the drawing, a box of the requested size
// centered on the visible part is kept instead. The result is flattened on white.
func cropDrawing(img image.Image, width, height int) image.Image {
	src := toNRGBA(img)
	srcw, srch := src.Rect.Dx(), src.Rect.Dy()

	crop, ok := visibleBounds(src)
	if !ok {
		return flatten(src)
	}
	if width <= srcw && width > crop.Dx() && height <= srch && height > crop.Dy() {
		cx := crop.Min.X + crop.Dx()/2
		cy := crop.Min.Y + crop.Dy()/2
		x := clamp(cx-width/2, 0, srcw-width)
		y := clamp(cy-height/2, 0, srch-height)
		crop = image.Rect(x, y, x+width, y+height)
	}
	return flatten(src.SubImage(crop))
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// flatten composites img on an opaque white background.
func flatten(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}

// targetSize resolves the requested box. Zero for both means the image size; a
// single zero follows the image's aspect ratio.
func targetSize(w, h, width, height int) (int, int) {
	switch {
	case width <= 0 && height <= 0:
		return w, h
	case height <= 0:
		return width, max(1, int(math.Round(float64(h)*float64(width)/float64(w))))
	case width <= 0:
		return max(1, int(math.Round(float64(w)*float64(height)/float64(h)))), height
	}
	return width, height
}

// fitSize scales w x h to fit in the box while keeping the aspect ratio.
func fitSize(w, h, boxw, boxh int) (int, int) {
	scale := math.Min(float64(boxw)/float64(w), float64(boxh)/float64(h))
	return max(1, int(math.Round(float64(w)*scale))), max(1, int(math.Round(float64(h)*scale)))
}

func resize(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	boxw, boxh := targetSize(b.Dx(), b.Dy(), width, height)
	w, h := fitSize(b.Dx(), b.Dy(), boxw, boxh)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(out, out.Bounds(), img, b, draw.Src, nil)
	return out
}

type encodedImage struct {
	ext    string
	data   []byte
	width  int
	height int
}

// encodeSmallest scales img to the requested size and encodes it as both PNG and
// JPEG, returning the smaller. JPEG has no transparency so it is always flattened
// on white; PNG keeps transparency unless flattened is set.
func encodeSmallest(img image.Image, width, height, quality int, flattened bool) (encodedImage, error) {
	if img.Bounds().Empty() {
		return encodedImage{}, errors.New("empty image")
	}
	scaled := resize(img, width, height)
	b := scaled.Bounds()

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, scaled); err != nil {
		return encodedImage{}, fmt.Errorf("encode png: %w", err)
	}
	var jpgBuf bytes.Buffer
	var opaque image.Image = scaled
	if !flattened {
		opaque = flatten(scaled)
	}
	if err := jpeg.Encode(&jpgBuf, opaque, &jpeg.Options{Quality: quality}); err != nil {
		return encodedImage{}, fmt.Errorf("encode jpeg: %w", err)
	}

	if pngBuf.Len() < jpgBuf.Len() {
		return encodedImage{ext: "png", data: pngBuf.Bytes(), width: b.Dx(), height: b.Dy()}, nil
	}
	return encodedImage{ext: "jpg", data: jpgBuf.Bytes(), width: b.Dx(), height: b.Dy()}, nil
}
