// Package render provides raster effects shared by the document compositor
// and the export pipeline: mosaic pixelation for redacting regions and a
// blurred drop shadow for exported images.
package render

import (
	"image"
	"image/color"
	"image/draw"
)

// Pixelate redacts rect inside img by replacing each block-sized square
// with its average color. Block sizes below 2 are clamped to 2 so the
// effect always destroys detail. The rectangle is clipped to the image.
func Pixelate(img *image.RGBA, rect image.Rectangle, block int) {
	if img == nil {
		return
	}
	if block < 2 {
		block = 2
	}
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return
	}
	for by := rect.Min.Y; by < rect.Max.Y; by += block {
		for bx := rect.Min.X; bx < rect.Max.X; bx += block {
			cell := image.Rect(bx, by, bx+block, by+block).Intersect(rect)
			fillAverage(img, cell)
		}
	}
}

// fillAverage paints cell with the mean color of its own pixels.
func fillAverage(img *image.RGBA, cell image.Rectangle) {
	var r, g, b, a, n uint64
	for y := cell.Min.Y; y < cell.Max.Y; y++ {
		for x := cell.Min.X; x < cell.Max.X; x++ {
			px := img.RGBAAt(x, y)
			r += uint64(px.R)
			g += uint64(px.G)
			b += uint64(px.B)
			a += uint64(px.A)
			n++
		}
	}
	if n == 0 {
		return
	}
	avg := color.RGBA{uint8(r / n), uint8(g / n), uint8(b / n), uint8(a / n)}
	draw.Draw(img, cell, &image.Uniform{avg}, image.Point{}, draw.Src)
}

// ShadowOptions configures the drop shadow applied to exported images.
type ShadowOptions struct {
	Radius  int
	Offset  image.Point
	Opacity float64
}

// DefaultShadowOptions returns a conservative configuration that works well
// with most screenshots.
func DefaultShadowOptions() ShadowOptions {
	return ShadowOptions{
		Radius:  24,
		Offset:  image.Pt(16, 16),
		Opacity: 0.55,
	}
}

// ShadowResult carries the composited image plus how far the original
// content shifted when the canvas grew to fit the shadow.
type ShadowResult struct {
	Image  *image.RGBA
	Offset image.Point
}

// ApplyShadow composites img over a blurred drop shadow. The result always
// has a zero-based origin; Offset reports where the original top-left
// corner landed inside the expanded canvas.
func ApplyShadow(img *image.RGBA, opts ShadowOptions) ShadowResult {
	if img == nil {
		return ShadowResult{}
	}
	if img.Bounds().Empty() || opts.Opacity <= 0 {
		return ShadowResult{Image: img}
	}
	opacity := opts.Opacity
	if opacity > 1 {
		opacity = 1
	}
	radius := opts.Radius
	if radius < 0 {
		radius = 0
	}

	src := img.Bounds()
	padded := src
	if radius > 0 {
		padded = padded.Inset(-radius)
	}
	shadow := padded.Add(opts.Offset)
	composite := src.Union(shadow)
	dstRect := composite.Sub(composite.Min)
	if dstRect.Dx() <= 0 || dstRect.Dy() <= 0 {
		return ShadowResult{Image: img}
	}

	mask := alphaMask(img, padded)
	blurred := boxBlurGray(mask, radius)

	dst := image.NewRGBA(dstRect)
	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)
	if alpha := uint8(opacity*255 + 0.5); alpha > 0 {
		origin := shadow.Min.Sub(composite.Min)
		draw.DrawMask(dst, blurred.Bounds().Add(origin),
			image.NewUniform(color.RGBA{0, 0, 0, alpha}), image.Point{},
			blurred, blurred.Bounds().Min, draw.Over)
	}
	draw.Draw(dst, src.Sub(composite.Min), img, src.Min, draw.Over)

	return ShadowResult{Image: dst, Offset: src.Min.Sub(composite.Min)}
}

// alphaMask copies the alpha channel of img into a gray image spanning the
// padded bounds, so the blur has room to bleed outward.
func alphaMask(img *image.RGBA, padded image.Rectangle) *image.Gray {
	mask := image.NewGray(padded.Sub(padded.Min))
	src := img.Bounds()
	for y := src.Min.Y; y < src.Max.Y; y++ {
		for x := src.Min.X; x < src.Max.X; x++ {
			a := img.RGBAAt(x, y).A
			if a == 0 {
				continue
			}
			mask.SetGray(x-padded.Min.X, y-padded.Min.Y, color.Gray{Y: a})
		}
	}
	return mask
}

// boxBlurGray applies a separable box blur with the given radius.
func boxBlurGray(src *image.Gray, radius int) *image.Gray {
	if radius <= 0 {
		out := image.NewGray(src.Bounds())
		copy(out.Pix, src.Pix)
		return out
	}
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	tmp := image.NewGray(bounds)
	dst := image.NewGray(bounds)

	// Horizontal pass over prefix sums, then vertical.
	for y := 0; y < h; y++ {
		row := y * src.Stride
		prefix := make([]int, w+1)
		for x := 0; x < w; x++ {
			prefix[x+1] = prefix[x] + int(src.Pix[row+x])
		}
		for x := 0; x < w; x++ {
			x0 := max(x-radius, 0)
			x1 := min(x+radius, w-1)
			sum := prefix[x1+1] - prefix[x0]
			tmp.Pix[y*tmp.Stride+x] = uint8(sum / (x1 - x0 + 1))
		}
	}
	for x := 0; x < w; x++ {
		prefix := make([]int, h+1)
		for y := 0; y < h; y++ {
			prefix[y+1] = prefix[y] + int(tmp.Pix[y*tmp.Stride+x])
		}
		for y := 0; y < h; y++ {
			y0 := max(y-radius, 0)
			y1 := min(y+radius, h-1)
			sum := prefix[y1+1] - prefix[y0]
			dst.Pix[y*dst.Stride+x] = uint8(sum / (y1 - y0 + 1))
		}
	}
	return dst
}
