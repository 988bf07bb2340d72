// Package document holds the annotated image model: a background raster,
// an ordered list of annotation objects, and a canonical serialized form
// used for persistence and undo history.
package document

import (
	"image"
	"image/color"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/example/inkmark/internal/render"
)

// Kind identifies the shape of an annotation object.
type Kind string

const (
	KindStroke  Kind = "stroke"
	KindLine    Kind = "line"
	KindArrow   Kind = "arrow"
	KindRect    Kind = "rect"
	KindEllipse Kind = "ellipse"
	KindNumber  Kind = "number"
	KindText    Kind = "text"
	KindMosaic  Kind = "mosaic"
)

// Object is a single annotation. Which fields are meaningful depends on
// Kind: strokes carry the full point list, two-point shapes use the first
// and last points, text carries Text and Size, numbers carry Number and
// Radius, mosaics carry Block.
type Object struct {
	Kind   Kind          `json:"kind"`
	Points []image.Point `json:"points"`
	Color  color.RGBA    `json:"color"`
	Width  int           `json:"width,omitempty"`
	Text   string        `json:"text,omitempty"`
	Size   float64       `json:"size,omitempty"`
	Number int           `json:"number,omitempty"`
	Radius int           `json:"radius,omitempty"`
	Block  int           `json:"block,omitempty"`
}

// Background is the captured or opened raster underneath the annotations.
// Offset and scale let a crop or zoom survive serialization without
// re-encoding the pixels.
type Background struct {
	ImageData []byte  `json:"imageData"`
	Left      int     `json:"left"`
	Top       int     `json:"top"`
	ScaleX    float64 `json:"scaleX"`
	ScaleY    float64 `json:"scaleY"`
}

// Document is the mutable annotation state for one image. All methods are
// safe for concurrent use; change listeners are invoked after every
// mutation, outside the document lock.
type Document struct {
	mu         sync.Mutex
	width      int
	height     int
	background *Background
	bgImage    image.Image
	objects    []Object
	nextNumber int
	listeners  []func()
}

// New returns an empty document of the given canvas size.
func New(width, height int) *Document {
	return &Document{width: width, height: height, nextNumber: 1}
}

// FromImage returns a document whose canvas and background are the given
// image at 1:1 scale.
func FromImage(img image.Image) (*Document, error) {
	b := img.Bounds()
	d := New(b.Dx(), b.Dy())
	if err := d.SetBackground(img); err != nil {
		return nil, err
	}
	return d, nil
}

// SetBackground replaces the background raster, resizing the canvas to
// match the image at 1:1 scale.
func (d *Document) SetBackground(img image.Image) error {
	data, err := encodePNG(img)
	if err != nil {
		return err
	}
	b := img.Bounds()
	d.mu.Lock()
	d.background = &Background{ImageData: data, ScaleX: 1, ScaleY: 1}
	d.bgImage = img
	d.width = b.Dx()
	d.height = b.Dy()
	d.mu.Unlock()
	d.notify()
	return nil
}

// Append adds an annotation to the top of the object stack. Number
// annotations with Number == 0 are assigned the next sequence value.
func (d *Document) Append(obj Object) {
	d.mu.Lock()
	if obj.Kind == KindNumber && obj.Number == 0 {
		obj.Number = d.nextNumber
		d.nextNumber++
	}
	d.objects = append(d.objects, obj)
	d.mu.Unlock()
	d.notify()
}

// RemoveLast pops the most recent annotation, if any.
func (d *Document) RemoveLast() {
	d.mu.Lock()
	if len(d.objects) == 0 {
		d.mu.Unlock()
		return
	}
	if top := d.objects[len(d.objects)-1]; top.Kind == KindNumber && top.Number == d.nextNumber-1 {
		d.nextNumber--
	}
	d.objects = d.objects[:len(d.objects)-1]
	d.mu.Unlock()
	d.notify()
}

// Objects returns a copy of the annotation stack, bottom first.
func (d *Document) Objects() []Object {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Object, len(d.objects))
	copy(out, d.objects)
	return out
}

// Size returns the canvas dimensions.
func (d *Document) Size() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

// NextNumber reports the value the next number annotation will take.
func (d *Document) NextNumber() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nextNumber
}

// Crop shrinks the canvas to rect, shifting the background offset and
// every annotation so their on-screen positions are preserved. Objects
// are kept even when they fall outside the new canvas.
func (d *Document) Crop(rect image.Rectangle) {
	d.mu.Lock()
	rect = rect.Canon()
	dx, dy := rect.Min.X, rect.Min.Y
	d.width = rect.Dx()
	d.height = rect.Dy()
	if d.background != nil {
		d.background.Left -= dx
		d.background.Top -= dy
	}
	for i := range d.objects {
		for j := range d.objects[i].Points {
			d.objects[i].Points[j].X -= dx
			d.objects[i].Points[j].Y -= dy
		}
	}
	d.mu.Unlock()
	d.notify()
}

// OnChange registers fn to run after every mutation, including Restore.
func (d *Document) OnChange(fn func()) {
	d.mu.Lock()
	d.listeners = append(d.listeners, fn)
	d.mu.Unlock()
}

func (d *Document) notify() {
	d.mu.Lock()
	fns := make([]func(), len(d.listeners))
	copy(fns, d.listeners)
	d.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Render composites the background and annotation stack into a fresh
// RGBA image of the canvas size.
func (d *Document) Render() *image.RGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.renderLocked()
}

func (d *Document) renderLocked() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	xdraw.Draw(out, out.Bounds(), image.White, image.Point{}, xdraw.Src)

	if d.bgImage != nil && d.background != nil {
		bg := d.background
		sb := d.bgImage.Bounds()
		sx, sy := bg.ScaleX, bg.ScaleY
		if sx == 0 {
			sx = 1
		}
		if sy == 0 {
			sy = 1
		}
		dst := image.Rect(
			bg.Left, bg.Top,
			bg.Left+int(float64(sb.Dx())*sx),
			bg.Top+int(float64(sb.Dy())*sy),
		)
		xdraw.NearestNeighbor.Scale(out, dst, d.bgImage, sb, xdraw.Over, nil)
	}

	for _, obj := range d.objects {
		DrawObject(out, obj)
	}
	return out
}

// DrawObject rasterizes a single annotation onto img. It is used both for
// compositing the object stack and for live previews while a tool drags.
func DrawObject(img *image.RGBA, obj Object) {
	if len(obj.Points) == 0 {
		return
	}
	first := obj.Points[0]
	last := obj.Points[len(obj.Points)-1]
	switch obj.Kind {
	case KindStroke:
		if len(obj.Points) == 1 {
			setThickPixel(img, first.X, first.Y, obj.Width, obj.Color)
			return
		}
		for i := 1; i < len(obj.Points); i++ {
			p, q := obj.Points[i-1], obj.Points[i]
			rasterLine(img, p.X, p.Y, q.X, q.Y, obj.Color, obj.Width)
		}
	case KindLine:
		rasterLine(img, first.X, first.Y, last.X, last.Y, obj.Color, obj.Width)
	case KindArrow:
		rasterArrow(img, first.X, first.Y, last.X, last.Y, obj.Color, obj.Width)
	case KindRect:
		rasterRect(img, image.Rectangle{Min: first, Max: last}.Canon(), obj.Color, obj.Width)
	case KindEllipse:
		r := image.Rectangle{Min: first, Max: last}.Canon()
		cx := (r.Min.X + r.Max.X) / 2
		cy := (r.Min.Y + r.Max.Y) / 2
		rasterEllipse(img, cx, cy, r.Dx()/2, r.Dy()/2, obj.Color, obj.Width)
	case KindNumber:
		radius := obj.Radius
		if radius <= 0 {
			radius = 14
		}
		rasterNumberBadge(img, first.X, first.Y, obj.Number, obj.Color, radius)
	case KindText:
		size := obj.Size
		if size <= 0 {
			size = 18
		}
		rasterText(img, first, obj.Text, obj.Color, size)
	case KindMosaic:
		block := obj.Block
		if block < 2 {
			block = 12
		}
		render.Pixelate(img, image.Rectangle{Min: first, Max: last}.Canon(), block)
	}
}
