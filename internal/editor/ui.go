package editor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"sort"
	"sync"
	"time"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/mobile/event/key"

	"golang.org/x/exp/shiny/screen"

	"github.com/example/inkmark/internal/document"
	"github.com/example/inkmark/internal/theme"
)

const (
	headerHeight = 24
	bottomHeight = 24
	handleSize   = 8
)

// frameDropThreshold specifies how many consecutive frames can be canceled
// before a draw is allowed to complete to keep the UI responsive.
const frameDropThreshold = 10

type Tool int

const (
	ToolMove Tool = iota
	ToolCrop
	ToolStroke
	ToolCircle
	ToolLine
	ToolArrow
	ToolRect
	ToolNumber
	ToolText
	ToolMosaic
)

const (
	defaultColorIndex = 2
	defaultWidthIndex = 2
)

type cropAction int

const (
	cropNone cropAction = iota
	cropMove
	cropResizeTL
	cropResizeT
	cropResizeTR
	cropResizeR
	cropResizeBR
	cropResizeB
	cropResizeBL
	cropResizeL
)

type actionType int

const (
	actionNone actionType = iota
	actionMove
	actionCrop
	actionDraw
)

// PaletteColor pairs a drawing color with its display name.
type PaletteColor struct {
	Name  string
	Color color.RGBA
}

var (
	paletteMu sync.RWMutex
	palette   = []color.RGBA{
		{0, 0, 0, 255},       // black
		{255, 255, 255, 255}, // white
		{255, 0, 0, 255},
		{0, 255, 0, 255},
		{0, 0, 255, 255},
		{255, 255, 0, 255},
		{0, 255, 255, 255},
		{255, 0, 255, 255},
		{128, 0, 0, 255},
		{0, 128, 0, 255},
		{0, 0, 128, 255},
		{128, 128, 0, 255},
		{0, 128, 128, 255},
		{128, 0, 128, 255},
		{192, 192, 192, 255},
		{128, 128, 128, 255},
	}
	paletteNames = []string{
		"Black",
		"White",
		"Red",
		"Lime",
		"Blue",
		"Yellow",
		"Cyan",
		"Magenta",
		"Maroon",
		"Green",
		"Navy",
		"Olive",
		"Teal",
		"Purple",
		"Silver",
		"Gray",
	}
)

var (
	widthsMu sync.RWMutex
	widths   = []int{1, 2, 4, 6, 8}
)

var numberSizes = []int{8, 12, 16, 20, 24}
var mosaicBlocks = []int{6, 12, 18, 24}

var textSizes = []float64{12, 16, 20, 24, 32}
var textFaces []font.Face
var messageFace font.Face

func init() {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		log.Fatalf("parse font: %v", err)
	}
	for _, sz := range textSizes {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: sz, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			log.Fatalf("font face: %v", err)
		}
		textFaces = append(textFaces, face)
	}
	messageFace, err = opentype.NewFace(f, &opentype.FaceOptions{Size: 48, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		log.Fatalf("font face: %v", err)
	}
}

// DefaultColorIndex returns the default palette index used for drawing tools.
func DefaultColorIndex() int { return defaultColorIndex }

// DefaultWidthIndex returns the default stroke width index used for drawing tools.
func DefaultWidthIndex() int { return defaultWidthIndex }

// Palette returns a copy of the available drawing colors.
func Palette() []color.RGBA {
	paletteMu.RLock()
	defer paletteMu.RUnlock()
	out := make([]color.RGBA, len(palette))
	copy(out, palette)
	return out
}

// PaletteColors returns palette entries annotated with their display names.
func PaletteColors() []PaletteColor {
	paletteMu.RLock()
	defer paletteMu.RUnlock()
	out := make([]PaletteColor, len(palette))
	for i := range palette {
		out[i] = PaletteColor{Name: paletteNames[i], Color: palette[i]}
	}
	return out
}

// EnsurePaletteColor makes sure col is present in the palette and returns its index.
func EnsurePaletteColor(col color.RGBA, name string) int {
	paletteMu.Lock()
	defer paletteMu.Unlock()
	for idx, existing := range palette {
		if existing == col {
			if name != "" && paletteNames[idx] == "" {
				paletteNames[idx] = name
			}
			return idx
		}
	}
	if name == "" {
		name = fmt.Sprintf("#%02X%02X%02X", col.R, col.G, col.B)
	}
	palette = append(palette, col)
	paletteNames = append(paletteNames, name)
	return len(palette) - 1
}

// WidthOptions returns a copy of the available stroke widths.
func WidthOptions() []int {
	widthsMu.RLock()
	defer widthsMu.RUnlock()
	out := make([]int, len(widths))
	copy(out, widths)
	return out
}

// EnsureWidth makes sure width is included in the options and returns its index.
func EnsureWidth(width int) int {
	if width < 1 {
		width = 1
	}
	widthsMu.Lock()
	defer widthsMu.Unlock()
	for idx, existing := range widths {
		if existing == width {
			return idx
		}
	}
	widths = append(widths, width)
	sort.Ints(widths)
	for idx, existing := range widths {
		if existing == width {
			return idx
		}
	}
	return 0
}

func paletteLen() int {
	paletteMu.RLock()
	defer paletteMu.RUnlock()
	return len(palette)
}

func paletteColorAt(idx int) color.RGBA {
	paletteMu.RLock()
	defer paletteMu.RUnlock()
	if len(palette) == 0 {
		return color.RGBA{}
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(palette) {
		idx = len(palette) - 1
	}
	return palette[idx]
}

func clampColorIndex(idx int) int {
	paletteMu.RLock()
	defer paletteMu.RUnlock()
	if len(palette) == 0 {
		return 0
	}
	if idx < 0 {
		return 0
	}
	if idx >= len(palette) {
		return len(palette) - 1
	}
	return idx
}

func widthsLen() int {
	widthsMu.RLock()
	defer widthsMu.RUnlock()
	return len(widths)
}

func widthAt(idx int) int {
	widthsMu.RLock()
	defer widthsMu.RUnlock()
	if len(widths) == 0 {
		return 0
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(widths) {
		idx = len(widths) - 1
	}
	return widths[idx]
}

func clampWidthIndex(idx int) int {
	widthsMu.RLock()
	defer widthsMu.RUnlock()
	if len(widths) == 0 {
		return 0
	}
	if idx < 0 {
		return 0
	}
	if idx >= len(widths) {
		return len(widths) - 1
	}
	return idx
}

// KeyShortcut describes a keyboard combination that triggers an action.
type KeyShortcut struct {
	Rune      rune
	Code      key.Code
	Modifiers key.Modifiers
}

// KeyboardShortcuts returns the shortcuts associated with an action.
type KeyboardShortcuts interface {
	KeyboardShortcuts() []KeyShortcut
}

// shortcutList is a helper to easily satisfy the KeyboardShortcuts interface.
type shortcutList []KeyShortcut

func (s shortcutList) KeyboardShortcuts() []KeyShortcut { return []KeyShortcut(s) }

// ButtonState describes the visual state of a button.
type ButtonState int

const (
	StateDefault ButtonState = iota
	StateHover
	StatePressed
)

// Button represents an interactive UI element.
// Activate performs the button's action when clicked.
type Button interface {
	Draw(dst *image.RGBA, state ButtonState)
	Rect() image.Rectangle
	SetRect(r image.Rectangle)
	Activate()
}

// CacheButton wraps another Button and caches its rendered states.
type CacheButton struct {
	Button
	cache [3]*image.RGBA
}

var _ Button = (*CacheButton)(nil)

func (cb *CacheButton) Draw(dst *image.RGBA, state ButtonState) {
	if cb.cache[state] == nil {
		rect := cb.Button.Rect()
		img := image.NewRGBA(rect)
		cb.Button.Draw(img, state)
		cb.cache[state] = img
	}
	draw.Draw(dst, cb.Button.Rect(), cb.cache[state], cb.Button.Rect().Min, draw.Src)
}

func (cb *CacheButton) Rect() image.Rectangle { return cb.Button.Rect() }

func (cb *CacheButton) SetRect(r image.Rectangle) {
	if r != cb.Button.Rect() {
		cb.Button.SetRect(r)
		cb.cache = [3]*image.RGBA{}
	}
}

func (cb *CacheButton) Activate() { cb.Button.Activate() }

// Shortcut is a clickable hint in the bottom bar.
type Shortcut struct {
	label  string
	action func()
	rect   image.Rectangle
	th     *theme.Theme
}

func (s *Shortcut) Draw(dst *image.RGBA, state ButtonState) {
	col := s.th.ButtonBackground
	txt := s.th.ButtonText
	switch state {
	case StateHover:
		col = s.th.ButtonBackgroundHover
		txt = s.th.ButtonTextHover
	case StatePressed:
		col = s.th.ButtonBackgroundPress
		txt = s.th.ButtonTextPress
	}
	draw.Draw(dst, s.rect, &image.Uniform{col}, image.Point{}, draw.Src)
	strokeRect(dst, s.rect, s.th.ButtonBorder, 1)
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(txt), Face: basicfont.Face7x13,
		Dot: fixed.P(s.rect.Min.X+2, s.rect.Min.Y+14)}
	d.DrawString(s.label)
}

func (s *Shortcut) Rect() image.Rectangle { return s.rect }

func (s *Shortcut) SetRect(r image.Rectangle) {
	if r != s.rect {
		s.rect = r
	}
}

func (s *Shortcut) Activate() {
	if s.action != nil {
		s.action()
	}
}

// ToolButton represents a toolbar button that selects a drawing tool.
type ToolButton struct {
	label    string
	tool     Tool
	atype    actionType
	rect     image.Rectangle
	th       *theme.Theme
	onSelect func()
}

func (tb *ToolButton) Draw(dst *image.RGBA, state ButtonState) {
	c := tb.th.ButtonBackground
	txt := tb.th.ButtonText
	switch state {
	case StateHover:
		c = tb.th.ButtonBackgroundHover
		txt = tb.th.ButtonTextHover
	case StatePressed:
		c = tb.th.ButtonBackgroundPress
		txt = tb.th.ButtonTextPress
	}
	draw.Draw(dst, tb.rect, &image.Uniform{c}, image.Point{}, draw.Src)
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(txt), Face: basicfont.Face7x13,
		Dot: fixed.P(tb.rect.Min.X+4, tb.rect.Min.Y+16)}
	d.DrawString(tb.label)
}

func (tb *ToolButton) Rect() image.Rectangle { return tb.rect }

func (tb *ToolButton) SetRect(r image.Rectangle) {
	if r != tb.rect {
		tb.rect = r
	}
}

func (tb *ToolButton) Activate() {
	if tb.onSelect != nil {
		tb.onSelect()
	}
}

func numberBoxHeight(size int) int {
	h := 2*size + 4
	if h < 16 {
		return 16
	}
	return h
}

func fitZoom(w, h, winW, winH, toolbarWidth int) float64 {
	availW := winW - toolbarWidth
	availH := winH - headerHeight - bottomHeight
	zx := float64(availW) / float64(w)
	zy := float64(availH) / float64(h)
	if zx < zy {
		return zx
	}
	return zy
}

// canvasRect returns the destination rectangle for the document. It anchors
// the canvas origin just below the header so the image position remains
// stable as the canvas grows or shrinks.
func canvasRect(w, h int, zoom float64, toolbarWidth int) image.Rectangle {
	dw := int(float64(w) * zoom)
	dh := int(float64(h) * zoom)
	x0 := toolbarWidth
	y0 := headerHeight
	return image.Rect(x0, y0, x0+dw, y0+dh)
}

func drawCheckerboard(dst *image.RGBA, rect image.Rectangle, size int, light, dark color.Color) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if ((x/size)+(y/size))%2 == 0 {
				dst.Set(x, y, light)
			} else {
				dst.Set(x, y, dark)
			}
		}
	}
}

func strokeLine(img *image.RGBA, x0, y0, x1, y1 int, col color.Color, thick int) {
	obj := document.Object{
		Kind:   document.KindLine,
		Points: []image.Point{{X: x0, Y: y0}, {X: x1, Y: y1}},
		Width:  thick,
	}
	if c, ok := col.(color.RGBA); ok {
		obj.Color = c
	} else {
		r, g, b, a := col.RGBA()
		obj.Color = color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
	}
	document.DrawObject(img, obj)
}

func strokeRect(img *image.RGBA, rect image.Rectangle, col color.Color, thick int) {
	strokeLine(img, rect.Min.X, rect.Min.Y, rect.Max.X-1, rect.Min.Y, col, thick)
	strokeLine(img, rect.Max.X-1, rect.Min.Y, rect.Max.X-1, rect.Max.Y-1, col, thick)
	strokeLine(img, rect.Max.X-1, rect.Max.Y-1, rect.Min.X, rect.Max.Y-1, col, thick)
	strokeLine(img, rect.Min.X, rect.Max.Y-1, rect.Min.X, rect.Min.Y, col, thick)
}

func drawDashedLine(img *image.RGBA, x0, y0, x1, y1, dash, thickness int, c1, c2 color.Color) {
	horiz := y0 == y1
	length := x1 - x0
	if !horiz {
		length = y1 - y0
	}
	if length < 0 {
		length = -length
	}
	for i := 0; i <= length; i += dash * 2 {
		for j := 0; j < dash && i+j <= length; j++ {
			col := c1
			if horiz {
				for t := 0; t < thickness; t++ {
					if x0 < x1 {
						img.Set(x0+i+j, y0+t, col)
					} else {
						img.Set(x0-i-j, y0+t, col)
					}
				}
			} else {
				for t := 0; t < thickness; t++ {
					if y0 < y1 {
						img.Set(x0+t, y0+i+j, col)
					} else {
						img.Set(x0+t, y0-i-j, col)
					}
				}
			}
		}
		for j := 0; j < dash && i+dash+j <= length; j++ {
			col := c2
			if horiz {
				for t := 0; t < thickness; t++ {
					if x0 < x1 {
						img.Set(x0+i+dash+j, y0+t, col)
					} else {
						img.Set(x0-i-dash-j, y0+t, col)
					}
				}
			} else {
				for t := 0; t < thickness; t++ {
					if y0 < y1 {
						img.Set(x0+t, y0+i+dash+j, col)
					} else {
						img.Set(x0+t, y0-i-dash-j, col)
					}
				}
			}
		}
	}
}

func drawDashedRect(img *image.RGBA, rect image.Rectangle, dash, thickness int, c1, c2 color.Color) {
	drawDashedLine(img, rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y, dash, thickness, c1, c2)
	drawDashedLine(img, rect.Max.X, rect.Min.Y, rect.Max.X, rect.Max.Y, dash, thickness, c1, c2)
	drawDashedLine(img, rect.Max.X, rect.Max.Y, rect.Min.X, rect.Max.Y, dash, thickness, c1, c2)
	drawDashedLine(img, rect.Min.X, rect.Max.Y, rect.Min.X, rect.Min.Y, dash, thickness, c1, c2)
}

func cropHandleRects(rect image.Rectangle) []image.Rectangle {
	hs := handleSize / 2
	cx := (rect.Min.X + rect.Max.X) / 2
	cy := (rect.Min.Y + rect.Max.Y) / 2
	return []image.Rectangle{
		image.Rect(rect.Min.X-hs, rect.Min.Y-hs, rect.Min.X+hs, rect.Min.Y+hs), // tl
		image.Rect(cx-hs, rect.Min.Y-hs, cx+hs, rect.Min.Y+hs),                 // t
		image.Rect(rect.Max.X-hs, rect.Min.Y-hs, rect.Max.X+hs, rect.Min.Y+hs), // tr
		image.Rect(rect.Max.X-hs, cy-hs, rect.Max.X+hs, cy+hs),                 // r
		image.Rect(rect.Max.X-hs, rect.Max.Y-hs, rect.Max.X+hs, rect.Max.Y+hs), // br
		image.Rect(cx-hs, rect.Max.Y-hs, cx+hs, rect.Max.Y+hs),                 // b
		image.Rect(rect.Min.X-hs, rect.Max.Y-hs, rect.Min.X+hs, rect.Max.Y+hs), // bl
		image.Rect(rect.Min.X-hs, cy-hs, rect.Min.X+hs, cy+hs),                 // l
	}
}

func resizeCropRect(startRect image.Rectangle, mode cropAction, dx, dy int) image.Rectangle {
	r := startRect
	switch mode {
	case cropMove:
		r = r.Add(image.Pt(dx, dy))
	case cropResizeTL:
		r.Min.X += dx
		r.Min.Y += dy
	case cropResizeT:
		r.Min.Y += dy
	case cropResizeTR:
		r.Min.Y += dy
		r.Max.X += dx
	case cropResizeR:
		r.Max.X += dx
	case cropResizeBR:
		r.Max.X += dx
		r.Max.Y += dy
	case cropResizeB:
		r.Max.Y += dy
	case cropResizeBL:
		r.Min.X += dx
		r.Max.Y += dy
	case cropResizeL:
		r.Min.X += dx
	}
	return r.Canon()
}

// paintState is the immutable snapshot handed to the paint goroutine.
type paintState struct {
	width, height   int
	frame           *image.RGBA
	docW, docH      int
	zoom            float64
	offset          image.Point
	toolbarWidth    int
	tool            Tool
	colorIdx        int
	widthIdx        int
	numberIdx       int
	mosaicIdx       int
	textSizeIdx     int
	cropping        bool
	cropRect        image.Rectangle
	cropStart       image.Point
	preview         *document.Object
	textInputActive bool
	textInput       string
	textPos         image.Point
	message         string
	messageUntil    time.Time
	canUndo         bool
	canRedo         bool
	handleShortcut  func(string)
}

func (e *Editor) drawFrame(ctx context.Context, s screen.Screen, w screen.Window, st paintState) {
	b, err := s.NewBuffer(image.Point{st.width, st.height})
	if err != nil {
		log.Printf("new buffer: %v", err)
		return
	}
	defer b.Release()

	e.drawBackdrop(b.RGBA())
	if ctx.Err() != nil {
		return
	}

	frame := st.frame
	if st.preview != nil {
		overlay := image.NewRGBA(frame.Bounds())
		draw.Draw(overlay, overlay.Bounds(), frame, image.Point{}, draw.Src)
		document.DrawObject(overlay, *st.preview)
		frame = overlay
	}
	if ctx.Err() != nil {
		return
	}

	base := canvasRect(st.docW, st.docH, st.zoom, st.toolbarWidth)
	dst := base.Add(image.Pt(int(float64(st.offset.X)*st.zoom), int(float64(st.offset.Y)*st.zoom)))
	xdraw.NearestNeighbor.Scale(b.RGBA(), dst, frame, frame.Bounds(), draw.Over, nil)
	if ctx.Err() != nil {
		return
	}

	if st.tool == ToolCrop && (st.cropping || !st.cropRect.Empty()) {
		sel := st.cropRect
		if st.cropping {
			sel = image.Rect(st.cropStart.X, st.cropStart.Y, st.cropStart.X, st.cropStart.Y).Union(sel)
		}
		r := image.Rect(
			dst.Min.X+int(float64(sel.Min.X)*st.zoom),
			dst.Min.Y+int(float64(sel.Min.Y)*st.zoom),
			dst.Min.X+int(float64(sel.Max.X)*st.zoom),
			dst.Min.Y+int(float64(sel.Max.Y)*st.zoom),
		)
		drawDashedRect(b.RGBA(), r, 4, 2, color.White, color.Black)
		for _, hr := range cropHandleRects(r) {
			if ctx.Err() != nil {
				return
			}
			draw.Draw(b.RGBA(), hr, &image.Uniform{color.White}, image.Point{}, draw.Src)
			strokeRect(b.RGBA(), hr, color.Black, 1)
			drawDashedRect(b.RGBA(), hr, 2, 1, color.RGBA{255, 0, 0, 255}, color.RGBA{0, 0, 255, 255})
		}
	}

	if ctx.Err() != nil {
		return
	}

	e.drawHeader(b.RGBA(), st)
	e.drawToolbar(b.RGBA(), st)
	e.drawShortcuts(b.RGBA(), st)

	if ctx.Err() != nil {
		return
	}

	if st.message != "" && time.Now().Before(st.messageUntil) {
		d := &font.Drawer{Dst: b.RGBA(), Src: image.Black, Face: messageFace}
		wmsg := d.MeasureString(st.message).Ceil()
		ascent := messageFace.Metrics().Ascent.Ceil()
		descent := messageFace.Metrics().Descent.Ceil()
		px := (st.width - wmsg) / 2
		py := (st.height-ascent-descent)/2 + ascent
		rect := image.Rect(px-8, py-ascent-8, px+wmsg+8, py+descent+8)
		draw.Draw(b.RGBA(), rect, &image.Uniform{color.RGBA{255, 255, 255, 230}}, image.Point{}, draw.Over)
		strokeRect(b.RGBA(), rect, color.Black, 2)
		d.Dot = fixed.P(px, py)
		d.DrawString(st.message)
	}

	if ctx.Err() != nil {
		return
	}

	if st.textInputActive {
		d := &font.Drawer{Dst: b.RGBA(), Src: image.NewUniform(paletteColorAt(st.colorIdx)), Face: textFaces[st.textSizeIdx]}
		px := dst.Min.X + int(float64(st.textPos.X)*st.zoom)
		py := dst.Min.Y + int(float64(st.textPos.Y)*st.zoom)
		d.Dot = fixed.P(px, py)
		d.DrawString(st.textInput + "|")
	}

	if ctx.Err() != nil {
		return
	}

	w.Upload(image.Point{}, b, b.Bounds())
	w.Publish()
}

func (e *Editor) drawBackdrop(dst *image.RGBA) {
	b := dst.Bounds()
	if e.backdropCache == nil || e.backdropCache.Bounds() != b {
		e.backdropCache = image.NewRGBA(b)
		drawCheckerboard(e.backdropCache, e.backdropCache.Bounds(), 8, e.theme.CheckerLight, e.theme.CheckerDark)
	}
	draw.Draw(dst, b, e.backdropCache, image.Point{}, draw.Src)
}

// drawHeader paints the title bar with the output name and history state.
func (e *Editor) drawHeader(dst *image.RGBA, st paintState) {
	draw.Draw(dst, image.Rect(0, 0, st.width, headerHeight),
		&image.Uniform{e.theme.TabBackground}, image.Point{}, draw.Src)

	title := &font.Drawer{Dst: dst, Src: image.NewUniform(e.theme.TabText), Face: basicfont.Face7x13,
		Dot: fixed.P(4, 16)}
	title.DrawString("Inkmark")

	status := e.output
	undoMark := " "
	if st.canUndo {
		undoMark = "<"
	}
	redoMark := " "
	if st.canRedo {
		redoMark = ">"
	}
	right := fmt.Sprintf("%s %s%s", status, undoMark, redoMark)
	meas := &font.Drawer{Face: basicfont.Face7x13}
	rw := meas.MeasureString(right).Ceil()
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(e.theme.TabText), Face: basicfont.Face7x13,
		Dot: fixed.P(st.width-rw-4, 16)}
	d.DrawString(right)
}

func (e *Editor) drawToolbar(dst *image.RGBA, st paintState) {
	y := headerHeight
	for i, cb := range e.toolButtons {
		r := image.Rect(0, y, e.toolbarWidth, y+24)
		cb.SetRect(r)
		tb := cb.Button.(*ToolButton)
		state := StateDefault
		if tb.tool == st.tool {
			state = StatePressed
		} else if i == e.hoverTool {
			state = StateHover
		}
		cb.Draw(dst, state)
		y += 24
	}

	// color palette below tools
	y += 4
	x := 4
	for i, p := range Palette() {
		rect := image.Rect(x, y, x+16, y+16)
		draw.Draw(dst, rect, &image.Uniform{p}, image.Point{}, draw.Src)
		if i == e.hoverPalette {
			draw.Draw(dst, rect, &image.Uniform{color.RGBA{255, 255, 255, 80}}, image.Point{}, draw.Over)
		}
		if i == st.colorIdx {
			strokeRect(dst, rect, color.White, 1)
		}
		x += 18
		if x+16 > e.toolbarWidth {
			x = 4
			y += 18
		}
	}

	col := paletteColorAt(st.colorIdx)
	switch {
	case st.tool == ToolStroke || st.tool == ToolCircle || st.tool == ToolLine || st.tool == ToolArrow || st.tool == ToolRect:
		y += 4
		for i, w := range WidthOptions() {
			rect := image.Rect(0, y, e.toolbarWidth, y+16)
			c := e.theme.ButtonBackground
			if i == st.widthIdx {
				c = e.theme.ButtonBackgroundPress
			} else if i == e.hoverWidth {
				c = e.theme.ButtonBackgroundHover
			}
			draw.Draw(dst, rect, &image.Uniform{c}, image.Point{}, draw.Src)
			d := &font.Drawer{Dst: dst, Src: image.NewUniform(e.theme.ButtonText), Face: basicfont.Face7x13, Dot: fixed.P(4, y+12)}
			d.DrawString(fmt.Sprintf("%d", w))
			lineY := y + 8
			strokeLine(dst, 30, lineY, e.toolbarWidth-4, lineY, col, w)
			y += 16
		}
	case st.tool == ToolNumber:
		y += 4
		for i, s := range numberSizes {
			h := numberBoxHeight(s)
			rect := image.Rect(0, y, e.toolbarWidth, y+h)
			c := e.theme.ButtonBackground
			if i == st.numberIdx {
				c = e.theme.ButtonBackgroundPress
			} else if i == e.hoverNumber {
				c = e.theme.ButtonBackgroundHover
			}
			draw.Draw(dst, rect, &image.Uniform{c}, image.Point{}, draw.Src)
			d := &font.Drawer{Dst: dst, Src: image.NewUniform(e.theme.ButtonText), Face: basicfont.Face7x13, Dot: fixed.P(4, y+12)}
			d.DrawString(fmt.Sprintf("%d", s))
			document.DrawObject(dst, document.Object{
				Kind:   document.KindNumber,
				Points: []image.Point{{X: (e.toolbarWidth + 30) / 2, Y: y + h/2}},
				Color:  col,
				Number: i + 1,
				Radius: s,
			})
			y += h
		}
	case st.tool == ToolText:
		y += 4
		for i, face := range textFaces {
			rect := image.Rect(0, y, e.toolbarWidth, y+24)
			c := e.theme.ButtonBackground
			if i == st.textSizeIdx {
				c = e.theme.ButtonBackgroundPress
			} else if i == e.hoverTextSize {
				c = e.theme.ButtonBackgroundHover
			}
			draw.Draw(dst, rect, &image.Uniform{c}, image.Point{}, draw.Src)
			d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
			baseline := y + face.Metrics().Ascent.Ceil()
			d.Dot = fixed.P(4, baseline)
			d.DrawString("Ab3")
			y += 24
		}
	case st.tool == ToolMosaic:
		y += 4
		for i, blk := range mosaicBlocks {
			rect := image.Rect(0, y, e.toolbarWidth, y+20)
			c := e.theme.ButtonBackground
			if i == st.mosaicIdx {
				c = e.theme.ButtonBackgroundPress
			} else if i == e.hoverMosaic {
				c = e.theme.ButtonBackgroundHover
			}
			draw.Draw(dst, rect, &image.Uniform{c}, image.Point{}, draw.Src)
			d := &font.Drawer{Dst: dst, Src: image.NewUniform(e.theme.ButtonText), Face: basicfont.Face7x13, Dot: fixed.P(4, y+14)}
			d.DrawString(fmt.Sprintf("%dpx", blk))
			y += 20
		}
	}
}

func (e *Editor) drawShortcuts(dst *image.RGBA, st paintState) {
	rect := image.Rect(0, st.height-bottomHeight, st.width, st.height)
	draw.Draw(dst, rect, &image.Uniform{e.theme.ToolbarBackground}, image.Point{}, draw.Src)
	e.shortcutRects = e.shortcutRects[:0]
	zoomStr := fmt.Sprintf("+/-:zoom (%.0f%%)", st.zoom*100)
	trigger := st.handleShortcut
	var shortcuts []Shortcut
	if st.textInputActive {
		shortcuts = []Shortcut{
			{label: "Enter:place", action: func() { trigger("textdone") }, th: e.theme},
			{label: "Esc:cancel", action: func() { trigger("textcancel") }, th: e.theme},
		}
	} else {
		shortcuts = []Shortcut{
			{label: "^Z:undo", action: func() { trigger("undo") }, th: e.theme},
			{label: "^Y:redo", action: func() { trigger("redo") }, th: e.theme},
			{label: "^N:capture", action: func() { trigger("capture") }, th: e.theme},
			{label: "^V:paste", action: func() { trigger("paste") }, th: e.theme},
			{label: zoomStr, action: func() { trigger("zoom") }, th: e.theme},
			{label: "^C:copy image", action: func() { trigger("copy") }, th: e.theme},
			{label: "^S:save", action: func() { trigger("save") }, th: e.theme},
			{label: "Q:quit", action: func() { trigger("quit") }, th: e.theme},
		}
		if st.tool == ToolCrop {
			shortcuts = append(shortcuts,
				Shortcut{label: "Enter:crop", action: func() { trigger("crop") }, th: e.theme},
				Shortcut{label: "Esc:cancel", action: func() { trigger("cropcancel") }, th: e.theme},
			)
		}
	}
	x := e.toolbarWidth + 4
	y := st.height - bottomHeight + 16
	meas := &font.Drawer{Face: basicfont.Face7x13}
	for i := range shortcuts {
		sc := &shortcuts[i]
		w := meas.MeasureString(sc.label).Ceil()
		sc.SetRect(image.Rect(x-2, y-14, x+w+2, y+4))
		state := StateDefault
		if i == e.hoverShortcut {
			state = StateHover
		}
		sc.Draw(dst, state)
		e.shortcutRects = append(e.shortcutRects, *sc)
		x = sc.rect.Max.X + 8
	}
}
