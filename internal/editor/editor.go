// Package editor is the interactive annotation window. It owns the shiny
// event loop and translates tool gestures into document mutations; undo
// and redo are delegated to the history engine.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log"
	"os"
	"sync"
	"time"
	"unicode"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/example/inkmark/internal/capture"
	"github.com/example/inkmark/internal/clipboard"
	"github.com/example/inkmark/internal/document"
	"github.com/example/inkmark/internal/history"
	"github.com/example/inkmark/internal/notify"
	"github.com/example/inkmark/internal/theme"
)

// Editor drives the annotation UI for a single document.
type Editor struct {
	doc      *document.Document
	hist     *history.Engine
	output   string
	notifier *notify.Notifier
	theme    *theme.Theme

	colorIdx int
	widthIdx int

	updateCh chan struct{}

	onClose   func()
	closeOnce sync.Once

	toolbarWidth   int
	toolButtons    []*CacheButton
	shortcutRects  []Shortcut
	keyboardAction map[KeyShortcut]string
	backdropCache  *image.RGBA

	hoverTool     int
	hoverPalette  int
	hoverWidth    int
	hoverNumber   int
	hoverTextSize int
	hoverMosaic   int
	hoverShortcut int
}

// Option modifies an Editor during creation.
type Option func(*Editor)

// WithOutput sets the file path used when saving the rendered document.
func WithOutput(out string) Option { return func(e *Editor) { e.output = out } }

// WithHistory attaches an undo/redo engine. Document mutations feed its
// debounced capture; Ctrl+Z and Ctrl+Y drive it.
func WithHistory(h *history.Engine) Option { return func(e *Editor) { e.hist = h } }

// WithNotifier attaches desktop notifications for save and copy events.
func WithNotifier(n *notify.Notifier) Option { return func(e *Editor) { e.notifier = n } }

// WithTheme sets the UI color theme.
func WithTheme(t *theme.Theme) Option { return func(e *Editor) { e.theme = t } }

// WithColorIndex sets the initial palette index for drawing tools.
func WithColorIndex(idx int) Option { return func(e *Editor) { e.colorIdx = idx } }

// WithWidthIndex sets the initial stroke width index for drawing tools.
func WithWidthIndex(idx int) Option { return func(e *Editor) { e.widthIdx = idx } }

// WithOnClose registers a callback invoked when the window closes.
func WithOnClose(fn func()) Option { return func(e *Editor) { e.onClose = fn } }

// New creates an Editor for the given document.
func New(doc *document.Document, opts ...Option) *Editor {
	e := &Editor{
		doc:           doc,
		colorIdx:      defaultColorIndex,
		widthIdx:      defaultWidthIndex,
		updateCh:      make(chan struct{}, 1),
		hoverTool:     -1,
		hoverPalette:  -1,
		hoverWidth:    -1,
		hoverNumber:   -1,
		hoverTextSize: -1,
		hoverMosaic:   -1,
		hoverShortcut: -1,
	}
	for _, o := range opts {
		o(e)
	}
	if e.theme == nil {
		e.theme = theme.Default()
	}
	e.colorIdx = clampColorIndex(e.colorIdx)
	e.widthIdx = clampWidthIndex(e.widthIdx)

	doc.OnChange(func() {
		if e.hist != nil {
			e.hist.DocumentChanged()
		}
		e.RequestPaint()
	})
	return e
}

// RequestPaint schedules a repaint; safe to call from any goroutine.
func (e *Editor) RequestPaint() {
	select {
	case e.updateCh <- struct{}{}:
	default:
	}
}

func (e *Editor) notifyClose() {
	e.closeOnce.Do(func() {
		if e.onClose != nil {
			e.onClose()
		}
	})
}

// Run executes the UI loop using shiny's driver.
func (e *Editor) Run() { driver.Main(e.Main) }

func (e *Editor) Main(s screen.Screen) {
	docW, docH := e.doc.Size()

	// Size the toolbar wide enough for the title and every tool label so
	// the UI contents are not clipped on start up.
	d := &font.Drawer{Face: basicfont.Face7x13}
	widest := d.MeasureString("Inkmark").Ceil() + 8
	toolLabels := []string{"M:Move", "R:Crop", "B:Draw", "O:Circle", "L:Line", "A:Arrow", "X:Rect", "H:Num", "T:Text", "P:Mosaic"}
	for _, lbl := range toolLabels {
		if w := d.MeasureString(lbl).Ceil() + 8; w > widest {
			widest = w
		}
	}
	e.toolbarWidth = widest
	if e.toolbarWidth < 48 {
		e.toolbarWidth = 48
	}

	width := docW + e.toolbarWidth
	height := docH + headerHeight + bottomHeight
	w, err := s.NewWindow(&screen.NewWindowOptions{Width: width, Height: height})
	if err != nil {
		log.Fatalf("new window: %v", err)
	}
	defer w.Release()
	defer e.notifyClose()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-e.updateCh:
				w.Send(paint.Event{})
			case <-done:
				return
			}
		}
	}()
	defer close(done)

	var paintMu sync.Mutex
	var paintCancel context.CancelFunc
	var dropCount int
	paintCh := make(chan paintState, 1)
	go func() {
		for st := range paintCh {
			ctx, cancel := context.WithCancel(context.Background())
			paintMu.Lock()
			paintCancel = cancel
			paintMu.Unlock()
			e.drawFrame(ctx, s, w, st)
			paintMu.Lock()
			paintCancel = nil
			if ctx.Err() == nil {
				dropCount = 0
			}
			paintMu.Unlock()
		}
	}()
	cancelPaint := func() {
		paintMu.Lock()
		if paintCancel != nil {
			paintCancel()
		}
		paintMu.Unlock()
	}

	tool := ToolMove
	var active actionType
	var cropMode cropAction
	var cropStart image.Point
	var cropStartRect image.Rectangle
	var cropRect image.Rectangle
	var moveStart image.Point
	var moveOffset image.Point
	var offset image.Point
	var strokePts []image.Point
	var shapeStart image.Point
	var preview *document.Object
	var textInputActive bool
	var textInput string
	var textPos image.Point
	var message string
	var messageUntil time.Time
	var quitRequested bool
	numberIdx := 0
	mosaicIdx := 1
	textSizeIdx := 2
	zoom := fitZoom(docW, docH, width, height, e.toolbarWidth)

	flash := func(text string) {
		message = text
		log.Print(text)
		messageUntil = time.Now().Add(2 * time.Second)
	}

	commitText := func() {
		if textInput != "" {
			e.doc.Append(document.Object{
				Kind:   document.KindText,
				Points: []image.Point{textPos},
				Color:  paletteColorAt(e.colorIdx),
				Text:   textInput,
				Size:   textSizes[textSizeIdx],
			})
			if e.hist != nil {
				e.hist.CaptureNow()
			}
		}
		textInputActive = false
		textInput = ""
	}

	replaceBackground := func(img image.Image) {
		if e.hist != nil {
			e.hist.Clear()
		}
		if err := e.doc.SetBackground(img); err != nil {
			log.Printf("set background: %v", err)
			return
		}
		docW, docH = e.doc.Size()
		offset = image.Point{}
		zoom = fitZoom(docW, docH, width, height, e.toolbarWidth)
		if e.hist != nil {
			e.hist.CaptureNow()
		}
	}

	actions := map[string]func(){}
	e.keyboardAction = map[KeyShortcut]string{}
	register := func(name string, keys KeyboardShortcuts, fn func()) {
		actions[name] = fn
		if keys != nil {
			for _, sc := range keys.KeyboardShortcuts() {
				e.keyboardAction[sc] = name
			}
		}
	}

	doUndo := func() {
		if e.hist == nil {
			return
		}
		if err := e.hist.Undo(); err != nil {
			switch {
			case errors.Is(err, history.ErrNothingToUndo):
				flash("nothing to undo")
			case errors.Is(err, history.ErrBusy):
				// mid-restore; drop silently, the engine logged it
			default:
				flash(fmt.Sprintf("undo: %v", err))
			}
		}
	}
	doRedo := func() {
		if e.hist == nil {
			return
		}
		if err := e.hist.Redo(); err != nil {
			switch {
			case errors.Is(err, history.ErrNothingToRedo):
				flash("nothing to redo")
			case errors.Is(err, history.ErrBusy):
			default:
				flash(fmt.Sprintf("redo: %v", err))
			}
		}
	}

	register("undo", shortcutList{{Rune: 'z', Modifiers: key.ModControl}}, doUndo)
	register("redo", shortcutList{
		{Rune: 'y', Modifiers: key.ModControl},
		{Rune: 'z', Modifiers: key.ModControl | key.ModShift},
	}, doRedo)

	register("copy", shortcutList{{Rune: 'c', Modifiers: key.ModControl}}, func() {
		if err := clipboard.WriteImage(e.doc.Render()); err != nil {
			log.Printf("copy: %v", err)
			return
		}
		if e.notifier != nil {
			e.notifier.Copy("annotated image")
		}
		flash("image copied to clipboard")
	})

	register("save", shortcutList{{Rune: 's', Modifiers: key.ModControl}}, func() {
		out, err := os.Create(e.output)
		if err != nil {
			log.Printf("save: %v", err)
			return
		}
		if err := png.Encode(out, e.doc.Render()); err != nil {
			log.Printf("save: %v", err)
			if cerr := out.Close(); cerr != nil {
				log.Printf("save: closing file: %v", cerr)
			}
			return
		}
		if err := out.Close(); err != nil {
			log.Printf("save: closing file: %v", err)
			return
		}
		if e.notifier != nil {
			e.notifier.Save(e.output)
		}
		if e.hist != nil {
			// A save is a natural settle point; collect snapshots the
			// stacks no longer reference.
			e.hist.Compact()
		}
		flash(fmt.Sprintf("saved %s", e.output))
	})

	register("capture", shortcutList{{Rune: 'n', Modifiers: key.ModControl}}, func() {
		img, err := capture.Screen("", capture.Options{})
		if err != nil {
			log.Printf("capture screenshot: %v", err)
			return
		}
		replaceBackground(img)
		if e.notifier != nil {
			e.notifier.Capture("screen", img)
		}
		flash("captured screenshot")
	})

	register("paste", shortcutList{{Rune: 'v', Modifiers: key.ModControl}}, func() {
		img, err := clipboard.ReadImage()
		if err != nil {
			log.Printf("paste: %v", err)
			return
		}
		rgba := image.NewRGBA(img.Bounds())
		draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
		replaceBackground(rgba)
		flash("pasted image")
	})

	register("zoom", shortcutList{{Rune: '0', Modifiers: key.ModControl}}, func() {
		offset = image.Point{}
		zoom = fitZoom(docW, docH, width, height, e.toolbarWidth)
	})

	register("textdone", shortcutList{{Code: key.CodeReturnEnter}}, commitText)

	register("textcancel", shortcutList{{Code: key.CodeEscape}}, func() {
		textInputActive = false
		textInput = ""
	})

	register("crop", shortcutList{{Code: key.CodeReturnEnter}}, func() {
		if tool != ToolCrop {
			return
		}
		dw, dh := e.doc.Size()
		sel := cropRect.Intersect(image.Rect(0, 0, dw, dh))
		if sel.Empty() {
			flash("crop selection is empty")
			return
		}
		e.doc.Crop(sel)
		docW, docH = e.doc.Size()
		active = actionNone
		cropRect = image.Rectangle{}
		offset = image.Point{}
		if e.hist != nil {
			e.hist.CaptureNow()
		}
	})

	register("cropcancel", shortcutList{{Code: key.CodeEscape}}, func() {
		if tool == ToolCrop {
			cropRect = image.Rectangle{}
			active = actionNone
		}
	})

	register("quit", nil, func() { quitRequested = true })

	handleShortcut := func(action string) {
		if fn, ok := actions[action]; ok {
			fn()
		}
		w.Send(paint.Event{})
	}

	e.toolButtons = []*CacheButton{
		{Button: &ToolButton{label: "M:Move", tool: ToolMove, atype: actionMove, th: e.theme}},
		{Button: &ToolButton{label: "R:Crop", tool: ToolCrop, atype: actionCrop, th: e.theme}},
		{Button: &ToolButton{label: "B:Draw", tool: ToolStroke, atype: actionDraw, th: e.theme}},
		{Button: &ToolButton{label: "O:Circle", tool: ToolCircle, atype: actionDraw, th: e.theme}},
		{Button: &ToolButton{label: "L:Line", tool: ToolLine, atype: actionDraw, th: e.theme}},
		{Button: &ToolButton{label: "A:Arrow", tool: ToolArrow, atype: actionDraw, th: e.theme}},
		{Button: &ToolButton{label: "X:Rect", tool: ToolRect, atype: actionDraw, th: e.theme}},
		{Button: &ToolButton{label: "H:Num", tool: ToolNumber, atype: actionDraw, th: e.theme}},
		{Button: &ToolButton{label: "T:Text", tool: ToolText, atype: actionNone, th: e.theme}},
		{Button: &ToolButton{label: "P:Mosaic", tool: ToolMosaic, atype: actionDraw, th: e.theme}},
	}
	for _, cb := range e.toolButtons {
		tb := cb.Button.(*ToolButton)
		t := tb
		tb.onSelect = func() {
			tool = t.tool
			active = actionNone
		}
	}

	for {
		ev := w.NextEvent()
		switch ev := ev.(type) {
		case lifecycle.Event:
			if ev.To == lifecycle.StageDead {
				cancelPaint()
				return
			}
		case size.Event:
			width = ev.WidthPx
			height = ev.HeightPx
			w.Send(paint.Event{})
		case paint.Event:
			paintMu.Lock()
			if paintCancel != nil && dropCount < frameDropThreshold {
				paintCancel()
				dropCount++
			}
			paintMu.Unlock()
			canUndo, canRedo := false, false
			if e.hist != nil {
				canUndo = e.hist.CanUndo()
				canRedo = e.hist.CanRedo()
			}
			dw, dh := e.doc.Size()
			// Snapshot the preview so the paint goroutine never sees the
			// point slice mid-mutation.
			var pv *document.Object
			if preview != nil {
				cp := *preview
				cp.Points = append([]image.Point(nil), preview.Points...)
				pv = &cp
			}
			st := paintState{
				width:           width,
				height:          height,
				frame:           e.doc.Render(),
				docW:            dw,
				docH:            dh,
				zoom:            zoom,
				offset:          offset,
				toolbarWidth:    e.toolbarWidth,
				tool:            tool,
				colorIdx:        e.colorIdx,
				widthIdx:        e.widthIdx,
				numberIdx:       numberIdx,
				mosaicIdx:       mosaicIdx,
				textSizeIdx:     textSizeIdx,
				cropping:        active == actionCrop,
				cropRect:        cropRect,
				cropStart:       cropStart,
				preview:         pv,
				textInputActive: textInputActive,
				textInput:       textInput,
				textPos:         textPos,
				message:         message,
				messageUntil:    messageUntil,
				canUndo:         canUndo,
				canRedo:         canRedo,
				handleShortcut:  handleShortcut,
			}
			select {
			case paintCh <- st:
			default:
				<-paintCh
				paintCh <- st
			}
		case mouse.Event:
			if message != "" && time.Now().Before(messageUntil) && ev.Direction == mouse.DirPress {
				messageUntil = time.Time{}
				w.Send(paint.Event{})
				continue
			}
			if e.handleChromeMouse(ev, width, height, tool, &numberIdx, &mosaicIdx, &textSizeIdx, w) {
				continue
			}

			docW, docH = e.doc.Size()
			base := canvasRect(docW, docH, zoom, e.toolbarWidth)
			mx := int((float64(ev.X)-float64(base.Min.X))/zoom) - offset.X
			my := int((float64(ev.Y)-float64(base.Min.Y))/zoom) - offset.Y
			pt := image.Pt(mx, my)

			if ev.Button == mouse.ButtonLeft && ev.Direction == mouse.DirPress {
				switch tool {
				case ToolMove:
					active = actionMove
					moveStart = image.Point{int(ev.X), int(ev.Y)}
					moveOffset = offset
				case ToolCrop:
					mode := cropNone
					for i, hr := range cropHandleRects(cropRect) {
						if pt.In(hr) {
							mode = cropAction(i + int(cropResizeTL))
							break
						}
					}
					if mode == cropNone {
						if !cropRect.Empty() && pt.In(cropRect) {
							mode = cropMove
						} else {
							mode = cropResizeBR
							cropRect = image.Rect(mx, my, mx, my)
						}
					}
					active = actionCrop
					cropMode = mode
					cropStart = pt
					cropStartRect = cropRect
					w.Send(paint.Event{})
				case ToolStroke:
					active = actionDraw
					strokePts = []image.Point{pt}
					preview = &document.Object{
						Kind:   document.KindStroke,
						Points: strokePts,
						Color:  paletteColorAt(e.colorIdx),
						Width:  widthAt(e.widthIdx),
					}
				case ToolCircle, ToolLine, ToolArrow, ToolRect, ToolMosaic:
					active = actionDraw
					shapeStart = pt
					preview = e.previewShape(tool, shapeStart, pt, mosaicIdx)
				case ToolNumber:
					active = actionDraw
					shapeStart = pt
				case ToolText:
					if textInputActive {
						textPos = pt
					} else {
						textInputActive = true
						textInput = ""
						textPos = pt
					}
					w.Send(paint.Event{})
				}
			}

			if ev.Direction == mouse.DirNone {
				switch {
				case active == actionCrop && tool == ToolCrop:
					cropRect = resizeCropRect(cropStartRect, cropMode, mx-cropStart.X, my-cropStart.Y)
					w.Send(paint.Event{})
				case active == actionDraw && tool == ToolStroke:
					strokePts = append(strokePts, pt)
					preview.Points = strokePts
					w.Send(paint.Event{})
				case active == actionDraw && preview != nil:
					preview.Points[1] = pt
					w.Send(paint.Event{})
				case active == actionMove && tool == ToolMove:
					dx := int(float64(int(ev.X)-moveStart.X) / zoom)
					dy := int(float64(int(ev.Y)-moveStart.Y) / zoom)
					offset = moveOffset.Add(image.Pt(dx, dy))
					w.Send(paint.Event{})
				}
			}

			if ev.Button == mouse.ButtonLeft && ev.Direction == mouse.DirRelease {
				switch {
				case active == actionCrop && tool == ToolCrop:
					cropRect = resizeCropRect(cropStartRect, cropMode, mx-cropStart.X, my-cropStart.Y)
				case active == actionDraw && tool == ToolStroke:
					strokePts = append(strokePts, pt)
					e.doc.Append(document.Object{
						Kind:   document.KindStroke,
						Points: strokePts,
						Color:  paletteColorAt(e.colorIdx),
						Width:  widthAt(e.widthIdx),
					})
					strokePts = nil
					preview = nil
				case active == actionDraw && tool == ToolNumber:
					e.doc.Append(document.Object{
						Kind:   document.KindNumber,
						Points: []image.Point{pt},
						Color:  paletteColorAt(e.colorIdx),
						Radius: numberSizes[numberIdx],
					})
				case active == actionDraw && preview != nil:
					obj := *preview
					obj.Points = []image.Point{shapeStart, pt}
					e.doc.Append(obj)
					preview = nil
				case active == actionMove && tool == ToolMove:
					dx := int(float64(int(ev.X)-moveStart.X) / zoom)
					dy := int(float64(int(ev.Y)-moveStart.Y) / zoom)
					offset = moveOffset.Add(image.Pt(dx, dy))
					w.Send(paint.Event{})
				}
				active = actionNone
			}
		case key.Event:
			if ev.Direction != key.DirPress {
				continue
			}
			if textInputActive {
				if ev.Modifiers&key.ModControl != 0 {
					switch unicode.ToLower(ev.Rune) {
					case 'z':
						commitText()
						if ev.Modifiers&key.ModShift != 0 {
							doRedo()
						} else {
							doUndo()
						}
						w.Send(paint.Event{})
						continue
					case 'y':
						commitText()
						doRedo()
						w.Send(paint.Event{})
						continue
					}
				}
				switch ev.Code {
				case key.CodeReturnEnter:
					commitText()
					w.Send(paint.Event{})
					continue
				case key.CodeEscape:
					textInputActive = false
					textInput = ""
					w.Send(paint.Event{})
					continue
				case key.CodeDeleteBackspace:
					if len(textInput) > 0 {
						textInput = textInput[:len(textInput)-1]
						w.Send(paint.Event{})
					}
					continue
				}
				if ev.Rune > 0 {
					textInput += string(ev.Rune)
					w.Send(paint.Event{})
				}
				continue
			}
			var action string
			var bound bool
			if ev.Rune > 0 {
				action, bound = e.keyboardAction[KeyShortcut{Rune: unicode.ToLower(ev.Rune), Modifiers: ev.Modifiers}]
			}
			if !bound {
				action, bound = e.keyboardAction[KeyShortcut{Code: ev.Code, Modifiers: ev.Modifiers}]
			}
			if bound {
				handleShortcut(action)
				if quitRequested {
					cancelPaint()
					return
				}
				continue
			}
			switch ev.Rune {
			case 'm', 'M':
				tool = ToolMove
				active = actionNone
				w.Send(paint.Event{})
			case 'r', 'R':
				tool = ToolCrop
				active = actionNone
				w.Send(paint.Event{})
			case 'b', 'B':
				tool = ToolStroke
				active = actionNone
				w.Send(paint.Event{})
			case 'o', 'O':
				tool = ToolCircle
				active = actionNone
				w.Send(paint.Event{})
			case 'l', 'L':
				tool = ToolLine
				active = actionNone
				w.Send(paint.Event{})
			case 'a', 'A':
				tool = ToolArrow
				active = actionNone
				w.Send(paint.Event{})
			case 'x', 'X':
				tool = ToolRect
				active = actionNone
				w.Send(paint.Event{})
			case 'h', 'H':
				tool = ToolNumber
				active = actionNone
				w.Send(paint.Event{})
			case 't', 'T':
				tool = ToolText
				active = actionNone
				w.Send(paint.Event{})
			case 'p', 'P':
				tool = ToolMosaic
				active = actionNone
				w.Send(paint.Event{})
			case 'q', 'Q':
				cancelPaint()
				return
			case '+', '=':
				zoom *= 1.25
				w.Send(paint.Event{})
			case '-':
				zoom /= 1.25
				if zoom < 0.1 {
					zoom = 0.1
				}
				w.Send(paint.Event{})
			case -1:
				if tool != ToolMove {
					continue
				}
				switch ev.Code {
				case key.CodeLeftArrow:
					offset.X -= 10
					w.Send(paint.Event{})
				case key.CodeRightArrow:
					offset.X += 10
					w.Send(paint.Event{})
				case key.CodeUpArrow:
					offset.Y -= 10
					w.Send(paint.Event{})
				case key.CodeDownArrow:
					offset.Y += 10
					w.Send(paint.Event{})
				}
			}
		}
		if quitRequested {
			cancelPaint()
			return
		}
	}
}

func (e *Editor) previewShape(tool Tool, start, cur image.Point, mosaicIdx int) *document.Object {
	obj := document.Object{
		Points: []image.Point{start, cur},
		Color:  paletteColorAt(e.colorIdx),
		Width:  widthAt(e.widthIdx),
	}
	switch tool {
	case ToolCircle:
		obj.Kind = document.KindEllipse
	case ToolLine:
		obj.Kind = document.KindLine
	case ToolArrow:
		obj.Kind = document.KindArrow
	case ToolRect:
		obj.Kind = document.KindRect
	case ToolMosaic:
		obj.Kind = document.KindMosaic
		obj.Block = mosaicBlocks[mosaicIdx]
	}
	return &obj
}

// handleChromeMouse processes clicks and hovers over the header, toolbar
// and bottom bar. It reports whether the event was consumed.
func (e *Editor) handleChromeMouse(ev mouse.Event, width, height int, tool Tool, numberIdx, mosaicIdx, textSizeIdx *int, w screen.Window) bool {
	p := image.Point{int(ev.X), int(ev.Y)}

	if p.Y >= height-bottomHeight {
		e.hoverShortcut = -1
		for i := range e.shortcutRects {
			sc := &e.shortcutRects[i]
			if p.In(sc.rect) {
				e.hoverShortcut = i
				if ev.Button == mouse.ButtonLeft && ev.Direction == mouse.DirPress {
					sc.Activate()
				}
				break
			}
		}
		if ev.Direction == mouse.DirNone {
			w.Send(paint.Event{})
		}
		return true
	}

	if p.Y < headerHeight {
		return true
	}

	if p.X >= e.toolbarWidth {
		return false
	}

	pos := p.Y - headerHeight
	idx := pos / 24
	if idx < len(e.toolButtons) {
		if ev.Button == mouse.ButtonLeft && ev.Direction == mouse.DirPress {
			e.toolButtons[idx].Activate()
			w.Send(paint.Event{})
		}
		e.hoverTool = idx
		if ev.Direction == mouse.DirNone {
			w.Send(paint.Event{})
		}
		return true
	}
	pos -= len(e.toolButtons) * 24
	pos -= 4
	paletteCols := e.toolbarWidth / 18
	rows := (paletteLen() + paletteCols - 1) / paletteCols
	paletteHeight := rows * 18
	if pos >= 0 && pos < paletteHeight {
		colX := (p.X - 4) / 18
		colY := pos / 18
		cidx := colY*paletteCols + colX
		if cidx >= 0 && cidx < paletteLen() {
			if ev.Button == mouse.ButtonLeft && ev.Direction == mouse.DirPress {
				e.colorIdx = cidx
				w.Send(paint.Event{})
			}
			e.hoverPalette = cidx
			if ev.Direction == mouse.DirNone {
				w.Send(paint.Event{})
			}
			return true
		}
	}
	pos -= paletteHeight
	pos -= 4
	switch {
	case (tool == ToolStroke || tool == ToolCircle || tool == ToolLine || tool == ToolArrow || tool == ToolRect) && pos >= 0:
		widx := pos / 16
		if widx >= 0 && widx < widthsLen() {
			if ev.Button == mouse.ButtonLeft && ev.Direction == mouse.DirPress {
				e.widthIdx = widx
				w.Send(paint.Event{})
			}
			e.hoverWidth = widx
			if ev.Direction == mouse.DirNone {
				w.Send(paint.Event{})
			}
			return true
		}
	case tool == ToolNumber && pos >= 0:
		rem := pos
		for i, s := range numberSizes {
			h := numberBoxHeight(s)
			if rem < h {
				if ev.Button == mouse.ButtonLeft && ev.Direction == mouse.DirPress {
					*numberIdx = i
					w.Send(paint.Event{})
				}
				e.hoverNumber = i
				if ev.Direction == mouse.DirNone {
					w.Send(paint.Event{})
				}
				break
			}
			rem -= h
		}
		return true
	case tool == ToolText && pos >= 0:
		idx := pos / 24
		if idx >= 0 && idx < len(textFaces) {
			if ev.Button == mouse.ButtonLeft && ev.Direction == mouse.DirPress {
				*textSizeIdx = idx
				w.Send(paint.Event{})
			}
			e.hoverTextSize = idx
			if ev.Direction == mouse.DirNone {
				w.Send(paint.Event{})
			}
			return true
		}
	case tool == ToolMosaic && pos >= 0:
		idx := pos / 20
		if idx >= 0 && idx < len(mosaicBlocks) {
			if ev.Button == mouse.ButtonLeft && ev.Direction == mouse.DirPress {
				*mosaicIdx = idx
				w.Send(paint.Event{})
			}
			e.hoverMosaic = idx
			if ev.Direction == mouse.DirNone {
				w.Send(paint.Event{})
			}
			return true
		}
	}
	if ev.Direction == mouse.DirNone {
		e.hoverTool = -1
		e.hoverPalette = -1
		e.hoverWidth = -1
		e.hoverNumber = -1
		e.hoverTextSize = -1
		e.hoverMosaic = -1
		w.Send(paint.Event{})
	}
	return true
}
