package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/inkmark/internal/capture"
	"github.com/example/inkmark/internal/clipboard"
	"github.com/example/inkmark/internal/document"
	"github.com/example/inkmark/internal/editor"
	"github.com/example/inkmark/internal/history"
	"github.com/example/inkmark/internal/snapstore"
)

// Swappable for tests.
var (
	captureScreenFn = capture.Screen
	captureRegionFn = capture.Region
	captureRectFn   = capture.Rect
	readClipboardFn = clipboard.ReadImage
	runEditorFn     = func(e *editor.Editor) { e.Run() }
)

const (
	defaultCanvasWidth  = 800
	defaultCanvasHeight = 600
)

// editCmd opens the interactive annotation editor.
type editCmd struct {
	file          string
	capture       bool
	region        bool
	rectSpec      string
	rect          image.Rectangle
	fromClipboard bool
	display       string
	output        string
	noHistory     bool
	*root
	fs *flag.FlagSet
}

func (e *editCmd) FlagSet() *flag.FlagSet {
	return e.fs
}

func parseEditCmd(args []string, r *root) (*editCmd, error) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	e := &editCmd{root: r, fs: fs}
	fs.Usage = usageFunc(e)
	fs.StringVar(&e.file, "file", "", "PNG file to annotate")
	fs.BoolVar(&e.capture, "capture", false, "capture a screenshot to annotate")
	fs.BoolVar(&e.region, "region", false, "interactively select a screen region to annotate")
	fs.StringVar(&e.rectSpec, "rect", "", "capture a screen rectangle given as x0,y0,x1,y1")
	fs.BoolVar(&e.fromClipboard, "from-clipboard", false, "read the starting image from the clipboard")
	fs.StringVar(&e.display, "display", "", "monitor to capture (primary, index, #n or name substring)")
	fs.StringVar(&e.output, "output", "annotated.png", "output file path")
	fs.BoolVar(&e.noHistory, "no-history", false, "disable persistent undo history for this session")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	sources := 0
	if e.file != "" {
		sources++
	}
	if e.capture {
		sources++
	}
	if e.region {
		sources++
	}
	if e.rectSpec != "" {
		sources++
	}
	if e.fromClipboard {
		sources++
	}
	if sources > 1 {
		return nil, fmt.Errorf("-file, -capture, -region, -rect and -from-clipboard are mutually exclusive")
	}
	if e.display != "" && !e.capture {
		return nil, fmt.Errorf("-display requires -capture")
	}
	if e.rectSpec != "" {
		rect, err := parseRectSpec(e.rectSpec)
		if err != nil {
			return nil, err
		}
		e.rect = rect
	}
	return e, nil
}

// parseRectSpec turns "x0,y0,x1,y1" into a canonical non-empty rectangle.
func parseRectSpec(spec string) (image.Rectangle, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("-rect wants x0,y0,x1,y1, got %q", spec)
	}
	var vals [4]int
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("-rect coordinate %q is not a number", part)
		}
		vals[i] = v
	}
	rect := image.Rect(vals[0], vals[1], vals[2], vals[3])
	if rect.Empty() {
		return image.Rectangle{}, fmt.Errorf("-rect %q selects an empty area", spec)
	}
	return rect, nil
}

func (e *editCmd) Run() error {
	doc, err := e.loadDocument()
	if err != nil {
		return err
	}

	hist, cleanup := e.newHistory(doc)
	defer cleanup()

	opts := []editor.Option{
		editor.WithOutput(e.output),
		editor.WithHistory(hist),
		editor.WithNotifier(e.notifier),
	}
	if e.activeTheme != nil {
		opts = append(opts, editor.WithTheme(e.activeTheme))
	}
	ed := editor.New(doc, opts...)
	// Seed the baseline snapshot so the first edit can be undone back to the
	// opening state.
	if hist != nil {
		hist.CaptureNow()
	}
	runEditorFn(ed)
	return nil
}

func (e *editCmd) loadDocument() (*document.Document, error) {
	switch {
	case e.capture:
		img, err := captureScreenFn(e.display, capture.Options{})
		if err != nil {
			return nil, fmt.Errorf("failed to capture screen: %w", err)
		}
		detail := e.display
		if detail == "" {
			detail = "screen"
		}
		e.notifyCapture(detail, img)
		return document.FromImage(img)
	case e.region:
		img, err := captureRegionFn(capture.Options{})
		if err != nil {
			return nil, fmt.Errorf("failed to capture region: %w", err)
		}
		e.notifyCapture("selected region", img)
		return document.FromImage(img)
	case e.rectSpec != "":
		img, err := captureRectFn(e.rect, capture.Options{})
		if err != nil {
			return nil, fmt.Errorf("failed to capture rectangle %s: %w", e.rectSpec, err)
		}
		e.notifyCapture(fmt.Sprintf("rectangle %s", e.rectSpec), img)
		return document.FromImage(img)
	case e.fromClipboard:
		img, err := readClipboardFn()
		if err != nil {
			return nil, fmt.Errorf("read clipboard image: %w", err)
		}
		return document.FromImage(img)
	case e.file != "":
		f, err := os.Open(e.file)
		if err != nil {
			return nil, err
		}
		img, err := png.Decode(f)
		if err != nil {
			if cerr := f.Close(); cerr != nil {
				log.Printf("error closing %q: %v", e.file, cerr)
			}
			return nil, fmt.Errorf("decode %s: %w", e.file, err)
		}
		if err := f.Close(); err != nil {
			log.Printf("error closing %q: %v", e.file, err)
		}
		return document.FromImage(img)
	default:
		return document.New(defaultCanvasWidth, defaultCanvasHeight), nil
	}
}

// newHistory builds the undo engine from the [history] config section. A
// store that fails to open degrades to a cache-only session rather than
// refusing to start.
func (e *editCmd) newHistory(doc *document.Document) (*history.Engine, func()) {
	if e.noHistory {
		return nil, func() {}
	}

	var opts []history.Option
	cfg := e.config.History
	if cfg.MaxDepth > 0 {
		opts = append(opts, history.WithMaxDepth(cfg.MaxDepth))
	}
	if cfg.DebounceMs > 0 {
		opts = append(opts, history.WithDebounce(time.Duration(cfg.DebounceMs)*time.Millisecond))
	}
	if cfg.SettleMs > 0 {
		opts = append(opts, history.WithSettle(time.Duration(cfg.SettleMs)*time.Millisecond))
	}
	if cfg.CacheSize > 0 {
		opts = append(opts, history.WithCacheSize(cfg.CacheSize))
	}

	storePath := cfg.StorePath
	if storePath == "" {
		var err error
		storePath, err = snapstore.DefaultPath()
		if err != nil {
			log.Printf("history: no store path available, using in-memory history: %v", err)
			storePath = ""
		}
	}
	var store *snapstore.SQLite
	if storePath != "" {
		var err error
		store, err = snapstore.Open(storePath)
		if err != nil {
			log.Printf("history: open store %s: %v; using in-memory history", storePath, err)
		} else {
			opts = append(opts, history.WithStore(store))
		}
	}

	eng := history.New(doc, opts...)
	cleanup := func() {
		eng.Close()
		if store != nil {
			if err := store.Close(); err != nil {
				log.Printf("history: close store: %v", err)
			}
		}
	}
	return eng, cleanup
}
