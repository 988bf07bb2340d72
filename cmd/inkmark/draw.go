package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/example/inkmark/internal/clipboard"
	"github.com/example/inkmark/internal/document"
	"github.com/example/inkmark/internal/editor"
	"github.com/example/inkmark/internal/render"
)

// drawCmd performs a single markup operation on an image without opening
// the editor window.
type drawCmd struct {
	file          string
	output        string
	fromClipboard bool
	toClipboard   bool
	colorSpec     string
	color         color.RGBA
	width         int
	shape         string
	coords        []int
	text          string
	textSize      float64
	number        int
	numberSize    int
	mosaicBlock   int
	shadow        bool
	*root
	fs *flag.FlagSet
}

func (d *drawCmd) FlagSet() *flag.FlagSet {
	return d.fs
}

func parseColor(s string) (color.RGBA, error) {
	spec := strings.ToLower(strings.TrimSpace(s))
	if spec == "" {
		return color.RGBA{}, fmt.Errorf("color cannot be empty")
	}
	if c, ok := colornames.Map[spec]; ok {
		return c, nil
	}
	for _, entry := range editor.PaletteColors() {
		if strings.EqualFold(entry.Name, s) {
			return entry.Color, nil
		}
	}
	if strings.HasPrefix(spec, "#") && (len(spec) == 7 || len(spec) == 9) {
		r, err := strconv.ParseUint(spec[1:3], 16, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid color %q", s)
		}
		g, err := strconv.ParseUint(spec[3:5], 16, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid color %q", s)
		}
		b, err := strconv.ParseUint(spec[5:7], 16, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid color %q", s)
		}
		a := uint64(255)
		if len(spec) == 9 {
			val, err := strconv.ParseUint(spec[7:9], 16, 8)
			if err != nil {
				return color.RGBA{}, fmt.Errorf("invalid color %q", s)
			}
			a = val
		}
		return color.RGBA{uint8(r), uint8(g), uint8(b), uint8(a)}, nil
	}
	return color.RGBA{}, fmt.Errorf("invalid color %q", s)
}

func parseDrawCmd(args []string, r *root) (*drawCmd, error) {
	fs := flag.NewFlagSet("draw", flag.ExitOnError)
	d := &drawCmd{root: r, fs: fs}
	fs.Usage = usageFunc(d)
	fs.StringVar(&d.file, "file", "", "input image file")
	fs.StringVar(&d.output, "output", "", "output file path (defaults to input file)")
	fs.BoolVar(&d.fromClipboard, "from-clipboard", false, "read the input image from the clipboard")
	fs.BoolVar(&d.toClipboard, "to-clipboard", false, "copy the result to the clipboard")
	fs.StringVar(&d.colorSpec, "color", "red", "stroke or fill color name or hex value")
	fs.IntVar(&d.width, "width", 2, "stroke width in pixels")
	fs.Float64Var(&d.textSize, "text-size", 18, "text size in points")
	fs.IntVar(&d.numberSize, "number-size", 14, "radius of numbered markers in pixels")
	fs.IntVar(&d.mosaicBlock, "mosaic-block", 12, "mosaic block size in pixels")
	fs.BoolVar(&d.shadow, "shadow", false, "composite the result over a drop shadow")

	flagArgs, positionals, err := splitDrawArgs(args)
	if err != nil {
		return nil, err
	}
	if err := fs.Parse(flagArgs); err != nil {
		return nil, err
	}
	if len(positionals) < 1 {
		return nil, &UsageError{of: d}
	}
	d.shape = strings.ToLower(positionals[0])
	remaining := positionals[1:]
	switch d.shape {
	case "line", "arrow", "rect", "circle", "mosaic":
		d.coords, err = expectInts(remaining, 4, d.shape)
	case "number":
		if len(remaining) != 3 {
			return nil, fmt.Errorf("number requires x y value")
		}
		var coords []int
		coords, err = expectInts(remaining, 3, d.shape)
		if err != nil {
			return nil, err
		}
		d.coords = coords[:2]
		d.number = coords[2]
	case "text":
		if len(remaining) < 3 {
			return nil, fmt.Errorf("text requires x y and content")
		}
		d.coords, err = expectInts(remaining[:2], 2, d.shape)
		if err != nil {
			return nil, err
		}
		d.text = strings.Join(remaining[2:], " ")
		if strings.TrimSpace(d.text) == "" {
			return nil, fmt.Errorf("text content cannot be empty")
		}
	default:
		return nil, fmt.Errorf("unsupported shape %q", d.shape)
	}
	if err != nil {
		return nil, err
	}
	d.color, err = parseColor(d.colorSpec)
	if err != nil {
		return nil, err
	}
	if d.fromClipboard {
		if d.output == "" {
			if d.file != "" {
				d.output = d.file
			} else {
				return nil, fmt.Errorf("output file is required when reading from the clipboard")
			}
		}
	} else {
		if d.file == "" {
			return nil, fmt.Errorf("input file is required")
		}
		if d.output == "" {
			d.output = d.file
		}
	}
	if d.width < 1 {
		d.width = 1
	}
	if d.numberSize <= 0 {
		d.numberSize = 14
	}
	if d.textSize <= 0 {
		d.textSize = 18
	}
	if d.mosaicBlock < 2 {
		d.mosaicBlock = 2
	}
	return d, nil
}

var drawFlagNames = map[string]struct{}{
	"file": {}, "output": {}, "from-clipboard": {}, "to-clipboard": {}, "shadow": {},
	"color": {}, "width": {}, "text-size": {}, "number-size": {}, "mosaic-block": {},
}

var drawBoolFlags = map[string]struct{}{
	"from-clipboard": {}, "to-clipboard": {}, "shadow": {},
}

// splitDrawArgs separates flags from the shape and its coordinates so that
// negative coordinates are not mistaken for flags.
func splitDrawArgs(args []string) ([]string, []string, error) {
	var flags []string
	var positionals []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positionals = append(positionals, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			positionals = append(positionals, arg)
			continue
		}
		name := strings.TrimLeft(arg, "-")
		if name == "" {
			positionals = append(positionals, arg)
			continue
		}
		parts := strings.SplitN(name, "=", 2)
		base := strings.ToLower(parts[0])
		if _, ok := drawFlagNames[base]; !ok {
			positionals = append(positionals, arg)
			continue
		}
		// Normalise to single dash form for the flag parser.
		norm := "-" + base
		if len(parts) == 2 {
			flags = append(flags, norm+"="+parts[1])
			continue
		}
		if _, ok := drawBoolFlags[base]; ok {
			flags = append(flags, norm)
			continue
		}
		if i+1 >= len(args) {
			return nil, nil, fmt.Errorf("flag %s requires a value", arg)
		}
		flags = append(flags, norm, args[i+1])
		i++
	}
	return flags, positionals, nil
}

func expectInts(args []string, n int, shape string) ([]int, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s requires %d integer arguments", shape, n)
	}
	vals := make([]int, n)
	for i, raw := range args {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		vals[i] = v
	}
	return vals, nil
}

func (d *drawCmd) Run() error {
	src, err := d.loadSource()
	if err != nil {
		return err
	}
	doc, err := document.FromImage(src)
	if err != nil {
		return err
	}
	doc.Append(d.object())

	out, err := os.Create(d.output)
	if err != nil {
		return err
	}
	rendered := doc.Render()
	if d.shadow {
		rendered = render.ApplyShadow(rendered, render.DefaultShadowOptions()).Image
	}
	if err := png.Encode(out, rendered); err != nil {
		if cerr := out.Close(); cerr != nil {
			log.Printf("error closing %q: %v", d.output, cerr)
		}
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	saved := d.output
	if abs, err := filepath.Abs(d.output); err == nil {
		saved = abs
	}
	fmt.Fprintf(os.Stderr, "saved %s\n", saved)
	if d.root != nil {
		d.root.notifySave(saved)
	}
	if d.toClipboard {
		if err := clipboard.WriteImage(rendered); err != nil {
			return fmt.Errorf("copy PNG to clipboard: %w", err)
		}
		detail := filepath.Base(d.output)
		if detail == "" {
			detail = "image"
		}
		fmt.Fprintf(os.Stderr, "copied %s to clipboard\n", detail)
		if d.root != nil {
			d.root.notifyCopy(detail)
		}
	}
	return nil
}

// object translates the parsed shape arguments into a document annotation.
func (d *drawCmd) object() document.Object {
	obj := document.Object{Color: d.color, Width: d.width}
	switch d.shape {
	case "line":
		obj.Kind = document.KindLine
		obj.Points = []image.Point{{X: d.coords[0], Y: d.coords[1]}, {X: d.coords[2], Y: d.coords[3]}}
	case "arrow":
		obj.Kind = document.KindArrow
		obj.Points = []image.Point{{X: d.coords[0], Y: d.coords[1]}, {X: d.coords[2], Y: d.coords[3]}}
	case "rect":
		obj.Kind = document.KindRect
		obj.Points = []image.Point{{X: d.coords[0], Y: d.coords[1]}, {X: d.coords[2], Y: d.coords[3]}}
	case "circle":
		obj.Kind = document.KindEllipse
		obj.Points = []image.Point{{X: d.coords[0], Y: d.coords[1]}, {X: d.coords[2], Y: d.coords[3]}}
	case "mosaic":
		obj.Kind = document.KindMosaic
		obj.Points = []image.Point{{X: d.coords[0], Y: d.coords[1]}, {X: d.coords[2], Y: d.coords[3]}}
		obj.Block = d.mosaicBlock
	case "number":
		obj.Kind = document.KindNumber
		obj.Points = []image.Point{{X: d.coords[0], Y: d.coords[1]}}
		obj.Number = d.number
		obj.Radius = d.numberSize
	case "text":
		obj.Kind = document.KindText
		obj.Points = []image.Point{{X: d.coords[0], Y: d.coords[1]}}
		obj.Text = d.text
		obj.Size = d.textSize
	}
	return obj
}

func (d *drawCmd) loadSource() (image.Image, error) {
	if d.fromClipboard {
		img, err := readClipboardFn()
		if err != nil {
			return nil, fmt.Errorf("read clipboard image: %w", err)
		}
		return img, nil
	}
	f, err := os.Open(d.file)
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(f)
	if err != nil {
		if cerr := f.Close(); cerr != nil {
			log.Printf("error closing %q: %v", d.file, cerr)
		}
		return nil, err
	}
	if err := f.Close(); err != nil {
		log.Printf("error closing %q: %v", d.file, err)
	}
	return img, nil
}
