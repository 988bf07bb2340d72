package main

import (
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/example/inkmark/internal/capture"
	"github.com/example/inkmark/internal/config"
)

func TestEditRunCaptureError(t *testing.T) {
	original := captureScreenFn
	sentinel := errors.New("denied")
	captureScreenFn = func(string, capture.Options) (*image.RGBA, error) { return nil, sentinel }
	t.Cleanup(func() { captureScreenFn = original })

	cmd := &editCmd{capture: true, root: &root{program: "inkmark", config: config.New()}}
	if err := cmd.Run(); err == nil {
		t.Fatalf("expected error")
	} else {
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected wrapped error, got %v", err)
		}
		if want := "failed to capture screen"; !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to contain %q, got %v", want, err)
		}
	}
}

func TestEditRunRegionError(t *testing.T) {
	original := captureRegionFn
	sentinel := errors.New("portal dismissed")
	captureRegionFn = func(capture.Options) (*image.RGBA, error) { return nil, sentinel }
	t.Cleanup(func() { captureRegionFn = original })

	cmd := &editCmd{region: true, root: &root{program: "inkmark", config: config.New()}}
	if err := cmd.Run(); err == nil {
		t.Fatalf("expected error")
	} else {
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected wrapped error, got %v", err)
		}
		if want := "failed to capture region"; !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to contain %q, got %v", want, err)
		}
	}
}

func TestEditRunRectCapturesParsedRectangle(t *testing.T) {
	original := captureRectFn
	var got image.Rectangle
	sentinel := errors.New("stop before the window opens")
	captureRectFn = func(rect image.Rectangle, _ capture.Options) (*image.RGBA, error) {
		got = rect
		return nil, sentinel
	}
	t.Cleanup(func() { captureRectFn = original })

	cmd, err := parseEditCmd([]string{"-rect", "30,10,10,20"}, &root{program: "inkmark", config: config.New()})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cmd.Run(); !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if want := image.Rect(10, 10, 30, 20); got != want {
		t.Fatalf("captured rect = %v, want %v", got, want)
	}
}

func TestEditRunClipboardError(t *testing.T) {
	original := readClipboardFn
	sentinel := errors.New("empty clipboard")
	readClipboardFn = func() (image.Image, error) { return nil, sentinel }
	t.Cleanup(func() { readClipboardFn = original })

	cmd := &editCmd{fromClipboard: true, root: &root{program: "inkmark", config: config.New()}}
	if err := cmd.Run(); err == nil {
		t.Fatalf("expected error")
	} else if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestParseEditRejectsConflictingSources(t *testing.T) {
	conflicts := [][]string{
		{"-capture", "-from-clipboard"},
		{"-region", "-capture"},
		{"-rect", "0,0,5,5", "-file", "in.png"},
	}
	for _, args := range conflicts {
		_, err := parseEditCmd(args, nil)
		if err == nil {
			t.Fatalf("expected error for %v", args)
		}
		if want := "mutually exclusive"; !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %q for %v, got %v", want, args, err)
		}
	}
}

func TestParseRectSpec(t *testing.T) {
	tests := []struct {
		spec    string
		want    image.Rectangle
		wantErr bool
	}{
		{spec: "0,0,100,50", want: image.Rect(0, 0, 100, 50)},
		{spec: " 10, 20 ,30,40 ", want: image.Rect(10, 20, 30, 40)},
		{spec: "30,40,10,20", want: image.Rect(10, 20, 30, 40)},
		{spec: "0,0,0,0", wantErr: true},
		{spec: "1,2,3", wantErr: true},
		{spec: "a,b,c,d", wantErr: true},
	}
	for _, tc := range tests {
		got, err := parseRectSpec(tc.spec)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseRectSpec(%q) error = %v, wantErr %v", tc.spec, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("parseRectSpec(%q) = %v, want %v", tc.spec, got, tc.want)
		}
	}
}

func TestParseEditDisplayRequiresCapture(t *testing.T) {
	_, err := parseEditCmd([]string{"-display", "primary"}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if want := "-display requires -capture"; !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error to mention %q, got %v", want, err)
	}
}

func TestParseDrawClipboardRequiresOutput(t *testing.T) {
	_, err := parseDrawCmd([]string{"-from-clipboard", "line", "0", "0", "1", "1"}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if want := "output file is required when reading from the clipboard"; !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error to mention %q, got %v", want, err)
	}
}

func TestParseDrawNegativeCoordinates(t *testing.T) {
	d, err := parseDrawCmd([]string{"-file", "in.png", "line", "-5", "-5", "10", "10"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{-5, -5, 10, 10}
	for i, v := range want {
		if d.coords[i] != v {
			t.Fatalf("coords = %v, want %v", d.coords, want)
		}
	}
}

func TestParseDrawRejectsUnknownShape(t *testing.T) {
	_, err := parseDrawCmd([]string{"-file", "in.png", "scribble", "1", "2"}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if want := `unsupported shape "scribble"`; !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error to mention %q, got %v", want, err)
	}
}

func TestParseDrawTextRequiresContent(t *testing.T) {
	_, err := parseDrawCmd([]string{"-file", "in.png", "text", "5", "5", "   "}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if want := "text content cannot be empty"; !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error to mention %q, got %v", want, err)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"red", false},
		{"Lime", false},
		{"#00FF00", false},
		{"#00ff0080", false},
		{"", true},
		{"#12", true},
		{"notacolor", true},
	}
	for _, tc := range tests {
		_, err := parseColor(tc.spec)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseColor(%q) error = %v, wantErr %v", tc.spec, err, tc.wantErr)
		}
	}
}
