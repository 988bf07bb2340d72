package capture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"
)

func fakeShot(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	return img
}

func stubProviders(t *testing.T, shot *image.RGBA, shotErr error, monitors []MonitorInfo, monErr error) {
	t.Helper()
	prevShot, prevMon := screenshotFn, monitorsFn
	screenshotFn = func(bool, Options) (*image.RGBA, error) {
		return shot, shotErr
	}
	monitorsFn = func() ([]MonitorInfo, error) {
		return monitors, monErr
	}
	t.Cleanup(func() {
		screenshotFn = prevShot
		monitorsFn = prevMon
	})
}

func TestScreenWithoutDisplayReturnsFullShot(t *testing.T) {
	shot := fakeShot(64, 48)
	stubProviders(t, shot, nil, nil, nil)

	img, err := Screen("", Options{})
	if err != nil {
		t.Fatalf("Screen: %v", err)
	}
	if img != shot {
		t.Fatal("expected the uncropped screenshot back")
	}
}

func TestScreenCropsToSelectedMonitor(t *testing.T) {
	monitors := []MonitorInfo{
		{Index: 0, Name: "eDP-1", Rect: image.Rect(0, 0, 32, 48), Primary: true},
		{Index: 1, Name: "HDMI-1", Rect: image.Rect(32, 0, 64, 48)},
	}
	stubProviders(t, fakeShot(64, 48), nil, monitors, nil)

	img, err := Screen("hdmi", Options{})
	if err != nil {
		t.Fatalf("Screen: %v", err)
	}
	if got := img.Bounds(); got != image.Rect(0, 0, 32, 48) {
		t.Fatalf("cropped bounds = %v, want 32x48", got)
	}
	// Pixel (0,0) of the crop was (32,0) in the desktop shot.
	if got := img.RGBAAt(0, 0); got.R != 32 {
		t.Fatalf("crop origin pixel R = %d, want 32", got.R)
	}
}

func TestScreenPropagatesProviderError(t *testing.T) {
	wantErr := errors.New("portal unavailable")
	stubProviders(t, nil, wantErr, nil, nil)

	if _, err := Screen("", Options{}); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestRectRejectsEmptyAndOutOfBoundsRegions(t *testing.T) {
	stubProviders(t, fakeShot(20, 20), nil, nil, nil)

	if _, err := Rect(image.Rectangle{}, Options{}); err == nil {
		t.Fatal("empty region accepted")
	}
	if _, err := Rect(image.Rect(100, 100, 120, 120), Options{}); err == nil {
		t.Fatal("out-of-bounds region accepted")
	}
	img, err := Rect(image.Rect(5, 5, 15, 15), Options{})
	if err != nil {
		t.Fatalf("Rect: %v", err)
	}
	if got := img.Bounds(); got != image.Rect(0, 0, 10, 10) {
		t.Fatalf("bounds = %v, want 10x10", got)
	}
}

func TestFindMonitor(t *testing.T) {
	monitors := []MonitorInfo{
		{Index: 0, Name: "eDP-1", Rect: image.Rect(0, 0, 1920, 1080)},
		{Index: 1, Name: "DP-2", Rect: image.Rect(1920, 0, 3840, 1080), Primary: true},
	}

	tests := []struct {
		selector string
		wantName string
		wantErr  bool
	}{
		{selector: "", wantName: "eDP-1"},
		{selector: "primary", wantName: "DP-2"},
		{selector: "1", wantName: "DP-2"},
		{selector: "#0", wantName: "eDP-1"},
		{selector: "dp-2", wantName: "DP-2"},
		{selector: "5", wantErr: true},
		{selector: "VGA", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("selector=%q", tc.selector), func(t *testing.T) {
			mon, err := FindMonitor(monitors, tc.selector)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", mon)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindMonitor: %v", err)
			}
			if mon.Name != tc.wantName {
				t.Fatalf("monitor = %s, want %s", mon.Name, tc.wantName)
			}
		})
	}
}

func TestListMonitorsRejectsEmptyLayout(t *testing.T) {
	stubProviders(t, nil, nil, nil, nil)
	if _, err := ListMonitors(); !errors.Is(err, errNoMonitors) {
		t.Fatalf("err = %v, want %v", err, errNoMonitors)
	}
}
