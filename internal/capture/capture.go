// Package capture grabs screen content for annotation. All full-desktop
// grabs go through the XDG desktop portal; monitor geometry for cropping
// comes from RandR where available.
package capture

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"strconv"
	"strings"
)

// Options control what the captured image includes.
type Options struct {
	IncludeCursor      bool
	IncludeDecorations bool
}

// Swapped out in tests.
var (
	screenshotFn = portalScreenshot
	monitorsFn   = platformMonitors
)

var errNoMonitors = errors.New("no monitors available")

// MonitorInfo describes an individual monitor in the display layout.
type MonitorInfo struct {
	Index   int
	Name    string
	Rect    image.Rectangle
	Primary bool
}

// Screen captures the desktop. When a display selector is provided the
// result is cropped to the matching monitor.
func Screen(display string, opts Options) (*image.RGBA, error) {
	img, err := screenshotFn(false, opts)
	if err != nil {
		return nil, err
	}
	if display == "" {
		return img, nil
	}
	monitors, err := ListMonitors()
	if err != nil {
		return nil, err
	}
	monitor, err := FindMonitor(monitors, display)
	if err != nil {
		return nil, err
	}
	return cropToRect(img, monitor.Rect)
}

// Region lets the user pick a region interactively through the portal.
func Region(opts Options) (*image.RGBA, error) {
	return screenshotFn(true, opts)
}

// Rect captures a specific rectangle in global screen coordinates.
func Rect(rect image.Rectangle, opts Options) (*image.RGBA, error) {
	if rect.Empty() {
		return nil, fmt.Errorf("region is empty")
	}
	shot, err := screenshotFn(false, opts)
	if err != nil {
		return nil, err
	}
	return cropToRect(shot, rect)
}

// ListMonitors retrieves the display layout from the platform backend.
func ListMonitors() ([]MonitorInfo, error) {
	monitors, err := monitorsFn()
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		return nil, errNoMonitors
	}
	return monitors, nil
}

// FindMonitor resolves a monitor selector against the provided list.
// Selectors are "primary", an index ("0", "#1"), or a case-insensitive
// name substring.
func FindMonitor(monitors []MonitorInfo, selector string) (MonitorInfo, error) {
	if len(monitors) == 0 {
		return MonitorInfo{}, errNoMonitors
	}
	if selector == "" {
		return monitors[0], nil
	}
	sel := strings.TrimSpace(selector)
	lower := strings.ToLower(sel)
	if lower == "primary" {
		for _, mon := range monitors {
			if mon.Primary {
				return mon, nil
			}
		}
		return monitors[0], nil
	}
	if strings.HasPrefix(lower, "#") {
		lower = lower[1:]
	}
	if idx, err := strconv.Atoi(lower); err == nil {
		if idx < 0 || idx >= len(monitors) {
			return MonitorInfo{}, fmt.Errorf("monitor index %d out of range", idx)
		}
		return monitors[idx], nil
	}
	for _, mon := range monitors {
		if strings.Contains(strings.ToLower(mon.Name), lower) {
			return mon, nil
		}
	}
	return MonitorInfo{}, fmt.Errorf("monitor %q not found", selector)
}

func cropToRect(src *image.RGBA, rect image.Rectangle) (*image.RGBA, error) {
	rect = rect.Intersect(src.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("requested region outside captured image")
	}
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), src, rect.Min, draw.Src)
	return dst, nil
}

// portalScreenshot, loadPNG and platformMonitors are implemented in
// platform-specific files.
