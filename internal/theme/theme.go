// Package theme holds the color palette the editor chrome draws with.
// Palettes come from embedded definitions, user or system theme files, or
// [theme.*] sections in the config file; every source fills in a copy of
// the default palette so partial definitions stay usable.
package theme

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Theme is a named set of UI colors.
type Theme struct {
	Name string

	Background color.RGBA // window area behind the canvas
	Foreground color.RGBA // primary text

	ToolbarBackground color.RGBA
	TabBackground     color.RGBA
	TabActive         color.RGBA
	TabHover          color.RGBA
	TabText           color.RGBA
	TabTextActive     color.RGBA
	TabTextHover      color.RGBA

	ButtonBackground      color.RGBA
	ButtonBackgroundHover color.RGBA
	ButtonBackgroundPress color.RGBA
	ButtonText            color.RGBA
	ButtonTextHover       color.RGBA
	ButtonTextPress       color.RGBA
	ButtonBorder          color.RGBA

	CheckerLight color.RGBA // transparency checkerboard squares
	CheckerDark  color.RGBA
}

// fields maps definition keys to the slots they color. Lookup through
// SetField is case-insensitive.
func (t *Theme) fields() map[string]*color.RGBA {
	return map[string]*color.RGBA{
		"Background":            &t.Background,
		"Foreground":            &t.Foreground,
		"ToolbarBackground":     &t.ToolbarBackground,
		"TabBackground":         &t.TabBackground,
		"TabActive":             &t.TabActive,
		"TabHover":              &t.TabHover,
		"TabText":               &t.TabText,
		"TabTextActive":         &t.TabTextActive,
		"TabTextHover":          &t.TabTextHover,
		"ButtonBackground":      &t.ButtonBackground,
		"ButtonBackgroundHover": &t.ButtonBackgroundHover,
		"ButtonBackgroundPress": &t.ButtonBackgroundPress,
		"ButtonText":            &t.ButtonText,
		"ButtonTextHover":       &t.ButtonTextHover,
		"ButtonTextPress":       &t.ButtonTextPress,
		"ButtonBorder":          &t.ButtonBorder,
		"CheckerLight":          &t.CheckerLight,
		"CheckerDark":           &t.CheckerDark,
	}
}

// SetField assigns one named color from its hex form. The key is matched
// case-insensitively; unknown keys are ignored so older binaries can read
// newer theme files.
func SetField(t *Theme, key, value string) error {
	if strings.EqualFold(key, "Name") {
		t.Name = value
		return nil
	}
	for name, slot := range t.fields() {
		if strings.EqualFold(name, key) {
			col, err := ParseColor(value)
			if err != nil {
				return fmt.Errorf("theme key %s: %w", name, err)
			}
			*slot = col
			return nil
		}
	}
	return nil
}

// ParseColor reads a #RRGGBB or #RRGGBBAA hex color.
func ParseColor(s string) (color.RGBA, error) {
	hex, ok := strings.CutPrefix(strings.TrimSpace(s), "#")
	if !ok {
		return color.RGBA{}, fmt.Errorf("color %q must start with #", s)
	}
	if len(hex) != 6 && len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("color %q must be #RRGGBB or #RRGGBBAA", s)
	}
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xFF
	}
	return color.RGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

// Default returns the built-in "paper" palette, a warm light theme the
// other sources override.
func Default() *Theme {
	ink := color.RGBA{28, 27, 26, 255}
	return &Theme{
		Name:                  "paper",
		Background:            color.RGBA{234, 231, 222, 255},
		Foreground:            ink,
		ToolbarBackground:     color.RGBA{226, 222, 212, 255},
		TabBackground:         color.RGBA{226, 222, 212, 255},
		TabActive:             color.RGBA{210, 205, 193, 255},
		TabHover:              color.RGBA{218, 214, 203, 255},
		TabText:               ink,
		TabTextActive:         ink,
		TabTextHover:          ink,
		ButtonBackground:      color.RGBA{214, 209, 198, 255},
		ButtonBackgroundHover: color.RGBA{199, 193, 180, 255},
		ButtonBackgroundPress: color.RGBA{173, 166, 152, 255},
		ButtonText:            ink,
		ButtonTextHover:       ink,
		ButtonTextPress:       ink,
		ButtonBorder:          color.RGBA{90, 86, 79, 255},
		CheckerLight:          color.RGBA{230, 227, 219, 255},
		CheckerDark:           color.RGBA{205, 201, 191, 255},
	}
}
