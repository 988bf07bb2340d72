package theme

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		spec    string
		want    color.RGBA
		wantErr bool
	}{
		{spec: "#FF8000", want: color.RGBA{255, 128, 0, 255}},
		{spec: "#ff800080", want: color.RGBA{255, 128, 0, 128}},
		{spec: " #010203 ", want: color.RGBA{1, 2, 3, 255}},
		{spec: "FF8000", wantErr: true},
		{spec: "#F80", wantErr: true},
		{spec: "#GGGGGG", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseColor(tc.spec)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseColor(%q) error = %v, wantErr %v", tc.spec, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tc.spec, got, tc.want)
		}
	}
}

func TestParseOverridesOnlyNamedKeys(t *testing.T) {
	def := `Name: midnight
background: #101015
ButtonBorder: #8080FF
// a comment
NotAField: #FFFFFF
`
	th, err := Parse(strings.NewReader(def))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if th.Name != "midnight" {
		t.Fatalf("name = %q, want %q", th.Name, "midnight")
	}
	if want := (color.RGBA{16, 16, 21, 255}); th.Background != want {
		t.Fatalf("background = %v, want %v", th.Background, want)
	}
	if want := (color.RGBA{128, 128, 255, 255}); th.ButtonBorder != want {
		t.Fatalf("button border = %v, want %v", th.ButtonBorder, want)
	}
	if th.Foreground != Default().Foreground {
		t.Fatalf("unnamed key lost its default: %v", th.Foreground)
	}
}

func TestParseRejectsBadColor(t *testing.T) {
	_, err := Parse(strings.NewReader("Background: purple\n"))
	if err == nil {
		t.Fatal("expected error for non-hex color")
	}
}

func TestLoaderFindsEmbeddedThemes(t *testing.T) {
	l := &Loader{}
	for _, name := range []string{"dark", "high_contrast", "hotdog"} {
		th, err := l.Load(name)
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		if th.Name != name {
			t.Errorf("load %s: theme name = %q", name, th.Name)
		}
	}
	if _, err := l.Load("no-such-theme"); err == nil {
		t.Fatal("expected error for unknown theme")
	}
}

func TestLoaderReadsThemeFileByPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mine.theme")
	if err := os.WriteFile(path, []byte("Name: mine\nForeground: #123456\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	th, err := (&Loader{}).Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if th.Name != "mine" {
		t.Fatalf("name = %q, want %q", th.Name, "mine")
	}
	if want := (color.RGBA{0x12, 0x34, 0x56, 255}); th.Foreground != want {
		t.Fatalf("foreground = %v, want %v", th.Foreground, want)
	}
}
