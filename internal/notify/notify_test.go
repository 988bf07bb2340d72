package notify

import (
	"image"
	"os"
	"testing"

	"github.com/example/inkmark/internal/platform"
)

type sentNotification struct {
	title string
	body  string
	opts  platform.Options
}

func interceptNotifications(t *testing.T) *[]sentNotification {
	t.Helper()
	original := notifyFn
	var sent []sentNotification
	notifyFn = func(title, body string, opts platform.Options) error {
		sent = append(sent, sentNotification{title: title, body: body, opts: opts})
		return nil
	}
	t.Cleanup(func() { notifyFn = original })
	return &sent
}

func TestCaptureSendsPreviewNotification(t *testing.T) {
	sent := interceptNotifications(t)

	n := New(DefaultPreferences())
	n.Enable(EventCapture, true)
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	n.Capture("screen", img)

	if len(*sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(*sent))
	}
	got := (*sent)[0]
	if got.title != "Inkmark" {
		t.Fatalf("title = %q, want %q", got.title, "Inkmark")
	}
	if got.body != "Captured screen" {
		t.Fatalf("body = %q, want %q", got.body, "Captured screen")
	}
	if got.opts.IconPath == "" {
		t.Fatal("capture notification carried no preview icon")
	}
	// The preview only outlives the dispatch; it must be gone by now.
	if _, err := os.Stat(got.opts.IconPath); !os.IsNotExist(err) {
		t.Fatalf("preview %s survived dispatch (stat err %v)", got.opts.IconPath, err)
	}
}

func TestCaptureWithoutImageSkipsPreview(t *testing.T) {
	sent := interceptNotifications(t)

	n := New(DefaultPreferences())
	n.Enable(EventCapture, true)
	n.Capture("selected region", nil)

	if len(*sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(*sent))
	}
	if got := (*sent)[0]; got.opts.IconPath != "" {
		t.Fatalf("expected no preview icon, got %q", got.opts.IconPath)
	}
}

func TestDisabledEventsStaySilent(t *testing.T) {
	sent := interceptNotifications(t)

	n := New(DefaultPreferences())
	n.Capture("screen", nil)
	n.Save("out.png")
	n.Copy("image")

	if len(*sent) != 0 {
		t.Fatalf("sent %d notifications with every event disabled", len(*sent))
	}
}

func TestSaveUsesWrittenFileAsIcon(t *testing.T) {
	sent := interceptNotifications(t)

	f, err := os.CreateTemp(t.TempDir(), "out-*.png")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	path := f.Name()
	f.Close()

	n := New(DefaultPreferences())
	n.Enable(EventSave, true)
	n.Save(path)

	if len(*sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(*sent))
	}
	if got := (*sent)[0]; got.opts.IconPath != path {
		t.Fatalf("icon = %q, want %q", got.opts.IconPath, path)
	}
}
