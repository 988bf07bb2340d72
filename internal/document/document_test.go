package document

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

func testImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestSerializeRestoreRoundTrip(t *testing.T) {
	d, err := FromImage(testImage(40, 30, color.RGBA{200, 10, 10, 255}))
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	d.Append(Object{
		Kind:   KindRect,
		Points: []image.Point{{X: 2, Y: 3}, {X: 20, Y: 15}},
		Color:  color.RGBA{255, 0, 0, 255},
		Width:  2,
	})
	d.Append(Object{
		Kind:   KindText,
		Points: []image.Point{{X: 5, Y: 25}},
		Color:  color.RGBA{0, 0, 255, 255},
		Text:   "note",
		Size:   18,
	})

	blob, err := d.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	restored := New(1, 1)
	if err := restored.Restore(blob); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	w, h := restored.Size()
	if w != 40 || h != 30 {
		t.Errorf("restored size = %dx%d, want 40x30", w, h)
	}
	objs := restored.Objects()
	if len(objs) != 2 {
		t.Fatalf("restored %d objects, want 2", len(objs))
	}
	if objs[1].Text != "note" {
		t.Errorf("restored text = %q, want %q", objs[1].Text, "note")
	}

	again, err := restored.Serialize()
	if err != nil {
		t.Fatalf("re-Serialize: %v", err)
	}
	if !bytes.Equal(blob, again) {
		t.Error("round-tripped blob differs from original; serialization is not canonical")
	}
}

func TestSerializeIsCanonicalForEmptyObjects(t *testing.T) {
	a, err := New(10, 10).Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	fresh := New(10, 10)
	fresh.Append(Object{Kind: KindLine, Points: []image.Point{{X: 0, Y: 0}, {X: 5, Y: 5}}})
	fresh.RemoveLast()
	b, err := fresh.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("empty document blobs differ between nil and emptied object slices")
	}
}

func TestRestoreRejectsGarbageAndKeepsState(t *testing.T) {
	d := New(10, 10)
	d.Append(Object{Kind: KindLine, Points: []image.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}})
	if err := d.Restore([]byte("{not json")); err == nil {
		t.Fatal("Restore of garbage succeeded")
	}
	if got := len(d.Objects()); got != 1 {
		t.Errorf("objects after failed restore = %d, want 1", got)
	}
}

func TestCropShiftsObjectsAndBackground(t *testing.T) {
	d, err := FromImage(testImage(100, 80, color.RGBA{0, 128, 0, 255}))
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	d.Append(Object{Kind: KindRect, Points: []image.Point{{X: 30, Y: 30}, {X: 50, Y: 40}}, Width: 1})

	d.Crop(image.Rect(20, 25, 80, 70))

	w, h := d.Size()
	if w != 60 || h != 45 {
		t.Errorf("cropped size = %dx%d, want 60x45", w, h)
	}
	objs := d.Objects()
	if got := objs[0].Points[0]; got != image.Pt(10, 5) {
		t.Errorf("shifted point = %v, want (10,5)", got)
	}
}

func TestNumberAnnotationsAutoSequence(t *testing.T) {
	d := New(50, 50)
	d.Append(Object{Kind: KindNumber, Points: []image.Point{{X: 10, Y: 10}}, Color: color.RGBA{255, 0, 0, 255}})
	d.Append(Object{Kind: KindNumber, Points: []image.Point{{X: 20, Y: 20}}, Color: color.RGBA{255, 0, 0, 255}})
	objs := d.Objects()
	if objs[0].Number != 1 || objs[1].Number != 2 {
		t.Errorf("numbers = %d,%d, want 1,2", objs[0].Number, objs[1].Number)
	}
	d.RemoveLast()
	if got := d.NextNumber(); got != 2 {
		t.Errorf("NextNumber after removing top badge = %d, want 2", got)
	}
}

func TestOnChangeFiresForMutationsAndRestore(t *testing.T) {
	d := New(20, 20)
	var fired int
	d.OnChange(func() { fired++ })

	d.Append(Object{Kind: KindStroke, Points: []image.Point{{X: 1, Y: 1}}, Width: 1})
	if fired != 1 {
		t.Fatalf("fired = %d after Append, want 1", fired)
	}

	blob, err := d.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if err := d.Restore(blob); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if fired != 2 {
		t.Errorf("fired = %d after Restore, want 2", fired)
	}
}

func TestRenderCompositesBackgroundAndObjects(t *testing.T) {
	d, err := FromImage(testImage(30, 30, color.RGBA{0, 0, 200, 255}))
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	d.Append(Object{
		Kind:   KindLine,
		Points: []image.Point{{X: 0, Y: 15}, {X: 29, Y: 15}},
		Color:  color.RGBA{255, 255, 0, 255},
		Width:  1,
	})
	out := d.Render()
	if out.Bounds() != image.Rect(0, 0, 30, 30) {
		t.Fatalf("render bounds = %v", out.Bounds())
	}
	if got := out.RGBAAt(5, 5); got != (color.RGBA{0, 0, 200, 255}) {
		t.Errorf("background pixel = %v, want blue", got)
	}
	if got := out.RGBAAt(15, 15); got != (color.RGBA{255, 255, 0, 255}) {
		t.Errorf("line pixel = %v, want yellow", got)
	}
}
