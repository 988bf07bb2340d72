package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
)

// envelope is the wire form of a document. Field order is fixed so that
// two documents with equal content serialize to byte-identical blobs,
// which snapshot deduplication relies on.
type envelope struct {
	Objects    []Object    `json:"objects"`
	Background *Background `json:"background"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	NextNumber int         `json:"nextNumber"`
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode background: %w", err)
	}
	return buf.Bytes(), nil
}

// Serialize renders the document to its canonical JSON form.
func (d *Document) Serialize() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	env := envelope{
		Objects:    d.objects,
		Background: d.background,
		Width:      d.width,
		Height:     d.height,
		NextNumber: d.nextNumber,
	}
	if env.Objects == nil {
		env.Objects = []Object{}
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	return data, nil
}

// Restore replaces the document state with a previously serialized blob
// and notifies change listeners. On any error the document is unchanged.
func (d *Document) Restore(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("restore document: %w", err)
	}
	var bgImage image.Image
	if env.Background != nil && len(env.Background.ImageData) > 0 {
		img, err := png.Decode(bytes.NewReader(env.Background.ImageData))
		if err != nil {
			return fmt.Errorf("restore background: %w", err)
		}
		bgImage = img
	}
	d.mu.Lock()
	d.width = env.Width
	d.height = env.Height
	d.background = env.Background
	d.bgImage = bgImage
	d.objects = env.Objects
	if d.objects == nil {
		d.objects = []Object{}
	}
	d.nextNumber = env.NextNumber
	if d.nextNumber < 1 {
		d.nextNumber = 1
	}
	d.mu.Unlock()
	d.notify()
	return nil
}
