package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
)

// FileCamera serves a single still image as its only frame. It stands in for a device camera
// when the code arrives as a screenshot or photo.
type FileCamera struct {
	Path string

	img  image.Image
	sent bool
	open bool
}

func (f *FileCamera) Open(context.Context) error {
	if f.open {
		return errors.New("camera already open")
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return err
	}
	defer fh.Close()
	img, _, err := image.Decode(fh)
	if err != nil {
		return fmt.Errorf("decode %s: %w", f.Path, err)
	}
	f.img, f.sent, f.open = img, false, true
	return nil
}

func (f *FileCamera) Frame(context.Context) (image.Image, error) {
	if !f.open {
		return nil, errors.New("camera not open")
	}
	if f.sent {
		return nil, io.EOF
	}
	f.sent = true
	return f.img, nil
}

func (f *FileCamera) Close() error {
	f.open = false
	f.img = nil
	return nil
}
