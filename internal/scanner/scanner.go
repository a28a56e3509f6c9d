// Package scanner reads QR payloads from a camera. The camera is a scoped resource: it is
// opened by Scan and released on every way out of it.
package scanner

import (
	"context"
	"errors"
	"image"
	"io"
	"time"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
	"go.uber.org/zap"

	"checkclass/internal/domain"
)

// Camera produces frames between Open and Close. Frame returns io.EOF when the source has no
// more frames.
type Camera interface {
	Open(ctx context.Context) error
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// ErrNoCode means a frame holds no readable QR code.
var ErrNoCode = errors.New("no qr code in frame")

// Decoder extracts a QR payload from a frame.
type Decoder interface {
	Decode(img image.Image) (string, error)
}

// ZXing decodes QR codes with gozxing.
type ZXing struct{}

func (ZXing) Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", err
	}
	res, err := zxingqr.NewQRCodeReader().Decode(bmp, map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	})
	if err != nil {
		return "", ErrNoCode
	}
	return res.GetText(), nil
}

// Scanner reads frames until one decodes.
type Scanner struct {
	Camera  Camera
	Decoder Decoder
	// Interval is the pause between undecodable frames.
	Interval time.Duration
	Log      *zap.Logger
}

// Scan opens the camera and returns the first decoded payload. The camera is closed before
// Scan returns or panics. Cancelling ctx stops capture only.
func (s *Scanner) Scan(ctx context.Context) (payload string, err error) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	dec := s.Decoder
	if dec == nil {
		dec = ZXing{}
	}

	if err := s.Camera.Open(ctx); err != nil {
		return "", domain.CameraAccess(err)
	}
	defer func() {
		if cerr := s.Camera.Close(); cerr != nil {
			log.Warn("camera close failed", zap.Error(cerr))
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		frame, err := s.Camera.Frame(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return "", domain.Invalid("no QR code found")
		case err != nil:
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", domain.CameraAccess(err)
		}

		text, err := dec.Decode(frame)
		if err == nil && text != "" {
			log.Debug("qr decoded", zap.Int("len", len(text)))
			return text, nil
		}
		if s.Interval > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(s.Interval):
			}
		}
	}
}
