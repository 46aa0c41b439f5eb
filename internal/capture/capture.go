// Package capture turns a stream of camera frames into a single decoded QR
// payload. It is independent of wallet state: the caller hands it an opaque
// frame source and receives the first text a frame decodes to.
package capture

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrSourceClosed reports that the frame source was exhausted before any
// frame decoded.
var ErrSourceClosed = errors.New("capture source closed before a code was found")

// FrameSource yields frames from a camera or video feed. NextFrame blocks
// until a frame is available and returns io.EOF when the feed closes.
type FrameSource interface {
	NextFrame(ctx context.Context) (image.Image, error)
}

// Scanner is a one-shot QR scanner. Scan reads frames until one decodes, then
// stops; per-frame decode misses are expected and never surface as failures.
type Scanner struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewScanner creates an idle scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Scan reads frames from src until one contains a scannable QR code and
// returns its text payload. It returns ErrSourceClosed when the source is
// exhausted, or the context error on cancellation (Cancel included).
func (s *Scanner) Scan(ctx context.Context, src FrameSource) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()

	reader := qrcode.NewQRCodeReader()
	for {
		frame, err := src.NextFrame(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrSourceClosed
			}
			return "", err
		}

		bmp, err := gozxing.NewBinaryBitmapFromImage(frame)
		if err != nil {
			continue
		}
		result, err := reader.Decode(bmp, nil)
		if err != nil {
			// Frames without a readable code are normal.
			continue
		}
		return result.GetText(), nil
	}
}

// Cancel stops a running scan immediately. Safe to call multiple times or
// when no scan is running.
func (s *Scanner) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
