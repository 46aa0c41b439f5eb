package capture

import (
	"context"
	"image"
	"io"
	"testing"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

// frameListSource yields a fixed sequence of frames, then io.EOF.
type frameListSource struct {
	frames []image.Image
	next   int
}

func (s *frameListSource) NextFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	frame := s.frames[s.next]
	s.next++
	return frame, nil
}

// blockingSource never produces a frame, like a camera pointed at nothing.
type blockingSource struct{}

func (blockingSource) NextFrame(ctx context.Context) (image.Image, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func qrFrame(t *testing.T, text string) image.Image {
	t.Helper()
	qr, err := qrcode.New(text, qrcode.Medium)
	require.NoError(t, err)
	return qr.Image(256)
}

func noiseFrame() image.Image {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	return img
}

func TestScanDecodesFirstReadableFrame(t *testing.T) {
	src := &frameListSource{frames: []image.Image{
		noiseFrame(),
		qrFrame(t, testAddress),
		qrFrame(t, "never reached"),
	}}

	got, err := NewScanner().Scan(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, testAddress, got)
	assert.Equal(t, 2, src.next, "capture stops after the first successful decode")
}

func TestScanSkipsUndecodableFrames(t *testing.T) {
	src := &frameListSource{frames: []image.Image{
		noiseFrame(),
		noiseFrame(),
		qrFrame(t, testAddress),
	}}

	got, err := NewScanner().Scan(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, testAddress, got)
}

func TestScanSourceExhaustion(t *testing.T) {
	src := &frameListSource{frames: []image.Image{noiseFrame()}}

	_, err := NewScanner().Scan(context.Background(), src)
	assert.ErrorIs(t, err, ErrSourceClosed)
}

func TestCancelStopsScan(t *testing.T) {
	scanner := NewScanner()

	done := make(chan error, 1)
	go func() {
		_, err := scanner.Scan(context.Background(), blockingSource{})
		done <- err
	}()

	// Give the scan a moment to start before cancelling.
	time.Sleep(20 * time.Millisecond)
	scanner.Cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scan did not stop after Cancel")
	}
}

func TestCancelIsSafeWhenIdle(t *testing.T) {
	scanner := NewScanner()
	scanner.Cancel()
	scanner.Cancel()
}
