// Package imagesink provides a frame sink that writes decoded frames as images.
package imagesink

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"sync"

	"github.com/user/frameprocessor/pkg/ports"
)

// Options configures the image sink.
type Options struct {
	// OutputDir receives frame-NNNN.<ext> files.
	OutputDir string
	// Format selects PNG or JPEG output.
	Format ports.ImageFormat
	// Quality is the JPEG quality (1-100).
	Quality int
	// Overlay draws the frame number and timestamp onto each image.
	Overlay bool
	// ScaleWidth resizes frames to this width, keeping the aspect ratio. Zero keeps the decoded size.
	ScaleWidth int
	// OverlayColor fills the overlay band. Defaults to translucent black.
	OverlayColor color.Color
}

const overlayHeight = 18

// Sink renders each frame and writes it through a ports.FileSystem.
type Sink struct {
	opts     Options
	fs       ports.FileSystem
	renderer ports.Renderer
	logger   ports.Logger

	frames chan ports.Frame
	closed chan struct{}

	mu      sync.Mutex
	written []string
	failed  int
}

// New creates a new image sink.
func New(opts Options, fs ports.FileSystem, renderer ports.Renderer, logger ports.Logger) *Sink {
	return &Sink{
		opts:     opts,
		fs:       fs,
		renderer: renderer,
		logger:   logger.WithComponent("imagesink"),
		frames:   make(chan ports.Frame, 1),
		closed:   make(chan struct{}),
	}
}

// Setup prepares the output directory, reports readiness and then writes
// frames until ctx is done. A frame that fails to write is logged and still
// acknowledged so the run can progress.
func (s *Sink) Setup(ctx context.Context, cfg ports.SurfaceConfig) error {
	defer close(s.closed)

	if err := s.fs.MkdirAll(s.opts.OutputDir); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	s.logger.Debug("Writing up to %d frames to %s", cfg.FrameCap, s.opts.OutputDir)
	cfg.Listener.SetupComplete()

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-s.frames:
			if err := s.save(frame); err != nil {
				s.logger.Warn("Failed to save frame %d: %v", frame.Index, err)
				s.mu.Lock()
				s.failed++
				s.mu.Unlock()
			}
			cfg.Advancer.Advance()
		}
	}
}

// Surface returns the sink itself.
func (s *Sink) Surface() ports.Surface {
	return s
}

// Queue hands a frame to the writer. Frames queued after the writer has
// exited are dropped.
func (s *Sink) Queue(frame ports.Frame) {
	select {
	case s.frames <- frame:
	case <-s.closed:
	}
}

// Release logs a summary of the written frames.
func (s *Sink) Release() error {
	s.mu.Lock()
	written, failed := len(s.written), s.failed
	s.mu.Unlock()

	s.logger.Info("Saved %d frames to %s", written, s.opts.OutputDir)
	if failed > 0 {
		return fmt.Errorf("imagesink: %d frames failed to save", failed)
	}
	return nil
}

// Written returns the paths written so far.
func (s *Sink) Written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.written...)
}

func (s *Sink) save(frame ports.Frame) error {
	if frame.Image == nil {
		return fmt.Errorf("frame %d has no image", frame.Index)
	}

	img := s.render(frame)
	data, err := s.renderer.EncodeImage(img, s.opts.Format, s.opts.Quality)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	path := filepath.Join(s.opts.OutputDir, fmt.Sprintf("frame-%04d.%s", frame.Index, s.opts.Format.Extension()))
	if err := s.fs.WriteFile(path, data); err != nil {
		return err
	}

	s.mu.Lock()
	s.written = append(s.written, path)
	s.mu.Unlock()
	return nil
}

func (s *Sink) render(frame ports.Frame) image.Image {
	img := frame.Image
	if s.opts.ScaleWidth > 0 && img.Bounds().Dx() != s.opts.ScaleWidth {
		img = s.renderer.ResizeImage(img, s.opts.ScaleWidth, 0)
	}
	if !s.opts.Overlay {
		return img
	}

	b := img.Bounds()
	canvas := s.renderer.CreateCanvas(b.Dx(), b.Dy(), color.Black)
	canvas.DrawImage(img, 0, 0)
	band := s.opts.OverlayColor
	if band == nil {
		band = color.RGBA{A: 160}
	}
	canvas.DrawRect(0, b.Dy()-overlayHeight, b.Dx(), overlayHeight, band)
	canvas.DrawText(
		fmt.Sprintf("#%04d  %s", frame.Index, frame.PresentationTime),
		4, b.Dy()-overlayHeight/2,
		ports.TextStyle{Color: color.White, Align: ports.AlignLeft},
	)
	return canvas.ToImage()
}

// Ensure Sink implements ports.FrameSink
var _ ports.FrameSink = (*Sink)(nil)
