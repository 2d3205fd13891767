//go:build astiav

package avdecoder

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/asticode/go-astiav"

	"github.com/user/frameprocessor/pkg/adapters/codecdetect"
	"github.com/user/frameprocessor/pkg/codec"
	"github.com/user/frameprocessor/pkg/ports"
)

const available = true

var newBackend codec.Factory = func() ports.FrameDecoder { return New() }

var codecIDs = map[string]astiav.CodecID{
	codecdetect.MIMEAVC:  astiav.CodecIDH264,
	codecdetect.MIMEHEVC: astiav.CodecIDHevc,
	codecdetect.MIMEAV1:  astiav.CodecIDAv1,
	codecdetect.MIMEVP9:  astiav.CodecIDVp9,
}

// Decoder decodes access units with libavcodec.
type Decoder struct {
	codecCtx *astiav.CodecContext
	packet   *astiav.Packet
	frame    *astiav.Frame
}

// New creates a new libav decoder.
func New() *Decoder {
	return &Decoder{}
}

// Configure opens a libavcodec decoder for the track's codec.
func (d *Decoder) Configure(track ports.Track) error {
	id, ok := codecIDs[track.MIME]
	if !ok {
		return fmt.Errorf("%w for %s", ErrNoCodec, track.MIME)
	}
	c := astiav.FindDecoder(id)
	if c == nil {
		return fmt.Errorf("%w for %s", ErrNoCodec, track.MIME)
	}

	codecCtx := astiav.AllocCodecContext(c)
	if codecCtx == nil {
		return errors.New("avdecoder: codec context is nil")
	}
	codecCtx.SetWidth(track.Width)
	codecCtx.SetHeight(track.Height)
	if len(track.CodecConfig) > 0 {
		if err := codecCtx.SetExtraData(track.CodecConfig); err != nil {
			codecCtx.Free()
			return fmt.Errorf("set extradata: %w", err)
		}
	}
	if err := codecCtx.Open(c, nil); err != nil {
		codecCtx.Free()
		return fmt.Errorf("open %s decoder: %w", c.Name(), err)
	}

	d.codecCtx = codecCtx
	d.packet = astiav.AllocPacket()
	d.frame = astiav.AllocFrame()
	return nil
}

// Decode sends one access unit and returns the first frame libavcodec
// releases for it, if any.
func (d *Decoder) Decode(data []byte, pts time.Duration) (image.Image, error) {
	if d.codecCtx == nil {
		return nil, ErrNotConfigured
	}

	if err := d.packet.FromData(data); err != nil {
		return nil, fmt.Errorf("packet from data: %w", err)
	}
	d.packet.SetPts(pts.Microseconds())
	defer d.packet.Unref()

	if err := d.codecCtx.SendPacket(d.packet); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return nil, fmt.Errorf("send packet: %w", err)
	}
	img, _, err := d.receive()
	return img, err
}

// Flush drains frames libavcodec still holds after the last access unit.
func (d *Decoder) Flush() ([]codec.FlushedFrame, error) {
	if d.codecCtx == nil {
		return nil, ErrNotConfigured
	}
	if err := d.codecCtx.SendPacket(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
		return nil, fmt.Errorf("send flush packet: %w", err)
	}

	var frames []codec.FlushedFrame
	for {
		img, pts, err := d.receive()
		if err != nil {
			return frames, err
		}
		if img == nil {
			return frames, nil
		}
		frames = append(frames, codec.FlushedFrame{Image: img, PresentationTime: pts})
	}
}

// receive returns a nil image when libavcodec needs more input.
func (d *Decoder) receive() (image.Image, time.Duration, error) {
	if err := d.codecCtx.ReceiveFrame(d.frame); err != nil {
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("receive frame: %w", err)
	}
	defer d.frame.Unref()

	pts := time.Duration(d.frame.Pts()) * time.Microsecond
	img, err := d.frame.Data().GuessImageFormat()
	if err != nil {
		return nil, pts, fmt.Errorf("guess image format: %w", err)
	}
	if err := d.frame.Data().ToImage(img); err != nil {
		return nil, pts, fmt.Errorf("frame to image: %w", err)
	}
	return img, pts, nil
}

// Close releases libav resources. Safe to call more than once.
func (d *Decoder) Close() {
	if d.frame != nil {
		d.frame.Free()
		d.frame = nil
	}
	if d.packet != nil {
		d.packet.Free()
		d.packet = nil
	}
	if d.codecCtx != nil {
		d.codecCtx.Free()
		d.codecCtx = nil
	}
}

var (
	_ ports.FrameDecoder = (*Decoder)(nil)
	_ codec.Flusher      = (*Decoder)(nil)
)
