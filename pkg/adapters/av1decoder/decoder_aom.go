//go:build aom

package av1decoder

/*
#cgo pkg-config: aom
#include <aom/aom_decoder.h>
#include <aom/aomdx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_iface_t* get_av1_decoder_interface() {
    return aom_codec_av1_dx();
}

// Wrapper for aom_codec_dec_init
static aom_codec_err_t init_decoder(aom_codec_ctx_t *ctx, aom_codec_iface_t *iface) {
    return aom_codec_dec_init(ctx, iface, NULL, 0);
}

// Get image plane data
static unsigned char* get_plane(aom_image_t *img, int plane) {
    return img->planes[plane];
}

static int get_stride(aom_image_t *img, int plane) {
    return img->stride[plane];
}

static unsigned int get_width(aom_image_t *img) {
    return img->d_w;
}

static unsigned int get_height(aom_image_t *img) {
    return img->d_h;
}
*/
import "C"

import (
	"fmt"
	"image"
	"time"
	"unsafe"

	"github.com/user/frameprocessor/pkg/codec"
	"github.com/user/frameprocessor/pkg/ports"
)

const available = true

var newBackend codec.Factory = func() ports.FrameDecoder { return New() }

// Decoder implements AV1 video decoding using libaom.
type Decoder struct {
	codec      *C.aom_codec_ctx_t
	configOBUs []byte
}

// New creates a new AV1 decoder.
func New() *Decoder {
	return &Decoder{}
}

// Configure initializes libaom. The track's configuration OBUs are fed
// ahead of the first access unit.
func (d *Decoder) Configure(track ports.Track) error {
	if d.codec != nil {
		return fmt.Errorf("av1decoder: already configured")
	}

	d.codec = (*C.aom_codec_ctx_t)(C.malloc(C.sizeof_aom_codec_ctx_t))
	if d.codec == nil {
		return fmt.Errorf("failed to allocate decoder context")
	}
	C.memset(unsafe.Pointer(d.codec), 0, C.sizeof_aom_codec_ctx_t)

	iface := C.get_av1_decoder_interface()
	if res := C.init_decoder(d.codec, iface); res != C.AOM_CODEC_OK {
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
		return fmt.Errorf("failed to initialize decoder: %d", res)
	}

	d.configOBUs = append([]byte(nil), track.CodecConfig...)
	return nil
}

// Decode decodes one temporal unit. A nil image means libaom produced no
// displayable frame for it.
func (d *Decoder) Decode(data []byte, pts time.Duration) (image.Image, error) {
	if d.codec == nil {
		return nil, ErrNotInitialized
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame data", ErrDecodeFailed)
	}

	if len(d.configOBUs) > 0 {
		data = append(d.configOBUs, data...)
		d.configOBUs = nil
	}

	res := C.aom_codec_decode(
		d.codec,
		(*C.uint8_t)(unsafe.Pointer(&data[0])),
		C.size_t(len(data)),
		nil,
	)
	if res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("%w: libaom error %d at %v", ErrDecodeFailed, res, pts)
	}

	var iter C.aom_codec_iter_t
	img := C.aom_codec_get_frame(d.codec, &iter)
	if img == nil {
		return nil, nil
	}
	return d.yuvToRGBA(img), nil
}

// Flush drains frames libaom still holds after the last access unit.
func (d *Decoder) Flush() ([]codec.FlushedFrame, error) {
	if d.codec == nil {
		return nil, ErrNotInitialized
	}
	if res := C.aom_codec_decode(d.codec, nil, 0, nil); res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("%w: flush error %d", ErrDecodeFailed, res)
	}

	var frames []codec.FlushedFrame
	var iter C.aom_codec_iter_t
	for img := C.aom_codec_get_frame(d.codec, &iter); img != nil; img = C.aom_codec_get_frame(d.codec, &iter) {
		frames = append(frames, codec.FlushedFrame{Image: d.yuvToRGBA(img)})
	}
	return frames, nil
}

// Close releases decoder resources.
func (d *Decoder) Close() {
	if d.codec != nil {
		C.aom_codec_destroy(d.codec)
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
	}
}

var (
	_ ports.FrameDecoder = (*Decoder)(nil)
	_ codec.Flusher      = (*Decoder)(nil)
)

// yuvToRGBA converts YUV420 image to RGBA.
func (d *Decoder) yuvToRGBA(img *C.aom_image_t) *image.RGBA {
	width := int(C.get_width(img))
	height := int(C.get_height(img))

	yPlane := C.get_plane(img, 0)
	uPlane := C.get_plane(img, 1)
	vPlane := C.get_plane(img, 2)

	yStride := int(C.get_stride(img, 0))
	uStride := int(C.get_stride(img, 1))
	vStride := int(C.get_stride(img, 2))

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			yIdx := y*yStride + x
			uIdx := (y/2)*uStride + (x / 2)
			vIdx := (y/2)*vStride + (x / 2)

			yVal := int(*(*C.uchar)(unsafe.Pointer(uintptr(unsafe.Pointer(yPlane)) + uintptr(yIdx))))
			uVal := int(*(*C.uchar)(unsafe.Pointer(uintptr(unsafe.Pointer(uPlane)) + uintptr(uIdx))))
			vVal := int(*(*C.uchar)(unsafe.Pointer(uintptr(unsafe.Pointer(vPlane)) + uintptr(vIdx))))

			// YUV to RGB conversion
			c := yVal - 16
			d := uVal - 128
			e := vVal - 128

			r := clamp((298*c + 409*e + 128) >> 8)
			g := clamp((298*c - 100*d - 208*e + 128) >> 8)
			b := clamp((298*c + 516*d + 128) >> 8)

			idx := y*rgba.Stride + x*4
			rgba.Pix[idx] = uint8(r)
			rgba.Pix[idx+1] = uint8(g)
			rgba.Pix[idx+2] = uint8(b)
			rgba.Pix[idx+3] = 255
		}
	}

	return rgba
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
