// Package mp4test builds small fragmented MP4 files for tests.
package mp4test

import (
	"bytes"
	"fmt"

	"github.com/Eyevinn/mp4ff/aac"
	"github.com/Eyevinn/mp4ff/av1"
	"github.com/Eyevinn/mp4ff/mp4"
)

// Options describes the file to build.
type Options struct {
	Width      int
	Height     int
	FPS        int
	Frames     int  // number of video samples
	VideoTrack bool // false builds an audio-only file
	AudioFirst bool // add an audio track ahead of the video track

	BaseDecodeTime uint64 // tfdt of the first video sample, in track ticks
}

// DefaultOptions returns a 10-frame 16x16 video file at 30 fps.
func DefaultOptions() Options {
	return Options{
		Width:      16,
		Height:     16,
		FPS:        30,
		Frames:     10,
		VideoTrack: true,
	}
}

// SampleData returns the payload written for sample i.
func SampleData(i int) []byte {
	return []byte{0x12, 0x00, byte(i), byte(i >> 8), 0xAB, 0xCD}
}

// Timescale returns the video track timescale used for the given frame rate.
func Timescale(fps int) uint32 {
	return uint32(fps * 1000)
}

// Build returns the encoded file.
func Build(opts Options) ([]byte, error) {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	timescale := Timescale(opts.FPS)

	init := mp4.CreateEmptyInit()

	nextID := uint32(1)
	if opts.AudioFirst || !opts.VideoTrack {
		init.AddEmptyTrack(48000, "audio", "en")
		trak := init.Moov.Traks[len(init.Moov.Traks)-1]
		if err := trak.SetAACDescriptor(aac.AAClc, 48000); err != nil {
			return nil, fmt.Errorf("set aac descriptor: %w", err)
		}
		nextID++
	}

	var videoID uint32
	if opts.VideoTrack {
		init.AddEmptyTrack(timescale, "video", "und")
		trak := init.Moov.Traks[len(init.Moov.Traks)-1]
		av1C := &mp4.Av1CBox{
			CodecConfRec: av1.CodecConfRec{
				Version:            1,
				ChromaSubsamplingX: 1,
				ChromaSubsamplingY: 1,
			},
		}
		av01 := mp4.CreateVisualSampleEntryBox("av01", uint16(opts.Width), uint16(opts.Height), av1C)
		trak.Mdia.Minf.Stbl.Stsd.AddChild(av01)
		trak.Tkhd.Width = mp4.Fixed32(opts.Width << 16)
		trak.Tkhd.Height = mp4.Fixed32(opts.Height << 16)
		videoID = nextID
	}

	var buf bytes.Buffer
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso6", "av01", "mp41"})
	if err := ftyp.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode moov: %w", err)
	}

	if !opts.VideoTrack || opts.Frames == 0 {
		return buf.Bytes(), nil
	}

	frag, err := mp4.CreateFragment(1, videoID)
	if err != nil {
		return nil, fmt.Errorf("create fragment: %w", err)
	}

	dur := timescale / uint32(opts.FPS)
	for i := 0; i < opts.Frames; i++ {
		data := SampleData(i)
		flags := mp4.NonSyncSampleFlags
		if i == 0 {
			flags = mp4.SyncSampleFlags
		}
		frag.AddFullSample(mp4.FullSample{
			Sample: mp4.Sample{
				Flags: flags,
				Size:  uint32(len(data)),
				Dur:   dur,
			},
			DecodeTime: opts.BaseDecodeTime + uint64(i)*uint64(dur),
			Data:       data,
		})
	}

	if err := frag.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode fragment: %w", err)
	}
	return buf.Bytes(), nil
}
