// Package mp4source provides a sample source that demuxes MP4 files with mp4ff.
package mp4source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/frameprocessor/pkg/adapters/codecdetect"
	"github.com/user/frameprocessor/pkg/ports"
)

// ErrNoTrackSelected is returned when samples are read before a track is selected.
var ErrNoTrackSelected = errors.New("mp4source: no track selected")

// Source implements ports.SampleSource for fragmented and progressive MP4.
type Source struct {
	mu sync.Mutex

	reader io.ReadSeeker
	closer io.Closer
	file   *mp4.File
	logger ports.Logger

	tracks []trackEntry

	selected *trackEntry
	samples  []sampleRef
	cursor   int
	closed   bool
}

type trackEntry struct {
	desc ports.Track
	trak *mp4.TrakBox
	trex *mp4.TrexBox
}

// sampleRef locates one sample. Fragmented samples keep a slice into the
// parsed mdat; progressive samples are read from the file on demand.
type sampleRef struct {
	data     []byte
	offset   int64
	size     uint32
	dts      uint64
	dur      uint32
	keyframe bool
}

// Open opens and parses an MP4 file.
func Open(path string, logger ports.Logger) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ports.ErrIOFailure, path, err)
	}

	s, err := OpenReader(f, logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// OpenReader parses MP4 data from an io.ReadSeeker.
func OpenReader(reader io.ReadSeeker, logger ports.Logger) (*Source, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: decode mp4: %w", ports.ErrIOFailure, err)
	}

	s := &Source{
		reader: reader,
		file:   mp4File,
		logger: logger.WithComponent("mp4source"),
	}
	s.tracks = s.describeTracks()
	s.logger.Debug("Parsed MP4 with %d tracks (fragmented: %t)", len(s.tracks), mp4File.IsFragmented())

	return s, nil
}

func (s *Source) moov() *mp4.MoovBox {
	if s.file.Moov != nil {
		return s.file.Moov
	}
	if s.file.Init != nil {
		return s.file.Init.Moov
	}
	return nil
}

func (s *Source) describeTracks() []trackEntry {
	moov := s.moov()
	if moov == nil {
		return nil
	}

	var entries []trackEntry
	for _, trak := range moov.Traks {
		if trak.Tkhd == nil {
			continue
		}
		mime, sampleEntry := codecdetect.MIMEForTrack(trak)

		desc := ports.Track{
			ID:          trak.Tkhd.TrackID,
			MIME:        mime,
			Timescale:   1000,
			SampleEntry: sampleEntry,
			Width:       int(uint32(trak.Tkhd.Width) >> 16),
			Height:      int(uint32(trak.Tkhd.Height) >> 16),
		}
		if trak.Mdia != nil && trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale != 0 {
			desc.Timescale = trak.Mdia.Mdhd.Timescale
		}
		if vse := visualSampleEntry(trak); vse != nil {
			if vse.Width != 0 && vse.Height != 0 {
				desc.Width = int(vse.Width)
				desc.Height = int(vse.Height)
			}
			desc.CodecConfig = codecConfig(vse)
		}

		entry := trackEntry{desc: desc, trak: trak}
		if moov.Mvex != nil {
			for _, t := range moov.Mvex.Trexs {
				if t.TrackID == desc.ID {
					entry.trex = t
					break
				}
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

func visualSampleEntry(trak *mp4.TrakBox) *mp4.VisualSampleEntryBox {
	if trak.Mdia == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return nil
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		if vse, ok := child.(*mp4.VisualSampleEntryBox); ok {
			return vse
		}
	}
	return nil
}

// codecConfig extracts out-of-band decoder configuration in the form
// decoders expect in-band: Annex B parameter sets for AVC, config OBUs for AV1.
func codecConfig(vse *mp4.VisualSampleEntryBox) []byte {
	var out []byte
	if vse.AvcC != nil {
		for _, sps := range vse.AvcC.SPSnalus {
			out = append(out, 0, 0, 0, 1)
			out = append(out, sps...)
		}
		for _, pps := range vse.AvcC.PPSnalus {
			out = append(out, 0, 0, 0, 1)
			out = append(out, pps...)
		}
		return out
	}
	for _, child := range vse.Children {
		if av1C, ok := child.(*mp4.Av1CBox); ok {
			return append(out, av1C.ConfigOBUs...)
		}
	}
	return nil
}

// Tracks returns the descriptors of every track.
func (s *Source) Tracks() []ports.Track {
	out := make([]ports.Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		out = append(out, t.desc)
	}
	return out
}

// SelectVideoTrack selects the first track with a video MIME type and indexes its samples.
func (s *Source) SelectVideoTrack() (ports.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected != nil {
		return s.selected.desc, nil
	}

	for i := range s.tracks {
		if !s.tracks[i].desc.IsVideo() {
			continue
		}
		entry := &s.tracks[i]

		var (
			samples []sampleRef
			err     error
		)
		if s.file.IsFragmented() {
			samples, err = s.indexFragmented(entry)
		} else {
			samples, err = indexProgressive(entry.trak)
		}
		if err != nil {
			return ports.Track{}, fmt.Errorf("%w: index track %d: %w", ports.ErrIOFailure, entry.desc.ID, err)
		}

		s.selected = entry
		s.samples = samples
		s.cursor = 0
		s.logger.Debug("Selected track %d (%s, %dx%d, %d samples)",
			entry.desc.ID, entry.desc.MIME, entry.desc.Width, entry.desc.Height, len(samples))
		return entry.desc, nil
	}

	return ports.Track{}, ports.ErrNoVideoTrack
}

func (s *Source) indexFragmented(entry *trackEntry) ([]sampleRef, error) {
	var refs []sampleRef
	for _, seg := range s.file.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd.TrackID != entry.desc.ID {
					continue
				}
				samples, err := frag.GetFullSamples(entry.trex)
				if err != nil {
					return nil, fmt.Errorf("get samples: %w", err)
				}
				for i := range samples {
					fs := &samples[i]
					refs = append(refs, sampleRef{
						data:     fs.Data,
						size:     uint32(len(fs.Data)),
						dts:      fs.DecodeTime,
						dur:      fs.Dur,
						keyframe: fs.IsSync(),
					})
				}
			}
		}
	}
	return refs, nil
}

func indexProgressive(trak *mp4.TrakBox) ([]sampleRef, error) {
	if trak.Mdia == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return nil, fmt.Errorf("no sample table found")
	}
	stbl := trak.Mdia.Minf.Stbl
	if stbl.Stsz == nil || stbl.Stsc == nil {
		return nil, fmt.Errorf("missing stsz or stsc box")
	}

	syncSamples := make(map[uint32]bool)
	if stbl.Stss != nil {
		for _, nr := range stbl.Stss.SampleNumber {
			syncSamples[nr] = true
		}
	}

	count := stbl.Stsz.SampleNumber
	refs := make([]sampleRef, 0, count)
	for nr := uint32(1); nr <= count; nr++ {
		offset, err := sampleOffset(stbl, nr)
		if err != nil {
			return nil, err
		}
		ref := sampleRef{
			offset:   int64(offset),
			size:     stbl.Stsz.GetSampleSize(int(nr)),
			keyframe: syncSamples[nr] || len(syncSamples) == 0,
		}
		if stbl.Stts != nil {
			ref.dts, ref.dur = stbl.Stts.GetDecodeTime(nr)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// sampleOffset resolves the file offset of a sample through stsc and stco/co64.
func sampleOffset(stbl *mp4.StblBox, sampleNr uint32) (uint64, error) {
	chunkNr, firstSampleInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(sampleNr))
	if err != nil {
		return 0, fmt.Errorf("get chunk nr: %w", err)
	}

	var chunkOffset uint64
	switch {
	case stbl.Stco != nil:
		chunkOffset, err = stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, fmt.Errorf("get chunk offset: %w", err)
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return 0, fmt.Errorf("chunk nr %d out of range", chunkNr)
		}
		chunkOffset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return 0, fmt.Errorf("no stco or co64 box")
	}

	offset := chunkOffset
	for nr := uint32(firstSampleInChunk); nr < sampleNr; nr++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(nr)))
	}
	return offset, nil
}

// ReadSample returns the sample under the cursor without advancing.
func (s *Source) ReadSample(buf []byte) (ports.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == nil {
		return ports.Sample{}, ErrNoTrackSelected
	}
	if s.closed || s.cursor >= len(s.samples) {
		return ports.Sample{}, ports.ErrEndOfStream
	}

	ref := s.samples[s.cursor]
	data, err := s.sampleData(ref, buf)
	if err != nil {
		return ports.Sample{}, err
	}

	timescale := uint64(s.selected.desc.Timescale)
	return ports.Sample{
		Data:             data,
		PresentationTime: ticksToDuration(ref.dts, timescale),
		Duration:         ticksToDuration(uint64(ref.dur), timescale),
		Keyframe:         ref.keyframe,
	}, nil
}

func (s *Source) sampleData(ref sampleRef, buf []byte) ([]byte, error) {
	var dst []byte
	if uint32(cap(buf)) >= ref.size {
		dst = buf[:ref.size]
	}

	if ref.data != nil {
		if dst == nil {
			return ref.data, nil
		}
		copy(dst, ref.data)
		return dst, nil
	}

	if dst == nil {
		dst = make([]byte, ref.size)
	}
	if _, err := s.reader.Seek(ref.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to sample: %w", err)
	}
	if _, err := io.ReadFull(s.reader, dst); err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	return dst, nil
}

// Advance moves the cursor forward. It returns false once the cursor is past the last sample.
func (s *Source) Advance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor < len(s.samples) {
		s.cursor++
	}
	return s.cursor < len(s.samples)
}

// Close releases the underlying file. Safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func ticksToDuration(ticks, timescale uint64) time.Duration {
	if timescale == 0 {
		return 0
	}
	secs, rem := ticks/timescale, ticks%timescale
	return time.Duration(secs)*time.Second + time.Duration(rem*uint64(time.Second)/timescale)
}

// Ensure Source implements ports.SampleSource
var _ ports.SampleSource = (*Source)(nil)
