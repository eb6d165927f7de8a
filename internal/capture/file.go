package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// pcmDecoder is implemented by all format-specific decoders. Decoders emit
// interleaved samples in [-1, 1] and can rewind to the start for looping.
type pcmDecoder interface {
	// ReadFloats fills p and returns the number of samples written.
	ReadFloats(p []float64) (int, error)
	Reset() error
	SampleRate() int
	Channels() int
}

// FileSource feeds the pipeline from a decoded audio file at playback pace,
// looping at EOF. It exists so the visualizer can be exercised without a
// loopback device.
type FileSource struct {
	file  *os.File
	dec   pcmDecoder
	title string

	blockFrames int
	blockDur    time.Duration
	next        time.Time
}

// OpenFile opens a wav/mp3/ogg/flac file as a block source.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec, err := newFileDecoder(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	frames := DefaultBlockFrames
	return &FileSource{
		file:        f,
		dec:         dec,
		title:       readTitle(path),
		blockFrames: frames,
		blockDur:    time.Duration(frames) * time.Second / time.Duration(dec.SampleRate()),
	}, nil
}

func newFileDecoder(f *os.File) (pcmDecoder, error) {
	switch ext := strings.ToLower(filepath.Ext(f.Name())); ext {
	case ".wav":
		return newWAVDecoder(f)
	case ".mp3":
		return newMP3Decoder(f)
	case ".ogg":
		return newOGGDecoder(f)
	case ".flac":
		return newFLACDecoder(f)
	default:
		return nil, fmt.Errorf("capture: unsupported file format %q", ext)
	}
}

// readTitle pulls the ID3 title for MP3s, otherwise the bare filename.
func readTitle(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		if tag, err := id3v2.Open(path, id3v2.Options{Parse: true}); err == nil {
			title := strings.TrimSpace(tag.Title())
			tag.Close()
			if title != "" {
				return title
			}
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReadBlock returns the next block no sooner than playback time would allow,
// so the bars move as they would for live audio.
func (s *FileSource) ReadBlock(ctx context.Context) (Block, error) {
	now := time.Now()
	if s.next.IsZero() || s.next.Before(now.Add(-s.blockDur)) {
		s.next = now
	}
	if wait := time.Until(s.next); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return Block{}, ctx.Err()
		}
	}
	s.next = s.next.Add(s.blockDur)

	samples := make([]float64, s.blockFrames*s.dec.Channels())
	filled := 0
	for filled < len(samples) {
		n, err := s.dec.ReadFloats(samples[filled:])
		filled += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				if rerr := s.dec.Reset(); rerr != nil {
					return Block{}, fmt.Errorf("%w: rewind: %v", ErrDeviceLost, rerr)
				}
				continue
			}
			return Block{}, fmt.Errorf("%w: %v", ErrDeviceLost, err)
		}
		if n == 0 {
			break
		}
	}

	return Block{
		Samples:    samples,
		Channels:   s.dec.Channels(),
		SampleRate: s.dec.SampleRate(),
		Time:       time.Now(),
	}, nil
}

func (s *FileSource) SampleRate() int { return s.dec.SampleRate() }
func (s *FileSource) Channels() int   { return s.dec.Channels() }
func (s *FileSource) Title() string   { return s.title }

func (s *FileSource) Close() error { return s.file.Close() }

// --- WAV ---

type wavDecoder struct {
	file       *os.File
	dec        *wav.Decoder
	sampleRate int
	channels   int
	bitDepth   int
	pcmStart   int64
	pcmLen     int64 // data chunk length; trailing chunks are not audio
	pos        int64
	raw        []byte
}

func newWAVDecoder(f *os.File) (*wavDecoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("capture: invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("capture: reading WAV PCM data: %w", err)
	}
	pcmLen := dec.PCMLen()
	if pcmLen <= 0 {
		return nil, fmt.Errorf("capture: WAV file has no PCM data")
	}
	pcmStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	return &wavDecoder{
		file:       f,
		dec:        dec,
		sampleRate: int(dec.SampleRate),
		channels:   int(dec.NumChans),
		bitDepth:   int(dec.BitDepth),
		pcmStart:   pcmStart,
		pcmLen:     pcmLen,
	}, nil
}

func (d *wavDecoder) ReadFloats(p []float64) (int, error) {
	bytesPer := d.bitDepth / 8
	want := len(p) * bytesPer
	if remaining := d.pcmLen - d.pos; int64(want) > remaining {
		want = int(remaining)
	}
	if want < bytesPer {
		return 0, io.EOF
	}
	if cap(d.raw) < want {
		d.raw = make([]byte, want)
	}
	raw := d.raw[:want]

	n, err := io.ReadFull(d.file, raw)
	d.pos += int64(n)
	samples := n / bytesPer
	if samples == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}

	scale := 1.0 / float64(int64(1)<<(d.bitDepth-1))
	for i := 0; i < samples; i++ {
		off := i * bytesPer
		var v int64
		switch d.bitDepth {
		case 8:
			v = int64(raw[off]) - 128 // 8-bit WAV is unsigned
		case 16:
			v = int64(int16(binary.LittleEndian.Uint16(raw[off:])))
		case 24:
			s := int32(raw[off]) | int32(raw[off+1])<<8 | int32(raw[off+2])<<16
			if s&0x800000 != 0 {
				s |= ^int32(0xFFFFFF)
			}
			v = int64(s)
		case 32:
			v = int64(int32(binary.LittleEndian.Uint32(raw[off:])))
		default:
			return 0, fmt.Errorf("capture: unsupported WAV bit depth %d", d.bitDepth)
		}
		p[i] = float64(v) * scale
	}

	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return samples, err
}

func (d *wavDecoder) Reset() error {
	d.pos = 0
	_, err := d.file.Seek(d.pcmStart, io.SeekStart)
	return err
}

func (d *wavDecoder) SampleRate() int { return d.sampleRate }
func (d *wavDecoder) Channels() int   { return d.channels }

// --- MP3 ---

type mp3Decoder struct {
	dec *mp3.Decoder
	raw []byte
}

func newMP3Decoder(f *os.File) (*mp3Decoder, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("capture: decoding MP3: %w", err)
	}
	return &mp3Decoder{dec: dec}, nil
}

func (d *mp3Decoder) ReadFloats(p []float64) (int, error) {
	want := len(p) * 2
	if cap(d.raw) < want {
		d.raw = make([]byte, want)
	}
	raw := d.raw[:want]

	n, err := io.ReadFull(d.dec, raw)
	samples := n / 2
	if samples == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}
	for i := 0; i < samples; i++ {
		p[i] = float64(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768.0
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return samples, err
}

func (d *mp3Decoder) Reset() error {
	_, err := d.dec.Seek(0, io.SeekStart)
	return err
}

func (d *mp3Decoder) SampleRate() int { return d.dec.SampleRate() }
func (d *mp3Decoder) Channels() int   { return 2 } // go-mp3 always emits stereo

// --- OGG Vorbis ---

type oggDecoder struct {
	reader *oggvorbis.Reader
	buf    []float32
}

func newOGGDecoder(f *os.File) (*oggDecoder, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("capture: decoding OGG: %w", err)
	}
	return &oggDecoder{reader: reader}, nil
}

func (d *oggDecoder) ReadFloats(p []float64) (int, error) {
	if cap(d.buf) < len(p) {
		d.buf = make([]float32, len(p))
	}
	buf := d.buf[:len(p)]

	n, err := d.reader.Read(buf)
	if n == 0 && err == nil {
		err = io.EOF
	}
	for i := 0; i < n; i++ {
		p[i] = float64(buf[i])
	}
	return n, err
}

func (d *oggDecoder) Reset() error    { return d.reader.SetPosition(0) }
func (d *oggDecoder) SampleRate() int { return d.reader.SampleRate() }
func (d *oggDecoder) Channels() int   { return d.reader.Channels() }

// --- FLAC ---

type flacDecoder struct {
	stream     *flac.Stream
	pending    []float64
	sampleRate int
	channels   int
	bps        int
}

func newFLACDecoder(f *os.File) (*flacDecoder, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, fmt.Errorf("capture: decoding FLAC: %w", err)
	}
	info := stream.Info
	return &flacDecoder{
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bps:        int(info.BitsPerSample),
	}, nil
}

func (d *flacDecoder) ReadFloats(p []float64) (int, error) {
	if len(d.pending) == 0 {
		frame, err := d.stream.ParseNext()
		if err != nil {
			return 0, err
		}
		nSamples := int(frame.Subframes[0].NSamples)
		scale := 1.0 / float64(int64(1)<<(d.bps-1))
		d.pending = make([]float64, 0, nSamples*d.channels)
		for i := 0; i < nSamples; i++ {
			for ch := 0; ch < d.channels; ch++ {
				d.pending = append(d.pending, float64(frame.Subframes[ch].Samples[i])*scale)
			}
		}
	}
	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *flacDecoder) Reset() error {
	_, err := d.stream.Seek(0)
	return err
}

func (d *flacDecoder) SampleRate() int { return d.sampleRate }
func (d *flacDecoder) Channels() int   { return d.channels }
