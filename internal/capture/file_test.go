package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeWAV writes a minimal PCM16 RIFF file.
func writeWAV(t *testing.T, path string, channels, sampleRate int, samples []int16) {
	t.Helper()

	var data bytes.Buffer
	for _, s := range samples {
		binary.Write(&data, binary.LittleEndian, s)
	}

	blockAlign := channels * 2
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing test WAV: %v", err)
	}
}

func TestOpenFileWAVBlockShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	samples := make([]int16, DefaultBlockFrames*4)
	for i := range samples {
		samples[i] = 16384 // 0.5 full scale
	}
	writeWAV(t, path, 2, 48000, samples)

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error: %v", err)
	}
	defer src.Close()

	if got := src.SampleRate(); got != 48000 {
		t.Fatalf("SampleRate() = %d, want 48000", got)
	}
	if got := src.Channels(); got != 2 {
		t.Fatalf("Channels() = %d, want 2", got)
	}

	block, err := src.ReadBlock(context.Background())
	if err != nil {
		t.Fatalf("ReadBlock() error: %v", err)
	}
	if got := block.Frames(); got != DefaultBlockFrames {
		t.Fatalf("Frames() = %d, want %d", got, DefaultBlockFrames)
	}
	if block.Channels != 2 || block.SampleRate != 48000 {
		t.Fatalf("block shape = %d ch @ %d Hz", block.Channels, block.SampleRate)
	}
	for i, v := range block.Samples {
		if math.Abs(v-0.5) > 1e-3 {
			t.Fatalf("sample %d = %v, want ~0.5", i, v)
		}
	}
}

func TestReadBlockLoopsAtEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.wav")
	// Far fewer frames than one block forces a rewind mid-read.
	samples := make([]int16, 300)
	for i := range samples {
		samples[i] = 8192
	}
	writeWAV(t, path, 1, 48000, samples)

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error: %v", err)
	}
	defer src.Close()

	for i := 0; i < 3; i++ {
		block, err := src.ReadBlock(context.Background())
		if err != nil {
			t.Fatalf("ReadBlock() #%d error: %v", i, err)
		}
		if got := block.Frames(); got != DefaultBlockFrames {
			t.Fatalf("ReadBlock() #%d frames = %d, want %d", i, got, DefaultBlockFrames)
		}
		for j, v := range block.Samples {
			if math.Abs(v-0.25) > 1e-3 {
				t.Fatalf("block %d sample %d = %v, want ~0.25 after looping", i, j, v)
			}
		}
	}
}

func TestReadBlockPacesToPlaybackRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paced.wav")
	writeWAV(t, path, 1, 8000, make([]int16, 8000))

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error: %v", err)
	}
	defer src.Close()

	// First read is immediate; the second must wait roughly one block
	// duration (1024 frames at 8 kHz = 128 ms).
	if _, err := src.ReadBlock(context.Background()); err != nil {
		t.Fatalf("first ReadBlock() error: %v", err)
	}
	start := time.Now()
	if _, err := src.ReadBlock(context.Background()); err != nil {
		t.Fatalf("second ReadBlock() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Fatalf("second ReadBlock() returned after %v, want real-time pacing", elapsed)
	}
}

func TestReadBlockHonorsContextCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cancel.wav")
	writeWAV(t, path, 1, 8000, make([]int16, 8000))

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error: %v", err)
	}
	defer src.Close()

	if _, err := src.ReadBlock(context.Background()); err != nil {
		t.Fatalf("first ReadBlock() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.ReadBlock(ctx); err != context.Canceled {
		t.Fatalf("ReadBlock() with cancelled ctx = %v, want context.Canceled", err)
	}
}

// writeWAVWithTrailer appends an extra RIFF chunk after the data chunk.
// Its payload must never be decoded as audio.
func writeWAVWithTrailer(t *testing.T, path string, channels, sampleRate int, samples []int16, trailer []byte) {
	t.Helper()
	writeWAV(t, path, channels, sampleRate, samples)

	var chunk bytes.Buffer
	chunk.WriteString("LIST")
	binary.Write(&chunk, binary.LittleEndian, uint32(len(trailer)))
	chunk.Write(trailer)

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.Seek(0, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(chunk.Bytes()); err != nil {
		t.Fatal(err)
	}
	// Grow the declared RIFF size to cover the new chunk.
	if _, err := f.Seek(4, 0); err != nil {
		t.Fatal(err)
	}
	size := 36 + len(samples)*2 + chunk.Len()
	if err := binary.Write(f, binary.LittleEndian, uint32(size)); err != nil {
		t.Fatal(err)
	}
}

func TestReadBlockSkipsTrailingChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagged.wav")
	samples := make([]int16, 400)
	for i := range samples {
		samples[i] = 8192
	}
	// Full-scale garbage: decoded as PCM it would read as ±1.0 noise.
	trailer := bytes.Repeat([]byte{0xFF, 0x7F}, 600)
	writeWAVWithTrailer(t, path, 1, 48000, samples, trailer)

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error: %v", err)
	}
	defer src.Close()

	// Filling a block forces several loops past the data chunk's end; every
	// sample must still come from the data chunk.
	for i := 0; i < 2; i++ {
		block, err := src.ReadBlock(context.Background())
		if err != nil {
			t.Fatalf("ReadBlock() #%d error: %v", i, err)
		}
		for j, v := range block.Samples {
			if math.Abs(v-0.25) > 1e-3 {
				t.Fatalf("block %d sample %d = %v, want ~0.25 (trailer bytes decoded as audio)", i, j, v)
			}
		}
	}
}

func TestOpenFileRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(path); err == nil {
		t.Fatal("OpenFile() on .txt succeeded, want error")
	}
}

func TestReadTitleFallsBackToFilename(t *testing.T) {
	if got := readTitle("/music/Morning Drive.wav"); got != "Morning Drive" {
		t.Fatalf("readTitle() = %q, want %q", got, "Morning Drive")
	}
	if got := readTitle("untagged.mp3"); got != "untagged" {
		t.Fatalf("readTitle() = %q, want %q", got, "untagged")
	}
}
