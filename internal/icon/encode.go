package icon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"runtime"
)

// EncodeTray encodes the bitmap in the format the tray host expects: PNG on
// Linux and macOS, a single-image ICO wrapping the PNG on Windows.
func EncodeTray(img *image.RGBA) ([]byte, error) {
	return encodeTrayFor(img, runtime.GOOS)
}

func encodeTrayFor(img *image.RGBA, goos string) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("icon: encoding PNG: %w", err)
	}
	if goos != "windows" {
		return buf.Bytes(), nil
	}
	return wrapICO(buf.Bytes(), img.Bounds())
}

// wrapICO builds a one-entry ICO container around PNG data. PNG payloads in
// ICO are supported since Vista, which is older than anything that runs us.
func wrapICO(pngData []byte, bounds image.Rectangle) ([]byte, error) {
	w, h := bounds.Dx(), bounds.Dy()
	if w > 256 || h > 256 {
		return nil, fmt.Errorf("icon: %dx%d exceeds ICO limit", w, h)
	}
	// 256 is encoded as 0 in the directory entry.
	wb, hb := byte(w), byte(h)
	if w == 256 {
		wb = 0
	}
	if h == 256 {
		hb = 0
	}

	const headerSize = 6 + 16
	var out bytes.Buffer
	out.Grow(headerSize + len(pngData))

	// ICONDIR: reserved, type (1 = icon), count.
	binary.Write(&out, binary.LittleEndian, uint16(0))
	binary.Write(&out, binary.LittleEndian, uint16(1))
	binary.Write(&out, binary.LittleEndian, uint16(1))

	// ICONDIRENTRY.
	out.WriteByte(wb)
	out.WriteByte(hb)
	out.WriteByte(0) // palette size
	out.WriteByte(0) // reserved
	binary.Write(&out, binary.LittleEndian, uint16(1))  // color planes
	binary.Write(&out, binary.LittleEndian, uint16(32)) // bits per pixel
	binary.Write(&out, binary.LittleEndian, uint32(len(pngData)))
	binary.Write(&out, binary.LittleEndian, uint32(headerSize))

	out.Write(pngData)
	return out.Bytes(), nil
}
