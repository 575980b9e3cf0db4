package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// FormatPCM is the WAVE format tag for integer PCM
	FormatPCM = 1

	wavHeaderSize = 44
)

// ErrNotWAV is returned when data is not a RIFF/WAVE container
var ErrNotWAV = errors.New("audio is not a WAV container")

// Format describes the "fmt " chunk of a WAV file
type Format struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
	DataSize      uint32
}

// IsPCM reports whether the format is integer PCM
func (f Format) IsPCM() bool {
	return f.AudioFormat == FormatPCM
}

// Inspect parses the WAV header of data
func Inspect(data []byte) (Format, error) {
	var f Format
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return f, ErrNotWAV
	}

	foundFmt := false
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		body := offset + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return f, fmt.Errorf("truncated fmt chunk: %w", ErrNotWAV)
			}
			f.AudioFormat = binary.LittleEndian.Uint16(data[body : body+2])
			f.Channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			f.SampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			f.BitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			foundFmt = true
		case "data":
			if !foundFmt {
				return f, fmt.Errorf("data chunk before fmt chunk: %w", ErrNotWAV)
			}
			f.DataSize = size
			return f, nil
		}

		// chunks are word aligned
		offset = body + int(size) + int(size%2)
	}

	if !foundFmt {
		return f, fmt.Errorf("missing fmt chunk: %w", ErrNotWAV)
	}
	return f, fmt.Errorf("missing data chunk: %w", ErrNotWAV)
}

// EncodePCM16 wraps signed 16-bit little-endian PCM samples in a WAV container
func EncodePCM16(pcm []byte, sampleRate, channels int) []byte {
	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(FormatPCM))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
