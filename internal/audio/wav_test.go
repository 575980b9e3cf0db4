package audio

import (
	"errors"
	"testing"
)

func TestEncodeAndInspect(t *testing.T) {
	pcm := make([]byte, 4800) // 100ms at 24kHz mono
	wav := EncodePCM16(pcm, 24000, 1)

	if len(wav) != wavHeaderSize+len(pcm) {
		t.Fatalf("Expected %d bytes, got %d", wavHeaderSize+len(pcm), len(wav))
	}

	format, err := Inspect(wav)
	if err != nil {
		t.Fatalf("Failed to inspect encoded WAV: %v", err)
	}

	if !format.IsPCM() {
		t.Errorf("Expected PCM format, got %d", format.AudioFormat)
	}
	if format.Channels != 1 {
		t.Errorf("Expected 1 channel, got %d", format.Channels)
	}
	if format.SampleRate != 24000 {
		t.Errorf("Expected sample rate 24000, got %d", format.SampleRate)
	}
	if format.BitsPerSample != 16 {
		t.Errorf("Expected 16 bits per sample, got %d", format.BitsPerSample)
	}
	if format.DataSize != uint32(len(pcm)) {
		t.Errorf("Expected data size %d, got %d", len(pcm), format.DataSize)
	}
}

func TestInspectSkipsUnknownChunks(t *testing.T) {
	wav := EncodePCM16([]byte{1, 2, 3, 4}, 16000, 1)

	// Insert an odd-sized LIST chunk between fmt and data
	list := []byte{'L', 'I', 'S', 'T', 3, 0, 0, 0, 'a', 'b', 'c', 0}
	withList := append(append(append([]byte{}, wav[:36]...), list...), wav[36:]...)

	format, err := Inspect(withList)
	if err != nil {
		t.Fatalf("Failed to inspect WAV with extra chunk: %v", err)
	}
	if format.DataSize != 4 {
		t.Errorf("Expected data size 4, got %d", format.DataSize)
	}
}

func TestInspectRejectsNonWAV(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"mp3 header", []byte("ID3\x03\x00\x00\x00\x00\x00\x00\x00\x00")},
		{"riff without fmt", []byte("RIFF\x04\x00\x00\x00WAVE")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inspect(tt.data)
			if !errors.Is(err, ErrNotWAV) {
				t.Errorf("Expected ErrNotWAV, got %v", err)
			}
		})
	}
}
