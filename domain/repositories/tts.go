package repositories

import "context"

// AudioChunk is one piece of a synthesized PCM stream. A chunk with Err set is
// the last one sent and means the stream broke off before completion.
type AudioChunk struct {
	Data []byte
	Err  error
}

// TextToSpeech abstracts speech synthesis services. Audio is streamed as raw
// signed 16-bit little-endian mono PCM at SampleRate.
type TextToSpeech interface {
	ConvertTextToSpeech(ctx context.Context, text string) (<-chan AudioChunk, error)
	SampleRate() int
}
