package stemmix

import (
	"time"
)

type (
	// AudioBuffer is a decoded linear PCM clip: interleaved float32
	// samples plus the format needed to interpret them. Buffers are
	// treated as immutable once handed to the engine; transforms and
	// render passes always allocate new buffers instead of mutating in
	// place.
	AudioBuffer struct {
		SampleRate int
		Channels   int
		Samples    []float32 // interleaved, Channels samples per frame
	}

	// TransformEngine renders a tempo/pitch adjusted copy of a buffer.
	// tempoRatio is target speed / native speed, so the output has
	// roughly Frames()/tempoRatio frames; pitchRatio scales frequency
	// content without affecting the duration. The two ratios are
	// independent. Both ratios equal to 1 is a legal request and the
	// engine may treat it as a pass-through. The output must keep the
	// input's sample rate and channel count.
	TransformEngine interface {
		Render(buffer *AudioBuffer, tempoRatio, pitchRatio float64) (*AudioBuffer, error)
	}

	// Decoder turns a raw audio resource into PCM.
	Decoder interface {
		Decode(raw []byte) (*AudioBuffer, error)
	}

	// StemSource locates and fetches the raw audio resource of one stem
	// of a song. Implemented by catalog.Library; the engine does not
	// care where the bytes come from.
	StemSource interface {
		FetchStem(song Song, stem Stem) ([]byte, error)
	}

	// PlaybackSink turns buffers into audible (or deliberately silent)
	// output. Prepare must not start output yet: the caller prepares
	// every stem of a session first and then starts all handles against
	// one shared timestamp, so that the stems stay sample-aligned even
	// when the underlying audio clock is coarse.
	PlaybackSink interface {
		Prepare(buffer *AudioBuffer, muted bool) (PlaybackHandle, error)
		Close() error
	}

	// PlaybackHandle is a one-shot playback of a single prepared buffer.
	// It cannot be paused, rewound or reused: the only operations are
	// starting it once and stopping it. Stop is idempotent and legal in
	// any state, including after natural end of data.
	PlaybackHandle interface {
		StartAt(t time.Time)
		Stop()
		Playing() bool
	}
)

// Frames returns the number of sample frames in the buffer.
func (b *AudioBuffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback time of the buffer at its native rate.
func (b *AudioBuffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Clone returns a deep copy of the buffer.
func (b *AudioBuffer) Clone() *AudioBuffer {
	samples := make([]float32, len(b.Samples))
	copy(samples, b.Samples)
	return &AudioBuffer{SampleRate: b.SampleRate, Channels: b.Channels, Samples: samples}
}
