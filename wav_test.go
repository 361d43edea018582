package stemmix_test

import (
	"math"
	"testing"

	"github.com/stemmix/stemmix"
)

func testClip() *stemmix.AudioBuffer {
	buffer := &stemmix.AudioBuffer{SampleRate: 44100, Channels: 2, Samples: make([]float32, 2*256)}
	for i := range buffer.Samples {
		buffer.Samples[i] = float32(0.8 * math.Sin(float64(i)/7))
	}
	return buffer
}

func TestWavFloatRoundTrip(t *testing.T) {
	in := testClip()
	data, err := in.Wav(false)
	if err != nil {
		t.Fatalf("Wav error: %v", err)
	}
	out, err := stemmix.ParseWav(data)
	if err != nil {
		t.Fatalf("ParseWav error: %v", err)
	}
	if out.SampleRate != in.SampleRate || out.Channels != in.Channels {
		t.Fatalf("format changed: got %d Hz / %d ch", out.SampleRate, out.Channels)
	}
	if len(out.Samples) != len(in.Samples) {
		t.Fatalf("got %d samples, want %d", len(out.Samples), len(in.Samples))
	}
	for i := range in.Samples {
		if out.Samples[i] != in.Samples[i] {
			t.Fatalf("sample %d changed: %v != %v", i, out.Samples[i], in.Samples[i])
		}
	}
}

func TestWavPCM16RoundTrip(t *testing.T) {
	in := testClip()
	data, err := in.Wav(true)
	if err != nil {
		t.Fatalf("Wav error: %v", err)
	}
	out, err := stemmix.ParseWav(data)
	if err != nil {
		t.Fatalf("ParseWav error: %v", err)
	}
	if len(out.Samples) != len(in.Samples) {
		t.Fatalf("got %d samples, want %d", len(out.Samples), len(in.Samples))
	}
	for i := range in.Samples {
		if diff := float64(out.Samples[i] - in.Samples[i]); math.Abs(diff) > 1.0/math.MaxInt16 {
			t.Fatalf("sample %d off by %v after 16-bit quantization", i, diff)
		}
	}
}

func TestWavDecoderImplementsDecoder(t *testing.T) {
	var decoder stemmix.Decoder = stemmix.WavDecoder{}
	in := testClip()
	data, err := in.Wav(false)
	if err != nil {
		t.Fatalf("Wav error: %v", err)
	}
	out, err := decoder.Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if out.Frames() != in.Frames() {
		t.Errorf("Decode returned %d frames, want %d", out.Frames(), in.Frames())
	}
}

func TestParseWavRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		[]byte("not audio at all"),
		[]byte("RIFFxxxxWAVE"), // no chunks
	} {
		if _, err := stemmix.ParseWav(data); err == nil {
			t.Errorf("ParseWav(%q) did not error", data)
		}
	}
}
