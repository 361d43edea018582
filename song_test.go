package stemmix_test

import (
	"testing"

	"github.com/stemmix/stemmix"
)

func TestTransformRatios(t *testing.T) {
	song := stemmix.Song{Title: "T", BPM: 120}
	for _, c := range []struct {
		bpm, semitones int
		tempo, pitch   float64
	}{
		{120, 0, 1, 1},
		{100, 0, 100.0 / 120.0, 1},
		{150, 0, 1.25, 1},
		{120, 12, 1, 2},
		{120, -12, 1, 0.5},
	} {
		got, err := song.Transform(c.bpm, c.semitones)
		if err != nil {
			t.Errorf("Transform(%d, %d) error: %v", c.bpm, c.semitones, err)
			continue
		}
		if got.TempoRatio != c.tempo || got.PitchRatio != c.pitch {
			t.Errorf("Transform(%d, %d) = %v, want tempo %v pitch %v", c.bpm, c.semitones, got, c.tempo, c.pitch)
		}
	}
}

func TestTransformIsDeterministic(t *testing.T) {
	song := stemmix.Song{Title: "T", BPM: 93}
	a, err := song.Transform(101, 7)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	b, err := song.Transform(101, 7)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	if a != b {
		t.Errorf("equal integer inputs produced unequal ratios: %v != %v", a, b)
	}
}

func TestTransformBounds(t *testing.T) {
	song := stemmix.Song{Title: "T", BPM: 120}
	for _, c := range []struct{ bpm, semitones int }{
		{120 + stemmix.MaxBPMOffset + 1, 0},
		{120 - stemmix.MaxBPMOffset - 1, 0},
		{120, stemmix.MaxSemitones + 1},
		{120, -stemmix.MaxSemitones - 1},
	} {
		if _, err := song.Transform(c.bpm, c.semitones); err == nil {
			t.Errorf("Transform(%d, %d) accepted an out-of-bounds request", c.bpm, c.semitones)
		}
	}
	if _, err := (stemmix.Song{Title: "T"}).Transform(0, 0); err == nil {
		t.Errorf("Transform accepted a song without a BPM")
	}
}

func TestParseStemRoundTrip(t *testing.T) {
	for _, stem := range stemmix.Stems() {
		got, err := stemmix.ParseStem(stem.String())
		if err != nil {
			t.Errorf("ParseStem(%q) error: %v", stem, err)
		}
		if got != stem {
			t.Errorf("ParseStem(%q) = %v", stem, got)
		}
	}
	if _, err := stemmix.ParseStem("guitar"); err == nil {
		t.Errorf("ParseStem accepted an unknown stem")
	}
}
