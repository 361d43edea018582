package stemmix

import (
	"fmt"
	"math"
)

type (
	// Song is the metadata of one multi-stem recording. BPM is the
	// tempo the stems were recorded at and is the single authoritative
	// baseline for tempo ratios. BPM is an integer as it offers already
	// quite much granularity for controlling the playback speed.
	Song struct {
		Title  string
		Artist string
		Key    string `yaml:",omitempty"`
		BPM    int
	}

	// Stem identifies one of the four isolated tracks of a recording.
	// The set is closed; there are no dynamic stem sets.
	Stem int

	// TransformRequest is one tempo/pitch setting, expressed as the two
	// independent ratios the transform engine consumes. Requests are
	// derived once from the integer BPM and semitone controls, so equal
	// integer inputs always yield bit-identical ratios and can be
	// compared exactly.
	TransformRequest struct {
		TempoRatio float64
		PitchRatio float64
	}
)

const (
	StemBass Stem = iota
	StemDrums
	StemOther
	StemVocals
	NumStems
)

// Control bounds for user-facing tempo/pitch inputs.
const (
	MaxBPMOffset = 50
	MaxSemitones = 12
)

var stemNames = [NumStems]string{"bass", "drums", "other", "vocals"}

func (s Stem) String() string {
	if s < 0 || s >= NumStems {
		return fmt.Sprintf("stem(%d)", int(s))
	}
	return stemNames[s]
}

// ParseStem is the inverse of Stem.String.
func ParseStem(name string) (Stem, error) {
	for i, n := range stemNames {
		if n == name {
			return Stem(i), nil
		}
	}
	return 0, fmt.Errorf("unknown stem %q", name)
}

// Stems returns all stems in their fixed order.
func Stems() [NumStems]Stem {
	return [NumStems]Stem{StemBass, StemDrums, StemOther, StemVocals}
}

// Validate checks that the song metadata is usable as a transform
// baseline.
func (s Song) Validate() error {
	if s.BPM < 1 {
		return fmt.Errorf("song %q: BPM should be > 0", s.Title)
	}
	return nil
}

// Transform derives the transform request for playing the song at bpm
// beats per minute, shifted by semitones. Both inputs are bounds
// checked against the song's base tempo.
func (s Song) Transform(bpm, semitones int) (TransformRequest, error) {
	if err := s.Validate(); err != nil {
		return TransformRequest{}, err
	}
	if bpm < s.BPM-MaxBPMOffset || bpm > s.BPM+MaxBPMOffset {
		return TransformRequest{}, fmt.Errorf("requested BPM %d outside [%d, %d]", bpm, s.BPM-MaxBPMOffset, s.BPM+MaxBPMOffset)
	}
	if semitones < -MaxSemitones || semitones > MaxSemitones {
		return TransformRequest{}, fmt.Errorf("requested pitch shift %d outside [%d, %d]", semitones, -MaxSemitones, MaxSemitones)
	}
	return TransformRequest{
		TempoRatio: float64(bpm) / float64(s.BPM),
		PitchRatio: math.Exp2(float64(semitones) / 12),
	}, nil
}

// IdentityTransform plays the song exactly as recorded.
func IdentityTransform() TransformRequest {
	return TransformRequest{TempoRatio: 1, PitchRatio: 1}
}
