package engine

import (
	"github.com/stemmix/stemmix"
)

type (
	// TrackState is the per-stem buffer pair owned by the engine.
	// Original is set once when loading completes and never mutated
	// afterwards. Playable is the buffer eligible for playback; it
	// starts out equal to Original and is replaced wholesale by each
	// successful render pass. Playable is nil exactly when Original is
	// nil.
	TrackState struct {
		Original *stemmix.AudioBuffer
		Playable *stemmix.AudioBuffer
	}

	// TrackSet holds the TrackState of every stem.
	TrackSet [stemmix.NumStems]TrackState

	// ProcessingState remembers the transform that was actually
	// rendered, so that re-confirming an unchanged setting does not
	// trigger a redundant whole-set re-render. Ratios are compared
	// exactly: they are derived once from integer BPM and semitone
	// inputs, never re-derived through float noise.
	ProcessingState struct {
		applied    bool
		tempoRatio float64
		pitchRatio float64
	}

	// MuteRouter is the per-stem routing flag set. Toggling it never
	// touches buffers or a live session; the flags are read when the
	// next session starts.
	MuteRouter [stemmix.NumStems]bool
)

// SetOriginals installs freshly loaded buffers, seeding each stem's
// playable buffer with its original.
func (t *TrackSet) SetOriginals(buffers [stemmix.NumStems]*stemmix.AudioBuffer) {
	for i, buf := range buffers {
		t[i] = TrackState{Original: buf, Playable: buf}
	}
}

// SwapPlayables adopts the results of one whole-set render pass. Only
// stems that were rendered (non-nil slot) are touched; originals never
// are.
func (t *TrackSet) SwapPlayables(rendered [stemmix.NumStems]*stemmix.AudioBuffer) {
	for i, buf := range rendered {
		if buf != nil {
			t[i].Playable = buf
		}
	}
}

// Loaded reports whether any stem has a decoded buffer.
func (t *TrackSet) Loaded() bool {
	for i := range t {
		if t[i].Original != nil {
			return true
		}
	}
	return false
}

// Dirty reports whether the requested transform differs from the last
// applied one. A state with no applied transform is always dirty.
func (p *ProcessingState) Dirty(request stemmix.TransformRequest) bool {
	return !p.applied || p.tempoRatio != request.TempoRatio || p.pitchRatio != request.PitchRatio
}

// Apply records a transform as applied for every stem simultaneously.
func (p *ProcessingState) Apply(request stemmix.TransformRequest) {
	p.applied = true
	p.tempoRatio = request.TempoRatio
	p.pitchRatio = request.PitchRatio
}

// Applied returns the last applied transform, if any.
func (p *ProcessingState) Applied() (stemmix.TransformRequest, bool) {
	return stemmix.TransformRequest{TempoRatio: p.tempoRatio, PitchRatio: p.pitchRatio}, p.applied
}

// Reset forgets the applied transform.
func (p *ProcessingState) Reset() {
	*p = ProcessingState{}
}

func (m *MuteRouter) SetMuted(stem stemmix.Stem, muted bool) {
	m[stem] = muted
}

func (m *MuteRouter) Muted(stem stemmix.Stem) bool {
	return m[stem]
}
