package engine

import (
	"fmt"
	"io"

	"github.com/viterin/vek/vek32"

	"github.com/stemmix/stemmix"
)

// ExportMsg writes the current mix — the unmuted playable buffers
// summed together — as a .wav file. The encode runs in its own
// goroutine on a snapshot of the buffer pointers; since buffers are
// immutable and render passes swap rather than mutate, a pass finishing
// mid-export cannot corrupt the output.
type ExportMsg struct {
	WC    io.WriteCloser
	PCM16 bool
}

func (e *Engine) export(m ExportMsg) {
	var buffers []*stemmix.AudioBuffer
	for _, stem := range stemmix.Stems() {
		if e.tracks[stem].Playable != nil && !e.mutes.Muted(stem) {
			buffers = append(buffers, e.tracks[stem].Playable)
		}
	}
	if len(buffers) == 0 {
		m.WC.Close()
		e.alert("Export", "nothing to export: no unmuted stems", Warning)
		return
	}
	base := e.snapshot(nil)
	toUI := e.broker.ToUI
	go func() {
		report := func(message string, priority AlertPriority) {
			msg := base
			msg.Data = Alert{Name: "Export", Priority: priority, Message: message, Duration: defaultAlertDuration}
			TrySend(toUI, msg)
		}
		mix := mixdown(buffers)
		data, err := mix.Wav(m.PCM16)
		if err != nil {
			m.WC.Close()
			report(fmt.Sprintf("exporting mix failed: %v", err), Error)
			return
		}
		if _, err := m.WC.Write(data); err != nil {
			m.WC.Close()
			report(fmt.Sprintf("writing mix failed: %v", err), Error)
			return
		}
		if err := m.WC.Close(); err != nil {
			report(fmt.Sprintf("closing export failed: %v", err), Error)
			return
		}
		report(fmt.Sprintf("exported mix: %d stems, %v", len(buffers), mix.Duration()), Info)
	}()
	e.sendState(nil)
}

// mixdown sums the given buffers into a new one the length of the
// longest input. Stems of one song are balanced to sum to the master,
// so no normalization is applied; the pcm16 wav path clamps anyway.
func mixdown(buffers []*stemmix.AudioBuffer) *stemmix.AudioBuffer {
	longest := 0
	for _, buffer := range buffers {
		if len(buffer.Samples) > longest {
			longest = len(buffer.Samples)
		}
	}
	mix := &stemmix.AudioBuffer{
		SampleRate: buffers[0].SampleRate,
		Channels:   buffers[0].Channels,
		Samples:    make([]float32, longest),
	}
	for _, buffer := range buffers {
		vek32.Add_Inplace(mix.Samples[:len(buffer.Samples)], buffer.Samples)
	}
	return mix
}
