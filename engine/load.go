package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/stemmix/stemmix"
)

// loadTimeout mirrors renderTimeout: a fetch or decode that never
// completes fails the whole load.
const loadTimeout = 2 * time.Minute

// loadDoneMsg is posted to the engine loop when a load pass resolves.
type loadDoneMsg struct {
	gen       int
	song      stemmix.Song
	originals [stemmix.NumStems]*stemmix.AudioBuffer
	err       error
}

// startLoad fetches and decodes every stem of the song concurrently.
// Load is all-or-nothing: any stem failing aborts the whole load. A
// source may report a stem as absent by returning (nil, nil); absent
// stems are skipped, but at least one stem must exist and all decoded
// stems must share one sample rate and channel count, since the
// scheduler mixes them through a single-format output.
func (e *Engine) startLoad(song stemmix.Song) {
	e.loadGen++
	gen := e.loadGen
	source, decoder := e.source, e.decoder
	toEngine := e.broker.ToEngine
	go func() {
		var originals [stemmix.NumStems]*stemmix.AudioBuffer
		var errs [stemmix.NumStems]error
		done := make(chan error, 1)
		go func() {
			var wg sync.WaitGroup
			for _, stem := range stemmix.Stems() {
				wg.Add(1)
				go func(stem stemmix.Stem) {
					defer wg.Done()
					raw, err := source.FetchStem(song, stem)
					if err != nil {
						errs[stem] = fmt.Errorf("fetching %v: %w", stem, err)
						return
					}
					if raw == nil {
						return // absent stem
					}
					buffer, err := decoder.Decode(raw)
					if err != nil {
						errs[stem] = fmt.Errorf("decoding %v: %w", stem, err)
						return
					}
					originals[stem] = buffer
				}(stem)
			}
			wg.Wait()
			done <- firstError(errs[:])
		}()
		msg := loadDoneMsg{gen: gen, song: song}
		err, ok := TimeoutReceive(done, loadTimeout)
		switch {
		case !ok:
			msg.err = fmt.Errorf("load did not complete within %v", loadTimeout)
		case err != nil:
			msg.err = err
		default:
			msg.err = checkFormats(originals)
			if msg.err == nil {
				msg.originals = originals
			}
		}
		toEngine <- msg
	}()
}

func checkFormats(originals [stemmix.NumStems]*stemmix.AudioBuffer) error {
	var first *stemmix.AudioBuffer
	var firstStem stemmix.Stem
	for _, stem := range stemmix.Stems() {
		buffer := originals[stem]
		if buffer == nil {
			continue
		}
		if first == nil {
			first, firstStem = buffer, stem
			continue
		}
		if buffer.SampleRate != first.SampleRate || buffer.Channels != first.Channels {
			return fmt.Errorf("stem format mismatch: %v is %d Hz / %d ch but %v is %d Hz / %d ch",
				stem, buffer.SampleRate, buffer.Channels, firstStem, first.SampleRate, first.Channels)
		}
	}
	if first == nil {
		return fmt.Errorf("song has no stems")
	}
	return nil
}
