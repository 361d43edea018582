package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/stemmix/stemmix"
)

// renderTimeout is how long one whole-set render pass may take before
// it is surfaced as a failure. A transform call that never completes
// is fatal for its pass, never silently retried.
const renderTimeout = 2 * time.Minute

// renderDoneMsg is posted to the engine loop when a render pass
// resolves. gen identifies the pass; results of a pass that is no
// longer the most recently requested one are discarded on arrival.
type renderDoneMsg struct {
	gen      int
	request  stemmix.TransformRequest
	rendered [stemmix.NumStems]*stemmix.AudioBuffer
	err      error
}

// startRenderPass launches one atomic render pass: every loaded stem
// is transformed concurrently, results land in private slots, and the
// whole set is posted back to the control loop in a single message.
// Nothing the pass does touches the engine state; adoption happens in
// finishRender, on the control goroutine, and only if the pass is
// still the newest one.
func (e *Engine) startRenderPass(request stemmix.TransformRequest) {
	e.renderGen++
	gen := e.renderGen
	var originals [stemmix.NumStems]*stemmix.AudioBuffer
	for i := range e.tracks {
		originals[i] = e.tracks[i].Original
	}
	transform := e.transform
	toEngine := e.broker.ToEngine
	go func() {
		var rendered [stemmix.NumStems]*stemmix.AudioBuffer
		var errs [stemmix.NumStems]error
		done := make(chan error, 1)
		go func() {
			var wg sync.WaitGroup
			for _, stem := range stemmix.Stems() {
				if originals[stem] == nil {
					continue // not an error, the stem was simply never loaded
				}
				wg.Add(1)
				go func(stem stemmix.Stem) {
					defer wg.Done()
					buffer, err := transform.Render(originals[stem], request.TempoRatio, request.PitchRatio)
					if err != nil {
						errs[stem] = fmt.Errorf("rendering %v: %w", stem, err)
						return
					}
					rendered[stem] = buffer
				}(stem)
			}
			wg.Wait()
			done <- firstError(errs[:])
		}()
		msg := renderDoneMsg{gen: gen, request: request}
		err, ok := TimeoutReceive(done, renderTimeout)
		switch {
		case !ok:
			msg.err = fmt.Errorf("render pass did not complete within %v", renderTimeout)
		case err != nil:
			msg.err = err
		default:
			msg.rendered = rendered
		}
		toEngine <- msg
	}()
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
