// Package stretch is the built-in transform engine: an offline
// overlap-add time-stretch followed by a linear resampler. It trades
// fidelity for having no dependencies on external processors, and it
// keeps the two ratios strictly independent: tempo only changes
// duration, pitch only changes frequency content.
package stretch

import (
	"fmt"
	"math"

	"github.com/viterin/vek/vek32"

	"github.com/stemmix/stemmix"
)

// Engine implements stemmix.TransformEngine.
type Engine struct{}

const (
	grainSize = 2048 // analysis/synthesis grain, samples per channel
	grainHop  = grainSize / 4
)

// Render returns a new buffer playing at tempoRatio times the speed
// and pitchRatio times the frequency of the input. The output frame
// count is round(frames/tempoRatio) by construction. A request with
// both ratios equal to 1 is a bit-exact pass-through.
func (Engine) Render(buffer *stemmix.AudioBuffer, tempoRatio, pitchRatio float64) (*stemmix.AudioBuffer, error) {
	if buffer == nil {
		return nil, fmt.Errorf("nil buffer")
	}
	if tempoRatio <= 0 || pitchRatio <= 0 {
		return nil, fmt.Errorf("ratios must be positive, got tempo %v, pitch %v", tempoRatio, pitchRatio)
	}
	if tempoRatio == 1 && pitchRatio == 1 {
		return buffer.Clone(), nil
	}
	frames := buffer.Frames()
	outFrames := int(math.Round(float64(frames) / tempoRatio))
	out := &stemmix.AudioBuffer{
		SampleRate: buffer.SampleRate,
		Channels:   buffer.Channels,
		Samples:    make([]float32, outFrames*buffer.Channels),
	}
	if frames == 0 || outFrames == 0 {
		return out, nil
	}
	// stretch by pitch/tempo first, then resample by pitch: the
	// resampling undoes the extra length and shifts the pitch, leaving
	// duration scaled by 1/tempo and pitch scaled by pitch
	alpha := pitchRatio / tempoRatio
	channel := make([]float32, frames)
	for ch := 0; ch < buffer.Channels; ch++ {
		for i := 0; i < frames; i++ {
			channel[i] = buffer.Samples[i*buffer.Channels+ch]
		}
		stretched := overlapAdd(channel, alpha)
		resampleInto(stretched, pitchRatio, out.Samples, ch, buffer.Channels, outFrames)
	}
	return out, nil
}

// overlapAdd time-stretches x by alpha without changing its pitch:
// hann-windowed grains are read at hop/alpha intervals and laid down at
// hop intervals, normalized by the accumulated window sum.
func overlapAdd(x []float32, alpha float64) []float32 {
	outLen := int(math.Round(float64(len(x)) * alpha))
	if outLen == 0 {
		return nil
	}
	if alpha == 1 {
		out := make([]float32, len(x))
		copy(out, x)
		return out
	}
	win := grainSize
	if win > len(x) {
		win = len(x)
	}
	hop := win / 4
	if hop < 1 {
		// input shorter than a single hop; grain machinery degenerates
		// to plain resampling
		out := make([]float32, outLen)
		resampleInto(x, 1/alpha, out, 0, 1, outLen)
		return out
	}
	window := hannWindow(win)
	out := make([]float32, outLen)
	wsum := make([]float32, outLen)
	grain := make([]float32, win)
	for so := 0; so < outLen; so += hop {
		sa := int(math.Round(float64(so) / alpha))
		if sa > len(x)-win {
			sa = len(x) - win
		}
		vek32.Mul_Into(grain, x[sa:sa+win], window)
		n := win
		if so+n > outLen {
			n = outLen - so
		}
		vek32.Add_Inplace(out[so:so+n], grain[:n])
		vek32.Add_Inplace(wsum[so:so+n], window[:n])
	}
	for i, w := range wsum {
		if w > 1e-6 {
			out[i] /= w
		}
	}
	return out
}

// resampleInto reads x at positions i*step, linearly interpolated, and
// writes outFrames samples into channel ch of the interleaved dst.
func resampleInto(x []float32, step float64, dst []float32, ch, channels, outFrames int) {
	if len(x) == 0 {
		return
	}
	last := len(x) - 1
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * step
		j := int(pos)
		var v float32
		if j >= last {
			v = x[last]
		} else {
			frac := float32(pos - float64(j))
			v = x[j] + (x[j+1]-x[j])*frac
		}
		dst[i*channels+ch] = v
	}
}

func hannWindow(n int) []float32 {
	w := make([]float32, n)
	for i := range w {
		w[i] = float32(0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	return w
}
