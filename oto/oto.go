// Package oto adapts github.com/ebitengine/oto/v3 to the
// stemmix.PlaybackSink interface. One Context wraps the single
// process-wide oto context; every prepared stem gets its own player
// reading from an in-memory copy of its buffer.
package oto

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	oto "github.com/ebitengine/oto/v3"

	"github.com/stemmix/stemmix"
)

type (
	Context struct {
		ctx        *oto.Context
		sampleRate int
		channels   int
	}

	// player is the subset of *oto.Player a handle drives, split out so
	// the start/stop timing logic can be tested without an audio device.
	player interface {
		Play()
		Pause()
		IsPlaying() bool
		SetVolume(volume float64)
		Close() error
	}

	// handle is a one-shot player for one stem. Stop is idempotent and
	// cancels a pending deferred start.
	handle struct {
		player player

		mu      sync.Mutex
		timer   *time.Timer
		stopped bool
	}
)

// NewContext opens the audio device for the given output format. There
// can be only one oto context per process, so the caller creates this
// once, with the sample rate and channel count of the loaded stems.
func NewContext(sampleRate, channels int) (*Context, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx, sampleRate: sampleRate, channels: channels}, nil
}

// Prepare implements stemmix.PlaybackSink. A muted stem still gets a
// real player consuming data in real time, just with its volume routed
// to zero, so that mute routing never disturbs the timing of the rest
// of the session.
func (c *Context) Prepare(buffer *stemmix.AudioBuffer, muted bool) (stemmix.PlaybackHandle, error) {
	if buffer.SampleRate != c.sampleRate || buffer.Channels != c.channels {
		return nil, fmt.Errorf("buffer is %d Hz / %d ch but output is %d Hz / %d ch",
			buffer.SampleRate, buffer.Channels, c.sampleRate, c.channels)
	}
	p := c.ctx.NewPlayer(bytes.NewReader(FloatBufferToBytesLE(buffer.Samples)))
	if muted {
		p.SetVolume(0)
	}
	return &handle{player: p}, nil
}

// Close suspends the audio device. oto contexts cannot be destroyed.
func (c *Context) Close() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

func (h *handle) StartAt(t time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	if d := time.Until(t); d > 0 {
		// the timer can fire concurrently with Stop; recheck under the
		// mutex so Play never races a closed player
		h.timer = time.AfterFunc(d, func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.stopped {
				return
			}
			h.player.Play()
		})
		return
	}
	h.player.Play()
}

func (h *handle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped = true
	if h.timer != nil {
		h.timer.Stop()
	}
	if h.player.IsPlaying() {
		h.player.Pause()
	}
	h.player.Close()
}

func (h *handle) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	return h.player.IsPlaying()
}
