package oto

import (
	"sync"
	"testing"
	"time"
)

type fakePlayer struct {
	mu      sync.Mutex
	played  bool
	playing bool
	closes  int
}

func (p *fakePlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closes > 0 {
		panic("Play on a closed player")
	}
	p.played = true
	p.playing = true
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

func (p *fakePlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) SetVolume(volume float64) {}

func (p *fakePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	return nil
}

func (p *fakePlayer) state() (played bool, closes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played, p.closes
}

func TestStopCancelsDeferredStart(t *testing.T) {
	p := &fakePlayer{}
	h := &handle{player: p}
	h.StartAt(time.Now().Add(50 * time.Millisecond))
	h.Stop()
	time.Sleep(120 * time.Millisecond) // let a surviving timer fire
	played, closes := p.state()
	if played {
		t.Errorf("a stopped handle still started its player")
	}
	if closes != 1 {
		t.Errorf("player closed %d times, want 1", closes)
	}
	if h.Playing() {
		t.Errorf("stopped handle reports playing")
	}
}

func TestStartAtPastStartsImmediately(t *testing.T) {
	p := &fakePlayer{}
	h := &handle{player: p}
	h.StartAt(time.Now().Add(-time.Second))
	if played, _ := p.state(); !played {
		t.Errorf("a start time in the past should play immediately")
	}
	if !h.Playing() {
		t.Errorf("started handle does not report playing")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	p := &fakePlayer{}
	h := &handle{player: p}
	h.StartAt(time.Now())
	h.Stop()
	h.Stop()
	if _, closes := p.state(); closes != 1 {
		t.Errorf("player closed %d times, want 1", closes)
	}
}

func TestStartAfterStopIsNoop(t *testing.T) {
	p := &fakePlayer{}
	h := &handle{player: p}
	h.Stop()
	h.StartAt(time.Now())
	if played, _ := p.state(); played {
		t.Errorf("StartAt after Stop started a closed player")
	}
}
