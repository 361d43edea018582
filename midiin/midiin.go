// Package midiin is a small MIDI control surface for the engine: four
// pads toggle the stem mutes, two more start and stop playback, and
// two knobs request tempo and pitch. Everything is forwarded to the
// engine as ordinary broker messages; the engine neither knows nor
// cares that a controller exists.
package midiin

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/stemmix/stemmix"
	"github.com/stemmix/stemmix/engine"
)

// Pad and knob assignments, chosen to sit on the bottom pad row and
// first knobs of common controllers.
const (
	noteMuteBase = 36 // 36..39 toggle bass, drums, other, vocals
	notePlay     = 41
	noteStop     = 43
	ccTempo      = 16
	ccPitch      = 17
)

type Context struct {
	driver    *rtmididrv.Driver
	currentIn drivers.In
	broker    *engine.Broker

	mu      sync.Mutex
	song    stemmix.Song
	hasSong bool
	muted   [stemmix.NumStems]bool
	bpm     int
	pitch   int
}

// NewContext opens the MIDI driver. A failing driver is not an error;
// the context just has no devices then.
func NewContext(broker *engine.Broker) *Context {
	c := &Context{broker: broker}
	// there's not much we can do if this fails, so just use c.driver =
	// nil to indicate no driver available
	c.driver, _ = rtmididrv.New()
	return c
}

// InputDevices lists the names of the available MIDI inputs.
func (c *Context) InputDevices() []string {
	if c.driver == nil {
		return nil
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names
}

// TryToOpenBy opens the first input whose name starts with namePrefix,
// or just the first input if takeFirst is set.
func (c *Context) TryToOpenBy(namePrefix string, takeFirst bool) error {
	if namePrefix == "" && !takeFirst {
		return nil
	}
	if c.driver == nil {
		return errors.New("no MIDI driver available")
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return fmt.Errorf("listing MIDI inputs failed: %w", err)
	}
	for _, in := range ins {
		if takeFirst || strings.HasPrefix(in.String(), namePrefix) {
			return c.open(in)
		}
	}
	return fmt.Errorf("no MIDI input starting with %q", namePrefix)
}

func (c *Context) open(in drivers.In) error {
	if c.currentIn == in {
		return nil
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.currentIn = in
	if err := in.Open(); err != nil {
		c.currentIn = nil
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	if _, err := midi.ListenTo(in, c.HandleMessage); err != nil {
		in.Close()
		c.currentIn = nil
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	return nil
}

// SetSong tells the surface the base tempo the knob positions are
// mapped around. Called by whoever loads songs into the engine.
func (c *Context) SetSong(song stemmix.Song) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.song = song
	c.hasSong = true
	c.bpm = song.BPM
	c.pitch = 0
	c.muted = [stemmix.NumStems]bool{}
}

// HandleMessage translates one incoming MIDI message into an engine
// message. Sends are non-blocking; if the engine queue is full the
// gesture is dropped, which beats stalling the MIDI driver callback.
func (c *Context) HandleMessage(msg midi.Message, timestampms int32) {
	var channel, key, velocity uint8
	var controller, value uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		c.handleNote(key)
	case msg.GetControlChange(&channel, &controller, &value):
		c.handleControl(controller, value)
	}
}

func (c *Context) handleNote(key uint8) {
	switch {
	case key >= noteMuteBase && key < noteMuteBase+uint8(stemmix.NumStems):
		stem := stemmix.Stem(key - noteMuteBase)
		c.mu.Lock()
		c.muted[stem] = !c.muted[stem]
		muted := c.muted[stem]
		c.mu.Unlock()
		engine.TrySend(c.broker.ToEngine, any(engine.MuteMsg{Stem: stem, Muted: muted}))
	case key == notePlay:
		engine.TrySend(c.broker.ToEngine, any(engine.PlayMsg{}))
	case key == noteStop:
		engine.TrySend(c.broker.ToEngine, any(engine.StopMsg{}))
	}
}

func (c *Context) handleControl(controller, value uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasSong {
		return
	}
	switch controller {
	case ccTempo:
		bpm := c.song.BPM + (int(value)-64)*stemmix.MaxBPMOffset/64
		if bpm == c.bpm {
			return
		}
		c.bpm = bpm
	case ccPitch:
		pitch := (int(value) - 64) * stemmix.MaxSemitones / 64
		if pitch == c.pitch {
			return
		}
		c.pitch = pitch
	default:
		return
	}
	engine.TrySend(c.broker.ToEngine, any(engine.TransformMsg{BPM: c.bpm, Semitones: c.pitch}))
}

func (c *Context) Close() {
	if c.driver == nil {
		return
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.driver.Close()
}
