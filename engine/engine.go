package engine

import (
	"fmt"
	"time"

	"github.com/stemmix/stemmix"
)

type (
	// Engine owns the track buffer set, the processing state, the mute
	// router and at most one playback session, and drives all
	// transitions between them. It is run in a separate goroutine and
	// controlled by messages posted to the broker's ToEngine channel;
	// after every handled message it pushes a state snapshot (and
	// possibly an alert) to ToUI.
	//
	// All shared state is mutated only here, on the control goroutine,
	// after a load or render pass has fully completed. The concurrent
	// phases of a pass write into private slots (see startLoad and
	// startRenderPass), so no locking is needed anywhere.
	Engine struct {
		broker    *Broker
		source    stemmix.StemSource
		decoder   stemmix.Decoder
		transform stemmix.TransformEngine
		sink      stemmix.PlaybackSink

		state      State
		song       stemmix.Song
		tracks     TrackSet
		processing ProcessingState
		mutes      MuteRouter
		session    *Session
		rendered   bool // has any render pass succeeded for this song

		// pass generations; a completion message whose generation is no
		// longer current is discarded on arrival
		loadGen   int
		renderGen int

		// the states to return to when an in-flight pass fails
		preLoad   State
		preRender State
	}

	// State is the engine's top-level orchestration state.
	State int

	// LoadSongMsg selects a new song, discarding the current session
	// and, once the load succeeds, all buffers and processing state.
	LoadSongMsg struct {
		Song stemmix.Song
	}

	// TransformMsg requests playback at a new tempo/pitch. If the
	// request differs from the last rendered one, a render pass starts;
	// re-confirming an unchanged setting is a no-op.
	TransformMsg struct {
		BPM       int
		Semitones int
	}

	// PlayMsg starts a synchronized session from the current playable
	// buffers and mute flags. Rejected, not queued, while a load or
	// render is in progress. An already-active session is fully stopped
	// first.
	PlayMsg struct{}

	// StopMsg stops the active session, if any.
	StopMsg struct{}

	// MuteMsg toggles one stem's mute routing. Always legal; a live
	// session is unaffected until the next start.
	MuteMsg struct {
		Stem  stemmix.Stem
		Muted bool
	}

	// QuitMsg makes Run tear down and return; FinishedEngine is closed
	// once cleanup is done.
	QuitMsg struct{}
)

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateRendering
	StateProcessed
	StatePlaying
)

var stateNames = [...]string{"empty", "loading", "ready", "rendering", "processed", "playing"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func New(broker *Broker, source stemmix.StemSource, decoder stemmix.Decoder, transform stemmix.TransformEngine, sink stemmix.PlaybackSink) *Engine {
	return &Engine{
		broker:    broker,
		source:    source,
		decoder:   decoder,
		transform: transform,
		sink:      sink,
	}
}

// Run processes messages until a QuitMsg arrives. It is the single
// control thread: every state transition of the engine happens inside
// this loop.
func (e *Engine) Run() {
	defer close(e.broker.FinishedEngine)
	for msg := range e.broker.ToEngine {
		e.reapSession()
		switch m := msg.(type) {
		case LoadSongMsg:
			e.loadSong(m.Song)
		case loadDoneMsg:
			e.finishLoad(m)
		case TransformMsg:
			e.requestTransform(m)
		case renderDoneMsg:
			e.finishRender(m)
		case PlayMsg:
			e.play()
		case StopMsg:
			e.stopPlayback()
		case MuteMsg:
			e.mutes.SetMuted(m.Stem, m.Muted)
			e.sendState(nil)
		case ExportMsg:
			e.export(m)
		case QuitMsg:
			e.stopSession()
			return
		default:
			// ignore unknown messages
		}
	}
}

func (e *Engine) loadSong(song stemmix.Song) {
	if err := song.Validate(); err != nil {
		e.alert("LoadFailure", fmt.Sprintf("cannot load song: %v", err), Error)
		return
	}
	e.stopSession()
	e.renderGen++ // a pass rendered for the previous song must not land
	if e.state != StateLoading {
		// the session is gone and in-flight passes are invalidated, so a
		// failed load returns to the resting state of the old data, never
		// to Playing or Rendering
		e.preLoad = e.readyState()
	}
	e.state = StateLoading
	e.startLoad(song)
	e.sendState(nil)
}

func (e *Engine) finishLoad(m loadDoneMsg) {
	if m.gen != e.loadGen {
		return // a newer song was selected while this one loaded
	}
	if m.err != nil {
		// all-or-nothing: the previous song's buffers stay untouched
		e.state = e.preLoad
		e.alert("LoadFailure", fmt.Sprintf("loading %q failed: %v", m.song.Title, m.err), Error)
		return
	}
	e.song = m.song
	e.tracks.SetOriginals(m.originals)
	// the untouched originals are a faithful rendering of the song at
	// its own tempo and pitch, so seed the processing state with the
	// identity transform
	e.processing.Reset()
	e.processing.Apply(stemmix.IdentityTransform())
	e.rendered = false
	e.state = StateReady
	e.sendState(nil)
}

func (e *Engine) requestTransform(m TransformMsg) {
	switch e.state {
	case StateEmpty:
		e.alert("Transform", "no song loaded", Warning)
		return
	case StateLoading:
		e.alert("Transform", "cannot change tempo or pitch while loading", Warning)
		return
	case StatePlaying:
		e.alert("Transform", "stop playback before changing tempo or pitch", Warning)
		return
	}
	request, err := e.song.Transform(m.BPM, m.Semitones)
	if err != nil {
		e.alert("Transform", err.Error(), Warning)
		return
	}
	if !e.processing.Dirty(request) {
		e.alert("Transform", "transform already applied", Info)
		return
	}
	if e.state != StateRendering {
		e.preRender = e.state
	}
	e.state = StateRendering
	e.startRenderPass(request)
	e.sendState(nil)
}

func (e *Engine) finishRender(m renderDoneMsg) {
	if m.gen != e.renderGen {
		return // stale pass, a newer one was requested; discard
	}
	if m.err != nil {
		e.state = e.preRender
		e.alert("RenderFailure", fmt.Sprintf("render pass failed: %v", m.err), Error)
		return
	}
	e.tracks.SwapPlayables(m.rendered)
	e.processing.Apply(m.request)
	e.rendered = true
	e.state = StateProcessed
	e.sendState(nil)
}

func (e *Engine) play() {
	switch e.state {
	case StateEmpty:
		e.alert("Playback", "no song loaded", Warning)
		return
	case StateLoading:
		e.alert("Playback", "cannot play while loading", Warning)
		return
	case StateRendering:
		e.alert("Playback", "cannot play while a render pass is in progress", Warning)
		return
	}
	// never let two sessions overlap: the old one is fully stopped
	// before the new one prepares its first handle
	e.stopSession()
	session, err := startSession(e.sink, &e.tracks, &e.mutes)
	if err != nil {
		e.state = e.readyState()
		e.alert("PlaybackFailure", fmt.Sprintf("starting playback failed: %v", err), Error)
		return
	}
	e.session = session
	e.state = StatePlaying
	e.sendState(nil)
}

func (e *Engine) stopPlayback() {
	e.stopSession()
	if e.state == StatePlaying {
		e.state = e.readyState()
	}
	e.sendState(nil)
}

// reapSession notices, lazily on each message, that every handle of
// the session reached its natural end of data, and retires the session
// as if it had been stopped. A session whose shared start timestamp is
// still in the future counts as active even though no handle produces
// output yet.
func (e *Engine) reapSession() {
	if e.state != StatePlaying || e.session == nil {
		return
	}
	if time.Now().Before(e.session.StartedAt()) || e.session.Active() {
		return
	}
	e.stopSession()
	e.state = e.readyState()
}

func (e *Engine) stopSession() {
	if e.session != nil {
		e.session.Stop()
		e.session = nil
	}
}

// readyState is the resting state for the currently loaded data.
func (e *Engine) readyState() State {
	if !e.tracks.Loaded() {
		return StateEmpty
	}
	if e.rendered {
		return StateProcessed
	}
	return StateReady
}

func (e *Engine) alert(name, message string, priority AlertPriority) {
	e.sendState(Alert{
		Name:     name,
		Priority: priority,
		Message:  message,
		Duration: defaultAlertDuration,
	})
}

// all sends to the UI are non-blocking, so the engine loop can never
// dead-lock on a slow or absent consumer
func (e *Engine) sendState(data any) {
	TrySend(e.broker.ToUI, e.snapshot(data))
}

func (e *Engine) snapshot(data any) MsgToUI {
	applied, hasApplied := e.processing.Applied()
	return MsgToUI{
		State:      e.state,
		Song:       e.song,
		Applied:    applied,
		HasApplied: hasApplied,
		Mutes:      [stemmix.NumStems]bool(e.mutes),
		Data:       data,
	}
}
