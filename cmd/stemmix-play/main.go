package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/stemmix/stemmix"
	"github.com/stemmix/stemmix/catalog"
	"github.com/stemmix/stemmix/engine"
	"github.com/stemmix/stemmix/midiin"
	"github.com/stemmix/stemmix/oto"
	"github.com/stemmix/stemmix/stretch"
	"github.com/stemmix/stemmix/version"
)

func main() {
	library := flag.String("library", "", "Library directory containing songs.yml. Overrides the preferences file.")
	list := flag.Bool("list", false, "List the songs of the library and exit.")
	bpm := flag.Int("bpm", 0, "Target tempo in beats per minute. 0 plays the song at its own tempo.")
	pitch := flag.Int("pitch", 0, "Pitch shift in semitones.")
	mute := flag.String("mute", "", "Comma-separated stems to start muted (bass, drums, other, vocals).")
	wavOut := flag.String("w", "", "Render the mix to the given .wav file instead of playing.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	midiInput := flag.String("midi", "", "Name prefix of the MIDI input to control playback with.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	preferences := MakePreferences()
	if preferences.YmlError != nil {
		fmt.Fprintf(os.Stderr, "warning: preferences.yml: %v\n", preferences.YmlError)
	}
	if *library == "" {
		*library = preferences.Library.Dir
	}
	if *library == "" {
		fmt.Fprintln(os.Stderr, "no library given; use -library or set library.dir in preferences.yml")
		os.Exit(1)
	}
	lib, err := catalog.Load(*library)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load library: %v\n", err)
		os.Exit(1)
	}
	if *list {
		for _, song := range lib.Songs() {
			fmt.Printf("%s - %s (%d bpm", song.Artist, song.Title, song.BPM)
			if song.Key != "" {
				fmt.Printf(", %s", song.Key)
			}
			fmt.Println(")")
		}
		os.Exit(0)
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(0)
	}
	song, ok := lib.Find(flag.Arg(0))
	if !ok {
		fmt.Fprintf(os.Stderr, "song %q is not in the library; try -list\n", flag.Arg(0))
		os.Exit(1)
	}
	var muted [stemmix.NumStems]bool
	if *mute != "" {
		for _, name := range strings.Split(*mute, ",") {
			stem, err := stemmix.ParseStem(strings.TrimSpace(name))
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}
			muted[stem] = true
		}
	}

	var sink stemmix.PlaybackSink
	if *wavOut == "" {
		otoContext, err := oto.NewContext(preferences.Audio.SampleRate, preferences.Audio.Channels)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not acquire audio output: %v\n", err)
			os.Exit(1)
		}
		defer otoContext.Close()
		sink = otoContext
	}
	broker := engine.NewBroker()
	go engine.New(broker, lib, stemmix.WavDecoder{}, stretch.Engine{}, sink).Run()
	defer quit(broker)

	if *midiInput != "" {
		midiContext := midiin.NewContext(broker)
		defer midiContext.Close()
		if err := midiContext.TryToOpenBy(*midiInput, false); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		} else {
			midiContext.SetSong(song)
		}
	}

	broker.ToEngine <- engine.LoadSongMsg{Song: song}
	if err := waitFor(broker, engine.StateReady); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	for _, stem := range stemmix.Stems() {
		if muted[stem] {
			broker.ToEngine <- engine.MuteMsg{Stem: stem, Muted: true}
		}
	}
	curBPM, curPitch := song.BPM, 0
	if *bpm != 0 || *pitch != 0 {
		if *bpm != 0 {
			curBPM = *bpm
		}
		curPitch = *pitch
		broker.ToEngine <- engine.TransformMsg{BPM: curBPM, Semitones: curPitch}
		if err := waitFor(broker, engine.StateProcessed); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	if *wavOut != "" {
		f, err := os.Create(*wavOut)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not create %v: %v\n", *wavOut, err)
			os.Exit(1)
		}
		broker.ToEngine <- engine.ExportMsg{WC: f, PCM16: *pcm}
		if err := waitForAlert(broker, "Export"); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}
	broker.ToEngine <- engine.PlayMsg{}
	if err := waitFor(broker, engine.StatePlaying); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	commandLoop(broker, &curBPM, &curPitch)
}

// commandLoop reads commands from standard input and forwards them to
// the engine, printing the alerts and state changes coming back. It
// returns when the user quits or stdin closes.
func commandLoop(broker *engine.Broker, curBPM, curPitch *int) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()
	fmt.Println("commands: play | stop | bpm N | pitch N | mute STEM | unmute STEM | export FILE | quit")
	var muted [stemmix.NumStems]bool
	for {
		select {
		case msg := <-broker.ToUI:
			printAlert(msg)
			muted = msg.Mutes
		case line, ok := <-lines:
			if !ok {
				return
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			switch fields[0] {
			case "play":
				broker.ToEngine <- engine.PlayMsg{}
			case "stop":
				broker.ToEngine <- engine.StopMsg{}
			case "bpm", "pitch":
				if len(fields) != 2 {
					fmt.Fprintf(os.Stderr, "usage: %s N\n", fields[0])
					continue
				}
				n, err := strconv.Atoi(fields[1])
				if err != nil {
					fmt.Fprintf(os.Stderr, "%q is not a number\n", fields[1])
					continue
				}
				if fields[0] == "bpm" {
					*curBPM = n
				} else {
					*curPitch = n
				}
				broker.ToEngine <- engine.TransformMsg{BPM: *curBPM, Semitones: *curPitch}
			case "mute", "unmute":
				if len(fields) != 2 {
					fmt.Fprintf(os.Stderr, "usage: %s STEM\n", fields[0])
					continue
				}
				stem, err := stemmix.ParseStem(fields[1])
				if err != nil {
					fmt.Fprintf(os.Stderr, "%v\n", err)
					continue
				}
				muted[stem] = fields[0] == "mute"
				broker.ToEngine <- engine.MuteMsg{Stem: stem, Muted: muted[stem]}
			case "export":
				if len(fields) != 2 {
					fmt.Fprintln(os.Stderr, "usage: export FILE")
					continue
				}
				f, err := os.Create(fields[1])
				if err != nil {
					fmt.Fprintf(os.Stderr, "could not create %v: %v\n", fields[1], err)
					continue
				}
				broker.ToEngine <- engine.ExportMsg{WC: f}
			case "quit", "q":
				return
			default:
				fmt.Fprintf(os.Stderr, "unknown command %q\n", fields[0])
			}
		}
	}
}

// waitFor drains UI messages until the engine reaches the wanted state,
// failing early if an error-priority alert arrives instead.
func waitFor(broker *engine.Broker, want engine.State) error {
	for {
		msg, ok := engine.TimeoutReceive(broker.ToUI, 5*time.Minute)
		if !ok {
			return fmt.Errorf("timed out waiting for the engine to reach state %v", want)
		}
		printAlert(msg)
		if alert, ok := msg.Data.(engine.Alert); ok && alert.Priority == engine.Error {
			return fmt.Errorf("%s: %s", alert.Name, alert.Message)
		}
		if msg.State == want {
			return nil
		}
	}
}

func waitForAlert(broker *engine.Broker, name string) error {
	for {
		msg, ok := engine.TimeoutReceive(broker.ToUI, 5*time.Minute)
		if !ok {
			return fmt.Errorf("timed out waiting for %v to finish", name)
		}
		alert, isAlert := msg.Data.(engine.Alert)
		printAlert(msg)
		if !isAlert || alert.Name != name {
			continue
		}
		if alert.Priority == engine.Error {
			return fmt.Errorf("%s: %s", alert.Name, alert.Message)
		}
		return nil
	}
}

func printAlert(msg engine.MsgToUI) {
	alert, ok := msg.Data.(engine.Alert)
	if !ok {
		return
	}
	switch alert.Priority {
	case engine.Warning:
		fmt.Fprintf(os.Stderr, "warning: %s\n", alert.Message)
	case engine.Error:
		fmt.Fprintf(os.Stderr, "error: %s\n", alert.Message)
	default:
		fmt.Println(alert.Message)
	}
}

func quit(broker *engine.Broker) {
	broker.ToEngine <- engine.QuitMsg{}
	engine.TimeoutReceive(broker.FinishedEngine, time.Second)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Stemmix command line utility for playing multi-stem songs.\nUsage: %s [flags] \"song title\"\n", os.Args[0])
	flag.PrintDefaults()
}
