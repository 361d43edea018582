package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stemmix/stemmix"
	"github.com/stemmix/stemmix/catalog"
)

const testIndex = `songs:
  - title: Zebra Crossing
    artist: Abbey
    bpm: 98
  - title: Alpenglow
    artist: Zed
    key: Dm
    bpm: 124
    stems:
      vocals: shared/alpenglow-vox.wav
`

func writeLibrary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "songs.yml"), []byte(testIndex), 0644); err != nil {
		t.Fatalf("writing index: %v", err)
	}
	return dir
}

func TestLoadAndSort(t *testing.T) {
	lib, err := catalog.Load(writeLibrary(t))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	songs := lib.Songs()
	if len(songs) != 2 {
		t.Fatalf("got %d songs, want 2", len(songs))
	}
	if songs[0].Title != "Alpenglow" || songs[1].Title != "Zebra Crossing" {
		t.Errorf("songs not collated by title: %v, %v", songs[0].Title, songs[1].Title)
	}
	if songs[0].BPM != 124 || songs[0].Key != "Dm" {
		t.Errorf("song metadata lost: %+v", songs[0])
	}
}

func TestLoadRejectsBadIndex(t *testing.T) {
	for name, index := range map[string]string{
		"no bpm":       "songs:\n  - title: X\n",
		"unknown stem": "songs:\n  - title: X\n    bpm: 100\n    stems:\n      guitar: x.wav\n",
	} {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "songs.yml"), []byte(index), 0644); err != nil {
			t.Fatalf("writing index: %v", err)
		}
		if _, err := catalog.Load(dir); err == nil {
			t.Errorf("Load accepted an index with %s", name)
		}
	}
	if _, err := catalog.Load(t.TempDir()); err == nil {
		t.Errorf("Load accepted a directory without an index")
	}
}

func TestFind(t *testing.T) {
	lib, err := catalog.Load(writeLibrary(t))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	song, ok := lib.Find("alpenglow")
	if !ok {
		t.Fatalf("Find is not case-insensitive")
	}
	if song.Artist != "Zed" {
		t.Errorf("Find returned %+v", song)
	}
	if _, ok := lib.Find("unknown"); ok {
		t.Errorf("Find invented a song")
	}
}

func TestFetchStem(t *testing.T) {
	dir := writeLibrary(t)
	songDir := filepath.Join(dir, "Abbey - Zebra Crossing")
	if err := os.MkdirAll(songDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	want := []byte("fake wav bytes")
	if err := os.WriteFile(filepath.Join(songDir, "drums.wav"), want, 0644); err != nil {
		t.Fatalf("writing stem: %v", err)
	}
	lib, err := catalog.Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	song, _ := lib.Find("Zebra Crossing")
	got, err := lib.FetchStem(song, stemmix.StemDrums)
	if err != nil {
		t.Fatalf("FetchStem error: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("FetchStem returned %q", got)
	}
	// a stem with no file is absent, not an error
	absent, err := lib.FetchStem(song, stemmix.StemVocals)
	if err != nil || absent != nil {
		t.Errorf("missing default stem: got (%v, %v), want (nil, nil)", absent, err)
	}
}

func TestFetchStemOverride(t *testing.T) {
	dir := writeLibrary(t)
	shared := filepath.Join(dir, "shared")
	if err := os.MkdirAll(shared, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	want := []byte("vox")
	if err := os.WriteFile(filepath.Join(shared, "alpenglow-vox.wav"), want, 0644); err != nil {
		t.Fatalf("writing stem: %v", err)
	}
	lib, err := catalog.Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	song, _ := lib.Find("Alpenglow")
	got, err := lib.FetchStem(song, stemmix.StemVocals)
	if err != nil {
		t.Fatalf("FetchStem error: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("FetchStem did not honor the override path, got %q", got)
	}
}

func TestFetchStemMissingOverrideIsError(t *testing.T) {
	lib, err := catalog.Load(writeLibrary(t))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	song, _ := lib.Find("Alpenglow")
	if _, err := lib.FetchStem(song, stemmix.StemVocals); err == nil {
		t.Errorf("a missing overridden stem should be an error, the index promised the file")
	}
}
