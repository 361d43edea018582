// Package catalog maps songs to their per-stem audio resources. A
// library is a directory with a songs.yml index; stems live in
// "<artist> - <title>/<stem>.wav" under that directory unless the index
// names an explicit path for them.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/stemmix/stemmix"
)

type (
	// Library is a loaded song index. It implements stemmix.StemSource.
	Library struct {
		dir     string
		entries []Entry
	}

	// Entry is one song record of the index: the song metadata plus
	// optional per-stem path overrides, relative to the library
	// directory.
	Entry struct {
		stemmix.Song `yaml:",inline"`
		Stems        map[string]string `yaml:",omitempty"`
	}

	index struct {
		Songs []Entry
	}
)

const indexFile = "songs.yml"

// Load reads the songs.yml index of the given directory.
func Load(dir string) (*Library, error) {
	data, err := os.ReadFile(filepath.Join(dir, indexFile))
	if err != nil {
		return nil, fmt.Errorf("could not read library index: %w", err)
	}
	var idx index
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("could not parse library index: %w", err)
	}
	for i, entry := range idx.Songs {
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("library index entry %d: %w", i, err)
		}
		for name := range entry.Stems {
			if _, err := stemmix.ParseStem(name); err != nil {
				return nil, fmt.Errorf("library index entry %d: %w", i, err)
			}
		}
	}
	return &Library{dir: dir, entries: idx.Songs}, nil
}

// Songs returns the songs of the library, collated by title and then
// artist.
func (l *Library) Songs() []stemmix.Song {
	c := collate.New(language.Und, collate.IgnoreCase)
	sorted := make([]Entry, len(l.entries))
	copy(sorted, l.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if r := c.CompareString(sorted[i].Title, sorted[j].Title); r != 0 {
			return r < 0
		}
		return c.CompareString(sorted[i].Artist, sorted[j].Artist) < 0
	})
	songs := make([]stemmix.Song, len(sorted))
	for i, entry := range sorted {
		songs[i] = entry.Song
	}
	return songs
}

// Find looks a song up by title, case-insensitively.
func (l *Library) Find(title string) (stemmix.Song, bool) {
	for _, entry := range l.entries {
		if strings.EqualFold(entry.Title, title) {
			return entry.Song, true
		}
	}
	return stemmix.Song{}, false
}

// StemPath resolves the resource path of one stem of a song.
func (l *Library) StemPath(song stemmix.Song, stem stemmix.Stem) string {
	for _, entry := range l.entries {
		if entry.Title == song.Title && entry.Artist == song.Artist {
			if override, ok := entry.Stems[stem.String()]; ok {
				return filepath.Join(l.dir, filepath.FromSlash(override))
			}
			break
		}
	}
	return filepath.Join(l.dir, song.Artist+" - "+song.Title, stem.String()+".wav")
}

// FetchStem implements stemmix.StemSource. A stem whose default file
// does not exist is reported as absent, not as an error; a missing
// explicitly-overridden file is an error, since the index promised it.
func (l *Library) FetchStem(song stemmix.Song, stem stemmix.Stem) ([]byte, error) {
	path := l.StemPath(song, stem)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !l.overridden(song, stem) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read stem file: %w", err)
	}
	return data, nil
}

func (l *Library) overridden(song stemmix.Song, stem stemmix.Stem) bool {
	for _, entry := range l.entries {
		if entry.Title == song.Title && entry.Artist == song.Artist {
			_, ok := entry.Stems[stem.String()]
			return ok
		}
	}
	return false
}
