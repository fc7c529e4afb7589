package refscript

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DeckFile is the top-level structure of a practice deck YAML file.
//
// Example:
//
//	deck:
//	  name: "Business news 1"
//	  pair: "ko-zh"
//	units:
//	  - title: "Market open"
//	    language: ko
//	    primary: "오늘 코스피는 상승 출발했습니다."
//	    opposite: "今天韩国综合股价指数高开。"
//	    key_points:
//	      - "index rose at the open"
type DeckFile struct {
	Deck  DeckMeta `yaml:"deck"`
	Units []Unit   `yaml:"units"`
}

// DeckMeta holds top-level metadata for a practice deck.
type DeckMeta struct {
	// Name is the deck's display name.
	Name string `yaml:"name"`

	// Description is a free-text summary of the deck.
	Description string `yaml:"description"`

	// Pair names the language pair, e.g. "ko-zh".
	Pair string `yaml:"pair"`
}

// LoadDeckFile reads and parses a practice deck YAML file from disk.
// Returns a descriptive error if the file cannot be opened or parsed.
func LoadDeckFile(path string) (*DeckFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("refscript: open deck file %q: %w", path, err)
	}
	defer f.Close()

	df, err := LoadDeckFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("refscript: parse deck file %q: %w", path, err)
	}
	return df, nil
}

// LoadDeckFromReader parses deck YAML from an [io.Reader].
// The reader is consumed entirely; the caller is responsible for closing it.
func LoadDeckFromReader(r io.Reader) (*DeckFile, error) {
	var df DeckFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&df); err != nil {
		return nil, fmt.Errorf("refscript: decode deck yaml: %w", err)
	}
	return &df, nil
}

// ImportDeck validates and imports all units from a parsed [DeckFile] into
// store. Returns the number of units successfully imported.
// A validation failure or store error aborts the import and returns the
// count so far.
func ImportDeck(ctx context.Context, store Store, deck *DeckFile) (int, error) {
	if deck == nil {
		return 0, fmt.Errorf("refscript: deck must not be nil")
	}
	for i, u := range deck.Units {
		if err := Validate(u); err != nil {
			return 0, fmt.Errorf("refscript: deck %q unit[%d]: %w", deck.Deck.Name, i, err)
		}
	}
	n, err := store.BulkImport(ctx, deck.Units)
	if err != nil {
		return n, fmt.Errorf("refscript: import deck %q: %w", deck.Deck.Name, err)
	}
	return n, nil
}
