package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/diary/pkg/diary/heuristic"
	"github.com/cognicore/diary/pkg/diary/keywords"
)

// Loader loads the optional lexicon and marker files and constructs the
// text components.
type Loader struct {
	LexiconPath string
	MarkersPath string
}

// Components holds the loaded text components.
type Components struct {
	Normalizer *keywords.Normalizer
	Classifier *heuristic.Classifier
}

// LoadLexicon reads a keywords.Lexicon from a YAML file.
func LoadLexicon(path string) (keywords.Lexicon, error) {
	var lex keywords.Lexicon
	if err := readYAML(path, &lex); err != nil {
		return keywords.Lexicon{}, err
	}
	return lex, nil
}

// LoadMarkers reads heuristic.Markers from a YAML file.
func LoadMarkers(path string) (heuristic.Markers, error) {
	var m heuristic.Markers
	if err := readYAML(path, &m); err != nil {
		return heuristic.Markers{}, err
	}
	return m, nil
}

// Load builds the components. Non-empty lists in a given file replace the
// matching built-in list; omitted lists keep the defaults.
func (l *Loader) Load() (*Components, error) {
	lex := keywords.DefaultLexicon()
	if l.LexiconPath != "" {
		override, err := LoadLexicon(l.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		lex = lex.Merge(override)
	}

	markers := heuristic.DefaultMarkers()
	if l.MarkersPath != "" {
		override, err := LoadMarkers(l.MarkersPath)
		if err != nil {
			return nil, fmt.Errorf("load markers: %w", err)
		}
		markers = markers.Merge(override)
	}

	return &Components{
		Normalizer: keywords.New(lex),
		Classifier: heuristic.New(markers),
	}, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
