// Package bloom defines the six cognitive levels of Bloom's taxonomy in
// their canonical order.
package bloom

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Level is one of the six fixed Bloom levels. The zero value is Remember.
type Level int

const (
	Remember Level = iota
	Understand
	Apply
	Analyze
	Evaluate
	Create
)

// Levels lists every level in canonical order. Callers must not modify it.
var Levels = []Level{Remember, Understand, Apply, Analyze, Evaluate, Create}

var names = [...]string{"Remember", "Understand", "Apply", "Analyze", "Evaluate", "Create"}

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return names[l]
}

// Valid reports whether l is one of the six defined levels.
func (l Level) Valid() bool {
	return l >= Remember && l <= Create
}

// ParseLevel maps a label such as "remember", "APPLY" or " Analyse " to its
// Level. British spellings of Analyze are accepted.
func ParseLevel(s string) (Level, error) {
	label := cases.Title(language.English).String(strings.TrimSpace(s))
	if label == "Analyse" {
		label = "Analyze"
	}
	for i, name := range names {
		if name == label {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown bloom level %q", s)
}

// MarshalText encodes the level by name so maps keyed by Level serialize
// as {"Remember": ...}.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid bloom level %d", int(l))
	}
	return []byte(names[l]), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
