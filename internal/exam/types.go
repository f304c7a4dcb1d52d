// Package exam reads exam definitions (outcomes, Bloom weights and question
// types) from YAML files and turns them into authoring input.
package exam

import (
	"errors"
	"fmt"

	"github.com/p-n-ai/pai-tos/internal/authoring"
	"github.com/p-n-ai/pai-tos/internal/bloom"
	"github.com/p-n-ai/pai-tos/internal/qtype"
	"github.com/p-n-ai/pai-tos/internal/tos"
)

// Definition is an exam definition loaded from YAML.
type Definition struct {
	ID            string         `yaml:"id"`
	Title         string         `yaml:"title"`
	Author        string         `yaml:"author"`
	Subject       string         `yaml:"subject"`
	TotalItems    int            `yaml:"total_items"`
	Shuffle       bool           `yaml:"shuffle"`
	Seed          *uint64        `yaml:"seed"`
	Outcomes      []Outcome      `yaml:"outcomes"`
	Weights       map[string]int `yaml:"bloom_weights"`
	QuestionTypes []QuestionType `yaml:"question_types"`

	// Path is the file the definition was read from.
	Path string `yaml:"-"`
}

// Outcome is a learning outcome entry. ID defaults to the entry's position
// when omitted.
type Outcome struct {
	ID    *int    `yaml:"id"`
	Text  string  `yaml:"text"`
	Hours float64 `yaml:"hours"`
}

// QuestionType is one row of the question-type distribution.
type QuestionType struct {
	Type          string  `yaml:"type"`
	Items         int     `yaml:"items"`
	PointsPerItem float64 `yaml:"points_per_item"`
}

// ToInput converts d into authoring input. Bloom level names are matched
// case-insensitively; an unknown name is an error. Question types with zero
// items are switched off and dropped. Everything else is left to authoring
// validation.
func (d *Definition) ToInput() (authoring.Input, error) {
	weights := make(tos.Weights, len(d.Weights))
	var errs []error
	for name, pct := range d.Weights {
		l, err := bloom.ParseLevel(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := weights[l]; dup {
			errs = append(errs, fmt.Errorf("bloom level %s listed twice", l))
			continue
		}
		weights[l] = pct
	}
	if len(errs) > 0 {
		return authoring.Input{}, fmt.Errorf("exam %q: %w", d.ID, errors.Join(errs...))
	}

	outcomes := make([]tos.Outcome, len(d.Outcomes))
	for i, o := range d.Outcomes {
		id := i
		if o.ID != nil {
			id = *o.ID
		}
		outcomes[i] = tos.Outcome{ID: id, Text: o.Text, Hours: o.Hours}
	}

	dist := make(qtype.Distribution, len(d.QuestionTypes))
	for i, qt := range d.QuestionTypes {
		dist[i] = qtype.Entry{Type: qt.Type, Items: qt.Items, PointsPerItem: qt.PointsPerItem}
	}
	dist = qtype.Active(dist)

	totalItems := d.TotalItems
	if totalItems == 0 {
		totalItems, _ = qtype.Totals(dist)
	}

	return authoring.Input{
		Title:        d.Title,
		AuthorID:     d.Author,
		Outcomes:     outcomes,
		Weights:      weights,
		TotalItems:   totalItems,
		Distribution: qtype.WithIDs(dist),
		Shuffle:      d.Shuffle,
		Seed:         d.Seed,
	}, nil
}
