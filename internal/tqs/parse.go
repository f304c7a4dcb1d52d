package tqs

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidResponse is returned when a drafting response cannot be used.
var ErrInvalidResponse = errors.New("invalid drafting response")

var (
	fencedJSON  = regexp.MustCompile("(?s)```(?:json)?\\s*([\\[{].*?[\\]}])\\s*```")
	choiceLabel = regexp.MustCompile(`^\s*\(?([A-Za-z])[\).:]\s+`)
)

// draft is the content the model supplies for one question.
type draft struct {
	QuestionText  string   `json:"question_text"`
	Choices       []string `json:"choices"`
	CorrectAnswer string   `json:"correct_answer"`
	AnswerKey     string   `json:"answer_key"`
	SampleAnswer  string   `json:"sample_answer"`
	Rubric        *Rubric  `json:"rubric"`
}

type payload struct {
	Questions []draft `json:"questions"`
}

// extractJSON pulls a JSON document out of a model reply, accepting fenced
// code blocks, prose around a bare object, or a bare array of questions.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	candidates := make([]string, 0, 3)
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, m[1])
	}
	if i, j := strings.IndexAny(text, "{["), strings.LastIndexAny(text, "}]"); i >= 0 && j > i {
		candidates = append(candidates, text[i:j+1])
	}
	candidates = append(candidates, text)

	for _, c := range candidates {
		if !json.Valid([]byte(c)) {
			continue
		}
		if strings.HasPrefix(c, "[") {
			c = `{"questions":` + c + `}`
		}
		return c, nil
	}
	return "", fmt.Errorf("%w: no JSON document found", ErrInvalidResponse)
}

// parseDrafts extracts, validates, and decodes a reply for questionType.
func parseDrafts(questionType, text string) ([]draft, error) {
	doc, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	if err := validatePayload(questionType, doc); err != nil {
		return nil, err
	}
	var p payload
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	for i := range p.Questions {
		normalizeChoices(&p.Questions[i])
	}
	return p.Questions, nil
}

// normalizeChoices strips "A) " style labels when every choice carries the
// label matching its position, and reduces the answer to its letter.
func normalizeChoices(d *draft) {
	labelled := len(d.Choices) > 0
	for i, c := range d.Choices {
		m := choiceLabel.FindStringSubmatch(c)
		if m == nil || strings.ToUpper(m[1]) != choiceLetter(i) {
			labelled = false
			break
		}
	}
	if labelled {
		for i, c := range d.Choices {
			d.Choices[i] = choiceLabel.ReplaceAllString(c, "")
		}
	}

	answer := strings.TrimSpace(d.CorrectAnswer)
	if m := choiceLabel.FindStringSubmatch(answer + " "); m != nil {
		answer = m[1]
	}
	if len(answer) == 1 {
		answer = strings.ToUpper(answer)
	}
	d.CorrectAnswer = answer
}
