package tqs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-tos/internal/qtype"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"questions":[]}`, `{"questions":[]}`},
		{"fenced", "```json\n{\"questions\":[]}\n```", `{"questions":[]}`},
		{"fenced without tag", "```\n{\"questions\":[]}\n```", `{"questions":[]}`},
		{"prose around", "Sure! {\"questions\":[]} Hope this helps.", `{"questions":[]}`},
		{"bare array", `[{"question_text":"q"}]`, `{"questions":[{"question_text":"q"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, got)
		})
	}
}

func TestExtractJSON_NoDocument(t *testing.T) {
	_, err := extractJSON("no json here")
	assert.ErrorIs(t, err, ErrInvalidResponse)

	_, err = extractJSON("{not: json}")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestParseDrafts_SchemaRejects(t *testing.T) {
	tests := []struct {
		name         string
		questionType string
		reply        string
	}{
		{"mcq missing answer", qtype.MCQ, `{"questions":[{"question_text":"q","choices":["a","b"]}]}`},
		{"mcq one choice", qtype.MCQ, `{"questions":[{"question_text":"q","choices":["a"],"correct_answer":"A"}]}`},
		{"essay missing rubric", qtype.Essay, `{"questions":[{"question_text":"q","sample_answer":"s"}]}`},
		{"short missing key", qtype.ShortAnswer, `{"questions":[{"question_text":"q"}]}`},
		{"empty text", qtype.ShortAnswer, `{"questions":[{"question_text":"","answer_key":"k"}]}`},
		{"no questions key", qtype.MCQ, `{"items":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDrafts(tt.questionType, tt.reply)
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestParseDrafts_ShortAnswerRubricOptional(t *testing.T) {
	drafts, err := parseDrafts(qtype.ShortAnswer, `{"questions":[
		{"question_text":"q1","answer_key":"k1","rubric":null},
		{"question_text":"q2","answer_key":"k2","rubric":{"criteria":[{"descriptor":"d","points":2}]}}
	]}`)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Nil(t, drafts[0].Rubric)
	require.NotNil(t, drafts[1].Rubric)
	assert.Equal(t, 2.0, drafts[1].Rubric.Criteria[0].Points)
}

func TestNormalizeChoices(t *testing.T) {
	tests := []struct {
		name        string
		choices     []string
		answer      string
		wantChoices []string
		wantAnswer  string
	}{
		{"labelled", []string{"A) one", "B) two"}, "B) two", []string{"one", "two"}, "B"},
		{"dotted", []string{"a. one", "b. two"}, "a", []string{"one", "two"}, "A"},
		{"unlabelled", []string{"one", "two"}, "A", []string{"one", "two"}, "A"},
		{"out of order labels kept", []string{"B) one", "A) two"}, "A", []string{"B) one", "A) two"}, "A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := draft{Choices: tt.choices, CorrectAnswer: tt.answer}
			normalizeChoices(&d)
			assert.Equal(t, tt.wantChoices, d.Choices)
			assert.Equal(t, tt.wantAnswer, d.CorrectAnswer)
		})
	}
}
