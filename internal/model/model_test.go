package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTemplate() *SurveyTemplate {
	return &SurveyTemplate{
		Constitutions: []ConstitutionName{"A", "B"},
		Questions: []Question{
			{ID: 1, Text: "q1", Options: []Option{
				{Text: "a", Scores: map[ConstitutionName]float64{"A": 2}},
				{Text: "b", Scores: map[ConstitutionName]float64{"B": 2}},
			}},
			{ID: 2, Text: "q2", Options: []Option{
				{Text: "a", Scores: map[ConstitutionName]float64{"A": 1, "B": 1}},
			}},
		},
	}
}

func TestSurveyTemplate_Validate(t *testing.T) {
	require.NoError(t, sampleTemplate().Validate())

	tests := []struct {
		name   string
		mutate func(*SurveyTemplate)
	}{
		{"no questions", func(s *SurveyTemplate) { s.Questions = nil }},
		{"no constitutions", func(s *SurveyTemplate) { s.Constitutions = nil }},
		{"duplicate constitution", func(s *SurveyTemplate) { s.Constitutions = append(s.Constitutions, "A") }},
		{"empty constitution", func(s *SurveyTemplate) { s.Constitutions[1] = "" }},
		{"question without options", func(s *SurveyTemplate) { s.Questions[1].Options = nil }},
		{"undeclared score key", func(s *SurveyTemplate) { s.Questions[0].Options[0].Scores["Z"] = 1 }},
		{"negative score", func(s *SurveyTemplate) { s.Questions[0].Options[0].Scores["A"] = -1 }},
		{"NaN score", func(s *SurveyTemplate) { s.Questions[0].Options[0].Scores["A"] = math.NaN() }},
		{"infinite score", func(s *SurveyTemplate) { s.Questions[0].Options[0].Scores["B"] = math.Inf(1) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tpl := sampleTemplate()
			tc.mutate(tpl)
			assert.ErrorIs(t, tpl.Validate(), ErrInvalidTemplate)
		})
	}

	var nilTpl *SurveyTemplate
	assert.ErrorIs(t, nilTpl.Validate(), ErrInvalidTemplate)
}

func TestSurveyTemplate_CloneIsDeep(t *testing.T) {
	orig := sampleTemplate()
	cp := orig.Clone()

	cp.Questions[0].Text = "changed"
	cp.Questions[0].Options[0].Scores["A"] = 99
	cp.Constitutions[0] = "Z"

	assert.Equal(t, "q1", orig.Questions[0].Text)
	assert.Equal(t, 2.0, orig.Questions[0].Options[0].Scores["A"])
	assert.Equal(t, ConstitutionName("A"), orig.Constitutions[0])

	var nilTpl *SurveyTemplate
	assert.Nil(t, nilTpl.Clone())
}

func TestProgressRecord_FitsTemplate(t *testing.T) {
	tpl := sampleTemplate()

	tests := []struct {
		name string
		rec  ProgressRecord
		ok   bool
	}{
		{"fresh", ProgressRecord{UserID: "u", Answers: AnswerMap{}}, true},
		{"mid survey", ProgressRecord{UserID: "u", CurrentQuestionIndex: 1, Answers: AnswerMap{0: 1}}, true},
		{"missing user", ProgressRecord{Answers: AnswerMap{}}, false},
		{"negative index", ProgressRecord{UserID: "u", CurrentQuestionIndex: -1}, false},
		{"index past end", ProgressRecord{UserID: "u", CurrentQuestionIndex: 2}, false},
		{"answer to unknown question", ProgressRecord{UserID: "u", Answers: AnswerMap{5: 0}}, false},
		{"answer to unknown option", ProgressRecord{UserID: "u", Answers: AnswerMap{1: 1}}, false},
		{"negative option", ProgressRecord{UserID: "u", Answers: AnswerMap{0: -1}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rec.FitsTemplate(tpl)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidProgress)
			}
		})
	}
}

func TestAnswerMap_Clone(t *testing.T) {
	var nilMap AnswerMap
	assert.NotNil(t, nilMap.Clone())
	assert.Empty(t, nilMap.Clone())

	m := AnswerMap{0: 1}
	cp := m.Clone()
	cp[0] = 2
	assert.Equal(t, 1, m[0])
}
