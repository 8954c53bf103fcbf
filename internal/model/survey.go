package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidTemplate is returned when a survey template fails structural validation
var ErrInvalidTemplate = errors.New("invalid survey template")

// ConstitutionName is one of the classification labels a template ranks
type ConstitutionName string

// The eight canonical constitutions, in their declared order
const (
	WoodYang  ConstitutionName = "목양"
	WoodYin   ConstitutionName = "목음"
	MetalYang ConstitutionName = "금양"
	MetalYin  ConstitutionName = "금음"
	EarthYang ConstitutionName = "토양"
	EarthYin  ConstitutionName = "토음"
	WaterYang ConstitutionName = "수양"
	WaterYin  ConstitutionName = "수음"
)

// CanonicalConstitutions returns the eight constitutions in declared order
func CanonicalConstitutions() []ConstitutionName {
	return []ConstitutionName{
		WoodYang, WoodYin,
		MetalYang, MetalYin,
		EarthYang, EarthYin,
		WaterYang, WaterYin,
	}
}

// Option is one selectable answer; Scores missing a constitution count as 0
type Option struct {
	Text   string                       `json:"text" bson:"text" yaml:"text"`
	Scores map[ConstitutionName]float64 `json:"scores" bson:"scores" yaml:"scores"`
}

// Question is a multiple-choice item of a survey template
type Question struct {
	ID      int      `json:"id" bson:"id" yaml:"id"`
	Text    string   `json:"text" bson:"text" yaml:"text"`
	Options []Option `json:"options" bson:"options" yaml:"options"`
}

// SurveyTemplate is the question set a session is run against
type SurveyTemplate struct {
	Questions     []Question         `json:"questions" bson:"questions" yaml:"questions"`
	Constitutions []ConstitutionName `json:"constitutions" bson:"constitutions" yaml:"constitutions"`
	UpdatedAt     time.Time          `json:"updatedAt,omitempty" bson:"updatedAt,omitempty" yaml:"-"`
}

// TotalQuestions returns the number of questions in the template
func (t *SurveyTemplate) TotalQuestions() int {
	return len(t.Questions)
}

// Validate checks the structural invariants every usable template must hold
func (t *SurveyTemplate) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil template", ErrInvalidTemplate)
	}
	if len(t.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidTemplate)
	}
	if len(t.Constitutions) == 0 {
		return fmt.Errorf("%w: no constitutions", ErrInvalidTemplate)
	}

	declared := make(map[ConstitutionName]struct{}, len(t.Constitutions))
	for _, c := range t.Constitutions {
		if c == "" {
			return fmt.Errorf("%w: empty constitution name", ErrInvalidTemplate)
		}
		if _, dup := declared[c]; dup {
			return fmt.Errorf("%w: duplicate constitution %q", ErrInvalidTemplate, c)
		}
		declared[c] = struct{}{}
	}

	for qi, q := range t.Questions {
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: question %d has no options", ErrInvalidTemplate, qi)
		}
		for oi, opt := range q.Options {
			for c, v := range opt.Scores {
				if _, ok := declared[c]; !ok {
					return fmt.Errorf("%w: question %d option %d scores undeclared constitution %q", ErrInvalidTemplate, qi, oi, c)
				}
				if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("%w: question %d option %d has invalid score %v for %q", ErrInvalidTemplate, qi, oi, v, c)
				}
			}
		}
	}
	return nil
}

// Clone returns a deep copy so a running session never observes later edits
func (t *SurveyTemplate) Clone() *SurveyTemplate {
	if t == nil {
		return nil
	}
	out := &SurveyTemplate{
		Questions:     make([]Question, len(t.Questions)),
		Constitutions: append([]ConstitutionName(nil), t.Constitutions...),
		UpdatedAt:     t.UpdatedAt,
	}
	for i, q := range t.Questions {
		cq := Question{ID: q.ID, Text: q.Text, Options: make([]Option, len(q.Options))}
		for j, opt := range q.Options {
			scores := make(map[ConstitutionName]float64, len(opt.Scores))
			for k, v := range opt.Scores {
				scores[k] = v
			}
			cq.Options[j] = Option{Text: opt.Text, Scores: scores}
		}
		out.Questions[i] = cq
	}
	return out
}

// TemplateDocument is the stored form of the current template
type TemplateDocument struct {
	ID        string         `json:"id" bson:"_id"`
	Data      SurveyTemplate `json:"data" bson:"data"`
	UpdatedAt time.Time      `json:"updatedAt" bson:"updatedAt"`
}
