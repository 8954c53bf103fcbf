package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidProgress is returned when a progress record cannot be stored or resumed
var ErrInvalidProgress = errors.New("invalid progress record")

// ProgressRecord is the single in-flight checkpoint kept per user
type ProgressRecord struct {
	UserID               string    `json:"userId" bson:"_id"`
	CurrentQuestionIndex int       `json:"currentQuestionIndex" bson:"currentQuestionIndex"`
	Answers              AnswerMap `json:"answers" bson:"answers"`
	Timestamp            time.Time `json:"timestamp" bson:"timestamp"`
}

// Validate checks the record on its own, without a template
func (p *ProgressRecord) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidProgress)
	}
	if p.UserID == "" {
		return fmt.Errorf("%w: missing userId", ErrInvalidProgress)
	}
	if p.CurrentQuestionIndex < 0 {
		return fmt.Errorf("%w: negative question index", ErrInvalidProgress)
	}
	for q, o := range p.Answers {
		if q < 0 || o < 0 {
			return fmt.Errorf("%w: negative answer entry %d=%d", ErrInvalidProgress, q, o)
		}
	}
	return nil
}

// FitsTemplate reports whether every index in the record addresses t
func (p *ProgressRecord) FitsTemplate(t *SurveyTemplate) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.CurrentQuestionIndex >= len(t.Questions) {
		return fmt.Errorf("%w: question index %d beyond %d questions", ErrInvalidProgress, p.CurrentQuestionIndex, len(t.Questions))
	}
	for q, o := range p.Answers {
		if q >= len(t.Questions) || o >= len(t.Questions[q].Options) {
			return fmt.Errorf("%w: answer %d=%d does not fit template", ErrInvalidProgress, q, o)
		}
	}
	return nil
}
