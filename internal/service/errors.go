package service

import (
	"errors"
	"fmt"
)

var (
	ErrTemplateUnavailable  = errors.New("survey template unavailable")
	ErrPersistence          = errors.New("result persistence failed")
	ErrNotInProgress        = errors.New("survey session is not in progress")
	ErrUnanswered           = errors.New("current question is unanswered")
	ErrIncomplete           = errors.New("survey has unanswered questions")
	ErrResumeChoiceRequired = errors.New("saved progress exists; choose resume or restart")
	ErrProgressMismatch     = errors.New("saved progress does not fit the current template")
	ErrAlreadyStarted       = errors.New("survey session already started")
	ErrNoSession            = errors.New("no survey session")
)

// IncompleteError reports where an incomplete survey was repositioned to
type IncompleteError struct {
	QuestionIndex int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%v: first unanswered question is %d", ErrIncomplete, e.QuestionIndex)
}

func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncomplete
}
