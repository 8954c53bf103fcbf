// Package scoring turns an answer set into ranked constitution scores.
// Everything here is pure: no I/O, no clocks except the one passed in.
package scoring

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"in8/internal/model"
)

// ErrInvalidIndex marks a question or option reference outside the template
var ErrInvalidIndex = errors.New("invalid index")

// Tally is the accumulated score per constitution
type Tally map[model.ConstitutionName]float64

// Compute sums the selected options' scores for every answered question.
// Unanswered questions contribute nothing. Score keys the template does not
// declare are ignored.
func Compute(t *model.SurveyTemplate, answers model.AnswerMap) (Tally, error) {
	tally := make(Tally, len(t.Constitutions))
	for _, c := range t.Constitutions {
		tally[c] = 0
	}

	for qi, oi := range answers {
		if qi < 0 || qi >= len(t.Questions) {
			return nil, fmt.Errorf("%w: question %d of %d", ErrInvalidIndex, qi, len(t.Questions))
		}
		opts := t.Questions[qi].Options
		if oi < 0 || oi >= len(opts) {
			return nil, fmt.Errorf("%w: option %d of %d on question %d", ErrInvalidIndex, oi, len(opts), qi)
		}
		for c, v := range opts[oi].Scores {
			if _, ok := tally[c]; ok {
				tally[c] += v
			}
		}
	}
	return tally, nil
}

// Rank orders constitutions by score, highest first. Equal scores keep the
// order in which the template declares them.
func Rank(constitutions []model.ConstitutionName, tally Tally) []model.ScoreEntry {
	board := make([]model.ScoreEntry, 0, len(constitutions))
	for _, c := range constitutions {
		board = append(board, model.ScoreEntry{Constitution: c, Score: tally[c]})
	}
	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Score > board[j].Score
	})
	return board
}

// Evaluate builds a RankedResult from any subset of answers. The result is
// partial when fewer questions are answered than the template holds.
func Evaluate(t *model.SurveyTemplate, answers model.AnswerMap, now time.Time) (*model.RankedResult, error) {
	tally, err := Compute(t, answers)
	if err != nil {
		return nil, err
	}
	board := Rank(t.Constitutions, tally)

	res := &model.RankedResult{
		Scores:         board,
		TotalQuestions: len(t.Questions),
		AnsweredCount:  len(answers),
		IsPartial:      len(answers) < len(t.Questions),
		Answers:        answers.Clone(),
		Timestamp:      now,
	}
	if len(board) > 0 {
		res.TopConstitution = board[0]
	}
	return res, nil
}

// FirstUnanswered returns the lowest question index without an answer, or -1
func FirstUnanswered(total int, answers model.AnswerMap) int {
	for i := 0; i < total; i++ {
		if _, ok := answers[i]; !ok {
			return i
		}
	}
	return -1
}
