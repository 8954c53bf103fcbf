package model

import "time"

// AnswerMap maps a 0-based question index to the selected option index
type AnswerMap map[int]int

// Clone returns an independent copy of the answers
func (a AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// ScoreEntry is one row of a ranked board
type ScoreEntry struct {
	Constitution ConstitutionName `json:"constitution" bson:"constitution"`
	Score        float64          `json:"score" bson:"score"`
}

// RankedResult is the scored outcome of a full or partial answer set
type RankedResult struct {
	Scores          []ScoreEntry `json:"scores" bson:"scores"`
	TopConstitution ScoreEntry   `json:"topConstitution" bson:"topConstitution"`
	TotalQuestions  int          `json:"totalQuestions" bson:"totalQuestions"`
	AnsweredCount   int          `json:"answeredCount" bson:"answeredCount"`
	IsPartial       bool         `json:"isPartial" bson:"isPartial"`
	Answers         AnswerMap    `json:"answers" bson:"answers"`
	Timestamp       time.Time    `json:"timestamp" bson:"timestamp"`
}

// StoredResult is a committed result; history is append-only
type StoredResult struct {
	ID           string `json:"id" bson:"_id,omitempty"`
	UserID       string `json:"userId" bson:"userId"`
	RankedResult `bson:",inline"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}
