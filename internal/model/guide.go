package model

// ConstitutionGuide is the static diet and exercise guidance for one constitution
type ConstitutionGuide struct {
	Constitution ConstitutionName `json:"constitution"`
	Description  string           `json:"description"`
	GoodFoods    []string         `json:"goodFoods"`
	BadFoods     []string         `json:"badFoods"`
	GoodExercise []string         `json:"goodExercise"`
}
