package scoring

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"in8/internal/model"
)

const (
	cA model.ConstitutionName = "A"
	cB model.ConstitutionName = "B"
)

func twoQuestionTemplate() *model.SurveyTemplate {
	return &model.SurveyTemplate{
		Constitutions: []model.ConstitutionName{cA, cB},
		Questions: []model.Question{
			{ID: 1, Text: "q1", Options: []model.Option{
				{Text: "a", Scores: map[model.ConstitutionName]float64{cA: 2, cB: 0}},
				{Text: "b", Scores: map[model.ConstitutionName]float64{cA: 0, cB: 2}},
			}},
			{ID: 2, Text: "q2", Options: []model.Option{
				{Text: "a", Scores: map[model.ConstitutionName]float64{cA: 1, cB: 1}},
				{Text: "b", Scores: map[model.ConstitutionName]float64{cA: 0, cB: 0}},
			}},
		},
	}
}

func TestEvaluate_CompleteAnswers(t *testing.T) {
	tpl := twoQuestionTemplate()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	res, err := Evaluate(tpl, model.AnswerMap{0: 0, 1: 0}, now)
	require.NoError(t, err)

	want := []model.ScoreEntry{{Constitution: cA, Score: 3}, {Constitution: cB, Score: 1}}
	if diff := cmp.Diff(want, res.Scores); diff != "" {
		t.Errorf("ranked board mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, model.ScoreEntry{Constitution: cA, Score: 3}, res.TopConstitution)
	assert.Equal(t, 2, res.TotalQuestions)
	assert.Equal(t, 2, res.AnsweredCount)
	assert.False(t, res.IsPartial)
	assert.Equal(t, now, res.Timestamp)
}

func TestEvaluate_PartialAnswers(t *testing.T) {
	tpl := twoQuestionTemplate()

	res, err := Evaluate(tpl, model.AnswerMap{0: 1}, time.Now())
	require.NoError(t, err)

	want := []model.ScoreEntry{{Constitution: cB, Score: 2}, {Constitution: cA, Score: 0}}
	if diff := cmp.Diff(want, res.Scores); diff != "" {
		t.Errorf("ranked board mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, res.IsPartial)
	assert.Equal(t, 1, res.AnsweredCount)
}

func TestEvaluate_AnswersAreCopied(t *testing.T) {
	answers := model.AnswerMap{0: 0}
	res, err := Evaluate(twoQuestionTemplate(), answers, time.Now())
	require.NoError(t, err)

	answers[1] = 1
	assert.Len(t, res.Answers, 1)
}

func TestCompute_SumsSelectedOptions(t *testing.T) {
	tpl := &model.SurveyTemplate{
		Constitutions: []model.ConstitutionName{model.WoodYang, model.MetalYang, model.WaterYin},
		Questions: []model.Question{
			{Options: []model.Option{
				{Scores: map[model.ConstitutionName]float64{model.WoodYang: 0.5, model.MetalYang: 1.5}},
				{Scores: map[model.ConstitutionName]float64{}},
			}},
			{Options: []model.Option{
				{Scores: map[model.ConstitutionName]float64{model.WoodYang: 2}},
				{Scores: map[model.ConstitutionName]float64{model.WaterYin: 0.5, model.MetalYang: 1}},
			}},
			{Options: []model.Option{
				{Scores: map[model.ConstitutionName]float64{model.WaterYin: 7}},
			}},
		},
	}

	tests := []struct {
		name    string
		answers model.AnswerMap
		want    Tally
	}{
		{
			name:    "empty answers",
			answers: model.AnswerMap{},
			want:    Tally{model.WoodYang: 0, model.MetalYang: 0, model.WaterYin: 0},
		},
		{
			name:    "missing score entries count as zero",
			answers: model.AnswerMap{0: 1, 1: 0},
			want:    Tally{model.WoodYang: 2, model.MetalYang: 0, model.WaterYin: 0},
		},
		{
			name:    "unanswered middle question",
			answers: model.AnswerMap{0: 0, 2: 0},
			want:    Tally{model.WoodYang: 0.5, model.MetalYang: 1.5, model.WaterYin: 7},
		},
		{
			name:    "all answered",
			answers: model.AnswerMap{0: 0, 1: 1, 2: 0},
			want:    Tally{model.WoodYang: 0.5, model.MetalYang: 2.5, model.WaterYin: 7.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tpl, tt.answers)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompute_IgnoresUndeclaredConstitutions(t *testing.T) {
	tpl := twoQuestionTemplate()
	tpl.Questions[0].Options[0].Scores["Z"] = 10

	got, err := Compute(tpl, model.AnswerMap{0: 0})
	require.NoError(t, err)
	assert.Equal(t, Tally{cA: 2, cB: 0}, got)
}

func TestCompute_InvalidIndex(t *testing.T) {
	tpl := twoQuestionTemplate()

	for name, answers := range map[string]model.AnswerMap{
		"question past end":  {2: 0},
		"negative question":  {-1: 0},
		"option past end":    {0: 2},
		"negative option":    {1: -1},
		"mixed valid+broken": {0: 0, 1: 5},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Compute(tpl, answers)
			require.ErrorIs(t, err, ErrInvalidIndex)
		})
	}
}

func TestCompute_Deterministic(t *testing.T) {
	tpl := twoQuestionTemplate()
	answers := model.AnswerMap{0: 1, 1: 0}

	first, err := Compute(tpl, answers)
	require.NoError(t, err)
	second, err := Compute(tpl, answers)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, model.AnswerMap{0: 1, 1: 0}, answers)
}

func TestRank_TiesKeepDeclaredOrder(t *testing.T) {
	// Declared order is deliberately not alphabetical.
	declared := []model.ConstitutionName{model.WaterYin, model.WoodYang, model.EarthYang, model.MetalYin}
	tally := Tally{
		model.WoodYang:  1,
		model.EarthYang: 3,
		model.MetalYin:  1,
		model.WaterYin:  1,
	}

	got := Rank(declared, tally)

	want := []model.ScoreEntry{
		{Constitution: model.EarthYang, Score: 3},
		{Constitution: model.WaterYin, Score: 1},
		{Constitution: model.WoodYang, Score: 1},
		{Constitution: model.MetalYin, Score: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rank mismatch (-want +got):\n%s", diff)
	}
}

func TestRank_AllZeroFollowsDeclaration(t *testing.T) {
	declared := model.CanonicalConstitutions()
	got := Rank(declared, Tally{})

	require.Len(t, got, len(declared))
	for i, c := range declared {
		assert.Equal(t, c, got[i].Constitution)
		assert.Zero(t, got[i].Score)
	}
}

func TestFirstUnanswered(t *testing.T) {
	assert.Equal(t, 0, FirstUnanswered(3, model.AnswerMap{}))
	assert.Equal(t, 1, FirstUnanswered(3, model.AnswerMap{0: 0, 2: 1}))
	assert.Equal(t, -1, FirstUnanswered(2, model.AnswerMap{0: 0, 1: 1}))
}
