package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"in8/internal/model"
)

func addStored(t *testing.T, repo *fakeResultRepo, userID string, top model.ConstitutionName, at time.Time) {
	t.Helper()
	_, err := repo.Add(context.Background(), &model.StoredResult{
		UserID:       userID,
		RankedResult: model.RankedResult{TopConstitution: model.ScoreEntry{Constitution: top, Score: 5}},
		CreatedAt:    at,
	})
	require.NoError(t, err)
}

func TestStatsService_CountsByTopConstitution(t *testing.T) {
	repo := &fakeResultRepo{}
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tops := []model.ConstitutionName{model.WaterYin, model.MetalYang, model.WaterYin, model.WoodYang, model.MetalYang, model.WaterYin}
	for i, c := range tops {
		addStored(t, repo, fmt.Sprintf("u%d", i), c, base.Add(time.Duration(i)*time.Minute))
	}

	stats, err := NewStatsService(repo).Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, stats.TotalCount)
	require.Len(t, stats.ConstitutionCounts, 8)
	assert.Equal(t, model.WoodYang, stats.ConstitutionCounts[0].Constitution)
	assert.Equal(t, 1, stats.ConstitutionCounts[0].Count)

	counts := map[model.ConstitutionName]int{}
	for _, c := range stats.ConstitutionCounts {
		counts[c.Constitution] = c.Count
	}
	assert.Equal(t, 3, counts[model.WaterYin])
	assert.Equal(t, 2, counts[model.MetalYang])
	assert.Zero(t, counts[model.EarthYin])

	require.NotNil(t, stats.MostCommon)
	assert.Equal(t, model.WaterYin, stats.MostCommon.Constitution)
	assert.Equal(t, 3, stats.MostCommon.Count)

	require.Len(t, stats.Recent, 6)
	assert.Equal(t, "u5", stats.Recent[0].UserID)
}

func TestStatsService_RecentIsCapped(t *testing.T) {
	repo := &fakeResultRepo{}
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		addStored(t, repo, fmt.Sprintf("u%d", i), model.EarthYang, base.Add(time.Duration(i)*time.Hour))
	}

	stats, err := NewStatsService(repo).Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 15, stats.TotalCount)
	assert.Len(t, stats.Recent, recentResultsShown)
	assert.Equal(t, "u14", stats.Recent[0].UserID)
}

func TestStatsService_Empty(t *testing.T) {
	stats, err := NewStatsService(&fakeResultRepo{}).Statistics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalCount)
	assert.Nil(t, stats.MostCommon)
	assert.Len(t, stats.ConstitutionCounts, 8)
}

type recentSpy struct {
	*fakeResultRepo
	limits []int
}

func (r *recentSpy) ListRecent(ctx context.Context, limit int) ([]*model.StoredResult, error) {
	r.limits = append(r.limits, limit)
	return r.fakeResultRepo.ListRecent(ctx, limit)
}

func TestStatsService_ReadsOnlyTheRecentPage(t *testing.T) {
	repo := &recentSpy{fakeResultRepo: &fakeResultRepo{}}
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		addStored(t, repo.fakeResultRepo, fmt.Sprintf("u%d", i), model.WoodYin, base.Add(time.Duration(i)*time.Minute))
	}
	addStored(t, repo.fakeResultRepo, "legacy", "unknown", base)

	stats, err := NewStatsService(repo).Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{recentResultsShown}, repo.limits)
	assert.Equal(t, 31, stats.TotalCount, "non-canonical tops still count toward the total")
	require.NotNil(t, stats.MostCommon)
	assert.Equal(t, model.WoodYin, stats.MostCommon.Constitution)
	assert.Equal(t, 30, stats.MostCommon.Count)
}
