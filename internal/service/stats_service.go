package service

import (
	"context"
	"fmt"

	"in8/internal/model"
	"in8/internal/repository"
)

const recentResultsShown = 10

// StatsService serves the admin overview
type StatsService struct {
	results repository.ResultRepo
}

// NewStatsService creates a new stats service
func NewStatsService(results repository.ResultRepo) *StatsService {
	return &StatsService{results: results}
}

// Statistics counts stored results by top constitution
func (s *StatsService) Statistics(ctx context.Context) (*model.SurveyStatistics, error) {
	counts, err := s.results.CountByTop(ctx)
	if err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}
	recent, err := s.results.ListRecent(ctx, recentResultsShown)
	if err != nil {
		return nil, fmt.Errorf("load recent results: %w", err)
	}

	canonical := model.CanonicalConstitutions()
	stats := &model.SurveyStatistics{
		ConstitutionCounts: make([]model.ConstitutionCount, 0, len(canonical)),
	}
	for _, n := range counts {
		stats.TotalCount += int(n)
	}
	for _, c := range canonical {
		entry := model.ConstitutionCount{Constitution: c, Count: int(counts[c])}
		stats.ConstitutionCounts = append(stats.ConstitutionCounts, entry)
		if entry.Count > 0 && (stats.MostCommon == nil || entry.Count > stats.MostCommon.Count) {
			e := entry
			stats.MostCommon = &e
		}
	}

	if recent == nil {
		recent = []*model.StoredResult{}
	}
	stats.Recent = recent
	return stats, nil
}
