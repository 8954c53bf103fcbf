package model

// ConstitutionCount is how many stored results ranked a constitution first
type ConstitutionCount struct {
	Constitution ConstitutionName `json:"constitution"`
	Count        int              `json:"count"`
}

// SurveyStatistics is the admin overview across all stored results
type SurveyStatistics struct {
	TotalCount         int                 `json:"totalCount"`
	ConstitutionCounts []ConstitutionCount `json:"constitutionCounts"`
	MostCommon         *ConstitutionCount  `json:"mostCommon,omitempty"`
	Recent             []*StoredResult     `json:"recent"`
}
