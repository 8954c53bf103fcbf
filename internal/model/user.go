package model

import "time"

// UserSummary holds the per-user aggregate updated alongside each stored result
type UserSummary struct {
	UserID                string           `json:"userId" bson:"_id"`
	Name                  string           `json:"name,omitempty" bson:"name,omitempty"`
	LoginType             string           `json:"loginType,omitempty" bson:"loginType,omitempty"`
	SurveyCount           int              `json:"surveyCount" bson:"surveyCount"`
	LastConstitution      ConstitutionName `json:"lastConstitution,omitempty" bson:"lastConstitution,omitempty"`
	LastConstitutionScore float64          `json:"lastConstitutionScore" bson:"lastConstitutionScore"`
	LastSurveyDate        *time.Time       `json:"lastSurveyDate,omitempty" bson:"lastSurveyDate,omitempty"`
	CreatedAt             time.Time        `json:"createdAt" bson:"createdAt"`
	UpdatedAt             time.Time        `json:"updatedAt" bson:"updatedAt"`
}

// UserListEntry is a summary plus the number of results actually stored
type UserListEntry struct {
	UserSummary
	ActualSurveyCount int64 `json:"actualSurveyCount"`
}
