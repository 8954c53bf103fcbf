package service

// Broadcaster pushes events to connected admin dashboards (avoids import cycle)
type Broadcaster interface {
	BroadcastToAdmins(msgType string, payload interface{})
}

// Admin event types
const (
	EventSurveyCompleted   = "survey_completed"
	EventTemplatePublished = "template_published"
	EventUserDeleted       = "user_deleted"
)
