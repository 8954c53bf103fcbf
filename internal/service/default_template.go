package service

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"in8/internal/model"
)

//go:embed default_template.json
var defaultTemplateJSON []byte

var (
	defaultTemplateOnce sync.Once
	defaultTemplate     *model.SurveyTemplate
	defaultTemplateErr  error
)

// DefaultTemplate returns a copy of the template bundled with the binary
func DefaultTemplate() (*model.SurveyTemplate, error) {
	defaultTemplateOnce.Do(func() {
		var tpl model.SurveyTemplate
		if err := json.Unmarshal(defaultTemplateJSON, &tpl); err != nil {
			defaultTemplateErr = fmt.Errorf("bundled template: %w", err)
			return
		}
		if err := tpl.Validate(); err != nil {
			defaultTemplateErr = fmt.Errorf("bundled template: %w", err)
			return
		}
		defaultTemplate = &tpl
	})
	if defaultTemplateErr != nil {
		return nil, defaultTemplateErr
	}
	return defaultTemplate.Clone(), nil
}
