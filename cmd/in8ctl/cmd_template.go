package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"in8/internal/model"
)

var templateFile string

// templateCmd groups survey template commands
var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Inspect or publish the survey template",
}

var templateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the template users would currently receive",
	Long: `Print the template users would currently receive and where it came from.

The source is one of remote, backup or default, following the same fallback
order the server uses.`,
	RunE: runTemplateShow,
}

var templatePushCmd = &cobra.Command{
	Use:   "push",
	Short: "Validate and publish a template document",
	RunE:  runTemplatePush,
}

func runTemplateShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	tpl, source, err := deps.Templates.Fetch(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "source: %s, %d questions\n", source, tpl.TotalQuestions())
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(tpl)
}

func runTemplatePush(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(templateFile)
	if err != nil {
		return err
	}
	tpl, err := decodeTemplate(templateFile, data)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := deps.Templates.Publish(ctx, tpl); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published %d questions over %d constitutions\n",
		tpl.TotalQuestions(), len(tpl.Constitutions))
	return nil
}

// decodeTemplate reads a template document as YAML or JSON by extension and
// validates it before anything is sent to the store.
func decodeTemplate(path string, data []byte) (*model.SurveyTemplate, error) {
	var tpl model.SurveyTemplate
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &tpl); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&tpl); err != nil && err != io.EOF {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	return &tpl, nil
}
