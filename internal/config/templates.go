package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/connexus-ai/convo-redact/internal/model"
)

// rawDetectionFile mirrors the on-disk YAML shape. context_keywords is kept
// as a raw mapping node so key order survives — YAML maps decode into Go maps
// with no order guarantee, but spec.md requires first-match-wins over the
// keyword table in the order the file declares it.
type rawDetectionFile struct {
	DLPLocation  string `yaml:"dlp_location"`
	DLPTemplates struct {
		InspectTemplateName    string `yaml:"inspect_template_name"`
		DeidentifyTemplateName string `yaml:"deidentify_template_name"`
	} `yaml:"dlp_templates"`
	InspectConfig    model.InspectConfig    `yaml:"inspect_config"`
	DeidentifyConfig model.DeidentifyConfig `yaml:"deidentify_config"`
	ContextKeywords  yaml.Node              `yaml:"context_keywords"`
}

// LoadDetectionTemplates reads and parses the template file at path,
// substituting "${PROJECT_ID}" in template names with project, and
// preserving the declared order of context_keywords.
func LoadDetectionTemplates(path, project string) (*model.DetectionTemplates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.LoadDetectionTemplates: read %s: %w", path, err)
	}

	var raw rawDetectionFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config.LoadDetectionTemplates: parse %s: %w", path, err)
	}

	keywords, err := decodeContextKeywords(&raw.ContextKeywords)
	if err != nil {
		return nil, fmt.Errorf("config.LoadDetectionTemplates: context_keywords: %w", err)
	}

	t := &model.DetectionTemplates{
		DLPLocation:      raw.DLPLocation,
		InspectConfig:    raw.InspectConfig,
		DeidentifyConfig: raw.DeidentifyConfig,
		ContextKeywords:  keywords,
	}
	t.DLPTemplates.InspectTemplateName = substituteProject(raw.DLPTemplates.InspectTemplateName, project)
	t.DLPTemplates.DeidentifyTemplateName = substituteProject(raw.DLPTemplates.DeidentifyTemplateName, project)

	return t, nil
}

// substituteProject replaces the literal "${PROJECT_ID}" token with project.
func substituteProject(name, project string) string {
	if name == "" {
		return name
	}
	return strings.ReplaceAll(name, "${PROJECT_ID}", project)
}

// decodeContextKeywords walks a YAML mapping node's Content slice, which
// alternates key-scalar, value-node pairs in file order, and turns each
// key: [list] pair into an ordered KeywordRule.
func decodeContextKeywords(node *yaml.Node) ([]model.KeywordRule, error) {
	if node == nil || node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping, got kind %v", node.Kind)
	}

	rules := make([]model.KeywordRule, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valNode := node.Content[i+1]

		var keywords []string
		if err := valNode.Decode(&keywords); err != nil {
			return nil, fmt.Errorf("decode keywords for %q: %w", keyNode.Value, err)
		}
		rules = append(rules, model.KeywordRule{
			PIIType:  keyNode.Value,
			Keywords: keywords,
		})
	}
	return rules, nil
}
