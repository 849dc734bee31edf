package model

// InfoType names a PII class the detection engine can look for.
type InfoType struct {
	Name string `yaml:"name" json:"name"`
}

// CustomInfoType is a user-defined PII class, e.g. a regex-backed pattern the
// built-in engine doesn't ship.
type CustomInfoType struct {
	InfoType InfoType          `yaml:"info_type" json:"info_type"`
	Regex    *RegexPattern     `yaml:"regex,omitempty" json:"regex,omitempty"`
	Dictionary map[string]any  `yaml:"dictionary,omitempty" json:"dictionary,omitempty"`
}

// RegexPattern is a custom info type's matching rule.
type RegexPattern struct {
	Pattern string `yaml:"pattern" json:"pattern"`
}

// HotwordRule boosts or lowers a finding's likelihood when a regex appears
// within a proximity window of the candidate.
type HotwordRule struct {
	HotwordRegex        RegexPattern `yaml:"hotword_regex" json:"hotword_regex"`
	Proximity           Proximity    `yaml:"proximity" json:"proximity"`
	LikelihoodAdjustment string      `yaml:"likelihood_adjustment" json:"likelihood_adjustment"`
}

// Proximity is the symmetric window, in characters, a hotword rule searches
// around a candidate finding.
type Proximity struct {
	WindowBefore int `yaml:"window_before" json:"window_before"`
	WindowAfter  int `yaml:"window_after" json:"window_after"`
}

// InfoTypeRuleSet ties a hotword rule to one or more info types.
type InfoTypeRuleSet struct {
	InfoTypes    []InfoType    `yaml:"info_types" json:"info_types"`
	HotwordRules []HotwordRule `yaml:"hotword_rules" json:"hotword_rules"`
}

// InspectConfig tells the detection engine what to look for and how
// sensitive to be.
type InspectConfig struct {
	InfoTypes       []InfoType        `yaml:"info_types" json:"info_types"`
	CustomInfoTypes []CustomInfoType  `yaml:"custom_info_types,omitempty" json:"custom_info_types,omitempty"`
	MinLikelihood   string            `yaml:"min_likelihood" json:"min_likelihood"`
	RuleSet         []InfoTypeRuleSet `yaml:"rule_set,omitempty" json:"rule_set,omitempty"`
}

// Clone returns a deep-enough copy for request assembly: callers may append
// to InfoTypes/CustomInfoTypes/RuleSet without mutating the shared template.
func (c InspectConfig) Clone() InspectConfig {
	clone := c
	clone.InfoTypes = append([]InfoType(nil), c.InfoTypes...)
	clone.CustomInfoTypes = append([]CustomInfoType(nil), c.CustomInfoTypes...)
	clone.RuleSet = append([]InfoTypeRuleSet(nil), c.RuleSet...)
	return clone
}

// DeidentifyConfig tells the detection engine how to transform findings.
type DeidentifyConfig struct {
	InfoTypeTransformations map[string]any `yaml:"info_type_transformations" json:"info_type_transformations"`
}

// DetectionTemplates is the static configuration loaded once at startup: the
// server-side template names the detection engine can be pointed at, the
// inline fallback configs, and the keyword table the Redactor uses to detect
// the agent soliciting a specific PII type.
type DetectionTemplates struct {
	DLPLocation string `yaml:"dlp_location"`
	DLPTemplates struct {
		InspectTemplateName   string `yaml:"inspect_template_name"`
		DeidentifyTemplateName string `yaml:"deidentify_template_name"`
	} `yaml:"dlp_templates"`
	InspectConfig    InspectConfig    `yaml:"inspect_config"`
	DeidentifyConfig DeidentifyConfig `yaml:"deidentify_config"`
	ContextKeywords  []KeywordRule
}

// KeywordRule is one (PII tag, trigger substrings) entry from the template
// file's context_keywords mapping, preserved in file order so that matching
// stays first-match-wins and deterministic (spec invariant: same table +
// transcript always selects the same expected PII type).
type KeywordRule struct {
	PIIType  string
	Keywords []string
}

// CustomInfoTypeByName finds a statically-declared custom info type by name,
// the way the Redactor checks whether an expected PII type is custom before
// deciding whether to add a hotword rule for it.
func (t *DetectionTemplates) CustomInfoTypeByName(name string) (CustomInfoType, bool) {
	for _, c := range t.InspectConfig.CustomInfoTypes {
		if c.InfoType.Name == name {
			return c, true
		}
	}
	return CustomInfoType{}, false
}
