package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/connexus-ai/convo-redact/internal/apierr"
	"github.com/connexus-ai/convo-redact/internal/model"
)

// catchAllHotwordPattern matches anywhere in the proximity window; the
// agent-armed context carries no specific trigger word of its own, so the
// hotword rule only needs the window, not a targeted regex.
const catchAllHotwordPattern = ".*"

const hotwordProximityWindow = 100

// Redactor maintains a short-lived per-conversation context of "what PII
// the agent just asked for" and uses it to bias the detection engine when
// redacting the next customer utterance (spec.md §4.2).
type Redactor struct {
	cache     ContextCache
	detection DetectionClient
	templates *model.DetectionTemplates

	project    string
	location   string
	contextTTL time.Duration

	disableDynamicContext bool

	// OnDynamicContextApplied, if set, is called once per customer
	// utterance where dynamic context biased the request — the Redactor's
	// domain counter (dynamic_context_applied_total, SPEC_FULL.md §7).
	OnDynamicContextApplied func()
}

// NewRedactor creates a Redactor.
func NewRedactor(cache ContextCache, detection DetectionClient, templates *model.DetectionTemplates, project, location string, contextTTL time.Duration, disableDynamicContext bool) *Redactor {
	return &Redactor{
		cache:                  cache,
		detection:              detection,
		templates:              templates,
		project:                project,
		location:               location,
		contextTTL:             contextTTL,
		disableDynamicContext:  disableDynamicContext,
	}
}

// HandleAgentUtterance scans transcript against the static keyword table in
// file order; the first matching (pii_type, keyword) pair wins. On a match
// it arms the per-conversation context; on no match it is a no-op. Returns
// the armed PII type, or "" if nothing matched.
func (r *Redactor) HandleAgentUtterance(ctx context.Context, conversationID, transcript string) (string, error) {
	lower := strings.ToLower(transcript)

	for _, rule := range r.templates.ContextKeywords {
		for _, keyword := range rule.Keywords {
			if !strings.Contains(lower, strings.ToLower(keyword)) {
				continue
			}

			rc := model.RedactionContext{
				ExpectedPIIType: rule.PIIType,
				Timestamp:       float64(time.Now().UnixNano()) / 1e9,
			}
			if err := r.cache.SetContext(ctx, conversationID, rc, r.contextTTL); err != nil {
				return "", fmt.Errorf("redactor: arm context: %w", err)
			}
			slog.Info("redactor: armed context", "conversation_id", conversationID, "event", "context_armed", "expected_pii_type", rule.PIIType)
			return rule.PIIType, nil
		}
	}
	return "", nil
}

// HandleCustomerUtterance redacts transcript, consulting any armed context
// for conversationID (spec.md §4.2). The context is read, not deleted; it
// lapses with its TTL.
func (r *Redactor) HandleCustomerUtterance(ctx context.Context, conversationID, transcript string) (string, bool, error) {
	if transcript == "" {
		return "", false, nil
	}

	var rc *model.RedactionContext
	if !r.disableDynamicContext {
		var err error
		rc, err = r.cache.GetContext(ctx, conversationID)
		if err != nil {
			// Advisory state: a cache failure degrades to default
			// sensitivity rather than failing the call.
			slog.Warn("redactor: context lookup failed, proceeding without context", "conversation_id", conversationID, "event", "context_lookup_failed", "error", err.Error())
			rc = nil
		}
	}

	req, dynamicApplied := r.buildDetectionRequest(transcript, rc)
	if dynamicApplied && r.OnDynamicContextApplied != nil {
		r.OnDynamicContextApplied()
	}

	redacted, err := r.detection.Redact(ctx, req)
	if err != nil && apierr.IsNotFound(err) {
		slog.Warn("redactor: template not found, retrying fully inline", "conversation_id", conversationID, "event", "template_not_found_fallback")
		inline := req
		inline.UseInline = true
		inline.InspectTemplateName = ""
		if inline.InspectConfig == nil {
			cfg := r.templates.InspectConfig.Clone()
			inline.InspectConfig = &cfg
		}
		inline.DeidentifyTemplateName = ""
		cfg := r.templates.DeidentifyConfig
		inline.DeidentifyConfig = &cfg
		redacted, err = r.detection.Redact(ctx, inline)
	}
	if err != nil {
		slog.Error("redactor: detection engine call failed", "conversation_id", conversationID, "event", "detection_engine_error", "error", err.Error())
		return placeholderTag(err) + transcript, dynamicApplied, nil
	}

	return redacted, dynamicApplied, nil
}

// buildDetectionRequest assembles the detection request for transcript,
// folding in rc when present (spec.md §4.2 step 2). Returns whether dynamic
// context was applied.
func (r *Redactor) buildDetectionRequest(transcript string, rc *model.RedactionContext) (DetectionRequest, bool) {
	req := DetectionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s", r.project, r.location),
		Text:   transcript,
	}

	dynamicApplied := false
	var inlineConfig *model.InspectConfig

	if rc != nil {
		cfg := r.templates.InspectConfig.Clone()
		if custom, ok := r.templates.CustomInfoTypeByName(rc.ExpectedPIIType); ok {
			addCustomInfoType(&cfg, custom)
		} else {
			ensureInfoType(&cfg, rc.ExpectedPIIType)
			upsertBoostRuleSet(&cfg, rc.ExpectedPIIType)
		}
		inlineConfig = &cfg
		dynamicApplied = true
	}

	req.UseInline = dynamicApplied || r.templates.DLPTemplates.InspectTemplateName == ""
	if req.UseInline {
		if inlineConfig == nil {
			cfg := r.templates.InspectConfig.Clone()
			inlineConfig = &cfg
		}
		req.InspectConfig = inlineConfig
	} else {
		req.InspectTemplateName = r.templates.DLPTemplates.InspectTemplateName
	}

	if r.templates.DLPTemplates.DeidentifyTemplateName != "" {
		req.DeidentifyTemplateName = r.templates.DLPTemplates.DeidentifyTemplateName
	} else {
		cfg := r.templates.DeidentifyConfig
		req.DeidentifyConfig = &cfg
	}

	return req, dynamicApplied
}

func addCustomInfoType(cfg *model.InspectConfig, custom model.CustomInfoType) {
	for _, existing := range cfg.CustomInfoTypes {
		if existing.InfoType.Name == custom.InfoType.Name {
			return
		}
	}
	cfg.CustomInfoTypes = append(cfg.CustomInfoTypes, custom)
}

func ensureInfoType(cfg *model.InspectConfig, name string) {
	for _, it := range cfg.InfoTypes {
		if it.Name == name {
			return
		}
	}
	cfg.InfoTypes = append(cfg.InfoTypes, model.InfoType{Name: name})
}

// upsertBoostRuleSet appends, or updates in place, a rule set whose hotword
// rule boosts likelihood for infoType to VERY_LIKELY with a symmetric
// 100-character proximity window (spec.md §4.2 step 2).
func upsertBoostRuleSet(cfg *model.InspectConfig, infoType string) {
	rule := model.HotwordRule{
		HotwordRegex: model.RegexPattern{Pattern: catchAllHotwordPattern},
		Proximity: model.Proximity{
			WindowBefore: hotwordProximityWindow,
			WindowAfter:  hotwordProximityWindow,
		},
		LikelihoodAdjustment: "VERY_LIKELY",
	}

	for i, rs := range cfg.RuleSet {
		if ruleSetReferences(rs, infoType) {
			cfg.RuleSet[i].HotwordRules = []model.HotwordRule{rule}
			return
		}
	}

	cfg.RuleSet = append(cfg.RuleSet, model.InfoTypeRuleSet{
		InfoTypes:    []model.InfoType{{Name: infoType}},
		HotwordRules: []model.HotwordRule{rule},
	})
}

func ruleSetReferences(rs model.InfoTypeRuleSet, infoType string) bool {
	for _, it := range rs.InfoTypes {
		if it.Name == infoType {
			return true
		}
	}
	return false
}

// placeholderTag names the tagged-placeholder prefix spec.md §4.2 step 3
// requires on a terminal detection-engine failure, never raising.
func placeholderTag(err error) string {
	if apierr.IsPermissionDenied(err) {
		return "[DLP_PERMISSION_DENIED_ERROR] "
	}
	return "[DLP_ERROR] "
}
