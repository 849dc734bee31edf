package gcpclient

import (
	"context"
	"fmt"

	dlp "cloud.google.com/go/dlp/apiv2"
	dlppb "cloud.google.com/go/dlp/apiv2/dlppb"

	"github.com/connexus-ai/convo-redact/internal/model"
	"github.com/connexus-ai/convo-redact/internal/service"
)

// DLPAdapter wraps the Cloud DLP client to implement service.DetectionClient,
// the way gcpclient.StorageAdapter wraps the GCS client: one constructor, one
// method per collaborator interface.
type DLPAdapter struct {
	client   *dlp.Client
	location string
}

// NewDLPAdapter creates a DLPAdapter. location is stored on the adapter but
// not read by Redact, which sends req.Parent exactly as the caller built it.
func NewDLPAdapter(ctx context.Context, location string) (*DLPAdapter, error) {
	client, err := dlp.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcpclient.NewDLPAdapter: %w", err)
	}
	return &DLPAdapter{client: client, location: location}, nil
}

// Redact invokes DeidentifyContent, which performs inspection and
// de-identification in a single RPC, matching the "text item plus
// inspection/redaction configuration in, redacted item out" collaborator
// spec.md §1 assumes.
func (a *DLPAdapter) Redact(ctx context.Context, req service.DetectionRequest) (string, error) {
	pbReq := &dlppb.DeidentifyContentRequest{
		Parent: req.Parent,
		Item: &dlppb.ContentItem{
			DataItem: &dlppb.ContentItem_Value{Value: req.Text},
		},
	}

	if req.InspectTemplateName != "" && !req.UseInline {
		pbReq.InspectTemplateName = req.InspectTemplateName
	} else if req.InspectConfig != nil {
		pbReq.InspectConfig = buildInspectConfig(req.InspectConfig)
	}

	if req.DeidentifyTemplateName != "" {
		pbReq.DeidentifyTemplateName = req.DeidentifyTemplateName
	} else {
		pbReq.DeidentifyConfig = buildDeidentifyConfig(req.DeidentifyConfig)
	}

	resp, err := a.client.DeidentifyContent(ctx, pbReq)
	if err != nil {
		return "", fmt.Errorf("gcpclient.Redact: %w", err)
	}
	return resp.GetItem().GetValue(), nil
}

// Close closes the underlying client.
func (a *DLPAdapter) Close() {
	a.client.Close()
}

func buildInspectConfig(cfg *model.InspectConfig) *dlppb.InspectConfig {
	pb := &dlppb.InspectConfig{
		MinLikelihood: dlppb.Likelihood(dlppb.Likelihood_value[cfg.MinLikelihood]),
	}
	for _, it := range cfg.InfoTypes {
		pb.InfoTypes = append(pb.InfoTypes, &dlppb.InfoType{Name: it.Name})
	}
	for _, c := range cfg.CustomInfoTypes {
		pb.CustomInfoTypes = append(pb.CustomInfoTypes, buildCustomInfoType(c))
	}
	for _, rs := range cfg.RuleSet {
		pb.RuleSet = append(pb.RuleSet, buildRuleSet(rs))
	}
	return pb
}

func buildCustomInfoType(c model.CustomInfoType) *dlppb.CustomInfoType {
	pb := &dlppb.CustomInfoType{
		InfoType: &dlppb.InfoType{Name: c.InfoType.Name},
	}
	if c.Regex != nil {
		pb.Type = &dlppb.CustomInfoType_Regex_{
			Regex: &dlppb.CustomInfoType_Regex{Pattern: c.Regex.Pattern},
		}
	}
	return pb
}

func buildRuleSet(rs model.InfoTypeRuleSet) *dlppb.InspectionRuleSet {
	pb := &dlppb.InspectionRuleSet{}
	for _, it := range rs.InfoTypes {
		pb.InfoTypes = append(pb.InfoTypes, &dlppb.InfoType{Name: it.Name})
	}
	for _, hw := range rs.HotwordRules {
		pb.Rules = append(pb.Rules, &dlppb.InspectionRule{
			Type: &dlppb.InspectionRule_HotwordRule{
				HotwordRule: &dlppb.CustomInfoType_DetectionRule_HotwordRule{
					HotwordRegex: &dlppb.CustomInfoType_Regex{Pattern: hw.HotwordRegex.Pattern},
					Proximity: &dlppb.CustomInfoType_DetectionRule_Proximity{
						WindowBefore: int32(hw.Proximity.WindowBefore),
						WindowAfter:  int32(hw.Proximity.WindowAfter),
					},
					LikelihoodAdjustment: &dlppb.CustomInfoType_DetectionRule_LikelihoodAdjustment{
						Adjustment: &dlppb.CustomInfoType_DetectionRule_LikelihoodAdjustment_FixedLikelihood{
							FixedLikelihood: dlppb.Likelihood(dlppb.Likelihood_value[hw.LikelihoodAdjustment]),
						},
					},
				},
			},
		})
	}
	return pb
}

// buildDeidentifyConfig always assembles the default "replace each finding
// with its infoType name" transform. The template file's
// info_type_transformations block is free-form YAML by design (operators
// may hand it to a different downstream interpreter); this adapter only
// needs the one shape spec.md §4.2 documents as the default.
func buildDeidentifyConfig(_ *model.DeidentifyConfig) *dlppb.DeidentifyConfig {
	return &dlppb.DeidentifyConfig{
		Transformation: &dlppb.DeidentifyConfig_InfoTypeTransformations{
			InfoTypeTransformations: &dlppb.InfoTypeTransformations{
				Transformations: []*dlppb.InfoTypeTransformations_InfoTypeTransformation{
					{
						PrimitiveTransformation: &dlppb.PrimitiveTransformation{
							Transformation: &dlppb.PrimitiveTransformation_ReplaceWithInfoTypeConfig{
								ReplaceWithInfoTypeConfig: &dlppb.ReplaceWithInfoTypeConfig{},
							},
						},
					},
				},
			},
		},
	}
}
