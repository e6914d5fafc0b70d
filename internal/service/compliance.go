package service

import (
	"context"
	"strings"

	"return-service/internal/util"

	"go.uber.org/zap"
)

// ComplianceChecker evaluates a damage policy's required keywords against
// the labels detected on a photo
type ComplianceChecker struct {
	detector LabelDetector
	logger   *zap.Logger
}

// NewComplianceChecker creates a damage compliance checker
func NewComplianceChecker(detector LabelDetector) *ComplianceChecker {
	return &ComplianceChecker{
		detector: detector,
		logger:   util.GetLogger(),
	}
}

// IsCompliant reports whether every comma-separated keyword in conditions is
// found as a case-insensitive substring of at least one detected label. An
// empty policy is vacuously compliant. A label-detection failure yields an
// empty label set, so any non-empty policy then fails: no evidence is not
// confirmation of compliance.
func (c *ComplianceChecker) IsCompliant(ctx context.Context, image []byte, conditions string) bool {
	keywords := splitConditions(conditions)
	if len(keywords) == 0 {
		return true
	}

	labels, err := c.detector.DetectLabels(ctx, image)
	if err != nil {
		c.logger.Warn("Label detection failed, treating as no evidence", zap.Error(err))
		labels = nil
	}

	lowered := make([]string, len(labels))
	for i, label := range labels {
		lowered[i] = strings.ToLower(label)
	}

	for _, keyword := range keywords {
		if !anyContains(lowered, strings.ToLower(keyword)) {
			return false
		}
	}
	return true
}

// splitConditions splits the stored comma-separated policy into keywords,
// dropping blanks
func splitConditions(conditions string) []string {
	parts := strings.Split(conditions, ",")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	return keywords
}

func anyContains(labels []string, keyword string) bool {
	for _, label := range labels {
		if strings.Contains(label, keyword) {
			return true
		}
	}
	return false
}
