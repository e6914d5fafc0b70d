package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeDetector returns fixed labels, or an error, and counts calls
type fakeDetector struct {
	labels []string
	err    error
	calls  int
}

func (f *fakeDetector) DetectLabels(ctx context.Context, image []byte) ([]string, error) {
	f.calls++
	return f.labels, f.err
}

func TestIsCompliantAllKeywordsMatched(t *testing.T) {
	detector := &fakeDetector{labels: []string{"Deep Scratch", "small dent on side"}}
	checker := NewComplianceChecker(detector)

	assert.True(t, checker.IsCompliant(context.Background(), []byte("img"), "scratch,dent"))
}

func TestIsCompliantMissingKeyword(t *testing.T) {
	detector := &fakeDetector{labels: []string{"Deep Scratch"}}
	checker := NewComplianceChecker(detector)

	assert.False(t, checker.IsCompliant(context.Background(), []byte("img"), "scratch,dent"))
}

func TestIsCompliantCaseInsensitiveSubstring(t *testing.T) {
	detector := &fakeDetector{labels: []string{"CLEAN surface"}}
	checker := NewComplianceChecker(detector)

	assert.True(t, checker.IsCompliant(context.Background(), []byte("img"), "clean"))
}

func TestIsCompliantEmptyPolicyIsVacuous(t *testing.T) {
	detector := &fakeDetector{}
	checker := NewComplianceChecker(detector)

	assert.True(t, checker.IsCompliant(context.Background(), []byte("img"), ""))
	// A vacuous policy needs no labels at all
	assert.Zero(t, detector.calls)
}

func TestIsCompliantWhitespaceOnlyPolicyIsVacuous(t *testing.T) {
	detector := &fakeDetector{}
	checker := NewComplianceChecker(detector)

	assert.True(t, checker.IsCompliant(context.Background(), []byte("img"), " , ,"))
	assert.Zero(t, detector.calls)
}

func TestIsCompliantDetectorFailureIsNoEvidence(t *testing.T) {
	detector := &fakeDetector{err: errors.New("vision unreachable")}
	checker := NewComplianceChecker(detector)

	// No labels means no evidence, which cannot satisfy a non-empty policy
	assert.False(t, checker.IsCompliant(context.Background(), []byte("img"), "clean"))
}

func TestIsCompliantKeywordsFromDifferentLabels(t *testing.T) {
	detector := &fakeDetector{labels: []string{"box", "scratched corner", "visible Dent"}}
	checker := NewComplianceChecker(detector)

	assert.True(t, checker.IsCompliant(context.Background(), []byte("img"), "scratch, dent"))
}
