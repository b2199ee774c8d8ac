package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveState(t *testing.T) {
	merged := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	testCases := []struct {
		name     string
		raw      string
		mergedAt *time.Time
		expected PRState
	}{
		{name: "open", raw: "open", expected: PRStateOpen},
		{name: "closed", raw: "closed", expected: PRStateClosed},
		{name: "closed with merge timestamp", raw: "closed", mergedAt: &merged, expected: PRStateMerged},
		{name: "graphql upper case", raw: "MERGED", expected: PRStateMerged},
		{name: "graphql open", raw: "OPEN", expected: PRStateOpen},
		{name: "zero merge timestamp is ignored", raw: "closed", mergedAt: &time.Time{}, expected: PRStateClosed},
		{name: "unknown falls back to open", raw: "draft", expected: PRStateOpen},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DeriveState(tc.raw, tc.mergedAt))
		})
	}
}

func TestPullRequestSummary_Ref(t *testing.T) {
	summary := PullRequestSummary{
		ID:         99,
		Number:     7,
		Title:      "Add feature",
		State:      PRStateMerged,
		URL:        "https://github.com/octo/app/pull/7",
		Repository: Repository{Name: "octo/app", URL: "https://github.com/octo/app"},
	}

	assert.Equal(t, PullRequestRef{
		Number:     7,
		Title:      "Add feature",
		Repository: "octo/app",
		URL:        "https://github.com/octo/app/pull/7",
		State:      PRStateMerged,
	}, summary.Ref())
}
