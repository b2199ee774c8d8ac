// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"strings"
	"time"
)

// PRState is the derived state of a pull request.
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
	PRStateMerged PRState = "merged"
)

// DeriveState returns merged whenever a merge timestamp is present, otherwise
// the upstream state lower-cased. GraphQL reports "MERGED" directly, REST never does.
func DeriveState(raw string, mergedAt *time.Time) PRState {
	if mergedAt != nil && !mergedAt.IsZero() {
		return PRStateMerged
	}
	switch s := PRState(strings.ToLower(raw)); s {
	case PRStateOpen, PRStateClosed, PRStateMerged:
		return s
	default:
		return PRStateOpen
	}
}

// Repository is the repository a pull request belongs to.
type Repository struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Language    *string `json:"language,omitempty"`
	URL         string  `json:"url"`
}

// PullRequestSummary is the list representation of a pull request.
type PullRequestSummary struct {
	ID          int64      `json:"id"`
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	MergedAt    *time.Time `json:"mergedAt,omitempty"`
	State       PRState    `json:"state"`
	URL         string     `json:"url"`
	Repository  Repository `json:"repository"`
}

// Ref returns the compact form used by the habit tracker.
func (s PullRequestSummary) Ref() PullRequestRef {
	return PullRequestRef{
		Number:     s.Number,
		Title:      s.Title,
		Repository: s.Repository.Name,
		URL:        s.URL,
		State:      s.State,
	}
}

// Author is the user who opened a pull request.
type Author struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatarUrl"`
	URL       string `json:"url"`
}

// PullRequestDetail extends the summary with the fields only the single-item endpoint returns.
type PullRequestDetail struct {
	PullRequestSummary
	UpdatedAt    time.Time  `json:"updatedAt"`
	ClosedAt     *time.Time `json:"closedAt,omitempty"`
	Draft        bool       `json:"draft"`
	Commits      int        `json:"commits"`
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	ChangedFiles int        `json:"changedFiles"`
	Author       Author     `json:"author"`
}

// PullRequestRef is a compact pull request reference stored in habit tracker days.
type PullRequestRef struct {
	Number     int     `json:"number"`
	Title      string  `json:"title"`
	Repository string  `json:"repository"`
	URL        string  `json:"url"`
	State      PRState `json:"state"`
}
