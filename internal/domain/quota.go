package domain

import "time"

// QuotaResource names a GitHub rate limit bucket.
type QuotaResource string

const (
	QuotaResourceCore    QuotaResource = "core"
	QuotaResourceGraphQL QuotaResource = "graphql"
)

// Operation is a kind of batch the quota budget is checked against.
type Operation string

const (
	OperationSearch Operation = "search"
	OperationDetail Operation = "detail"
	OperationList   Operation = "list"
)

// Resource returns the rate limit bucket an operation draws from.
func (o Operation) Resource() QuotaResource {
	if o == OperationList {
		return QuotaResourceGraphQL
	}
	return QuotaResourceCore
}

// QuotaSeverity grades how much of the quota is left.
type QuotaSeverity string

const (
	QuotaSeverityOK       QuotaSeverity = "ok"
	QuotaSeverityWarning  QuotaSeverity = "warning"
	QuotaSeverityCritical QuotaSeverity = "critical"
)

// QuotaStatus is a fresh snapshot of one rate limit bucket.
// Remaining == Limit - Used and Remaining >= 0.
type QuotaStatus struct {
	Resource  QuotaResource `json:"resource"`
	Remaining int           `json:"remaining"`
	Limit     int           `json:"limit"`
	Used      int           `json:"used"`
	ResetAt   time.Time     `json:"resetAt"`
}

// NewQuotaStatus builds a status from limit and remaining, clamping to the invariants.
func NewQuotaStatus(resource QuotaResource, limit, remaining int, resetAt time.Time) QuotaStatus {
	if limit < 0 {
		limit = 0
	}
	if remaining < 0 {
		remaining = 0
	}
	if remaining > limit {
		remaining = limit
	}
	return QuotaStatus{
		Resource:  resource,
		Remaining: remaining,
		Limit:     limit,
		Used:      limit - remaining,
		ResetAt:   resetAt,
	}
}

// PercentRemaining is 0 when the limit is unknown.
func (q QuotaStatus) PercentRemaining() float64 {
	if q.Limit <= 0 {
		return 0
	}
	return float64(q.Remaining) / float64(q.Limit) * 100
}

// Severity is critical below 10% remaining and warning below 25%.
func (q QuotaStatus) Severity() QuotaSeverity {
	switch p := q.PercentRemaining(); {
	case p < 10:
		return QuotaSeverityCritical
	case p < 25:
		return QuotaSeverityWarning
	default:
		return QuotaSeverityOK
	}
}
