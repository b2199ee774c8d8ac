package domain

// PaginationMeta describes one page of a paginated listing.
type PaginationMeta struct {
	Page        int  `json:"page"`
	PerPage     int  `json:"perPage"`
	TotalCount  int  `json:"totalCount"`
	TotalPages  int  `json:"totalPages"`
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
}

// SearchPage is one page of search results.
// HasMore is true when the page came back full.
type SearchPage struct {
	Items      []PullRequestSummary `json:"items"`
	TotalCount int                  `json:"totalCount"`
	HasMore    bool                 `json:"hasMore"`
}
