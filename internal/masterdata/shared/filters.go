package shared

// ListFilters narrows list queries. Search is matched accent-insensitively.
type ListFilters struct {
	Search     string
	CategoryID *int64
}
