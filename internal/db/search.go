package db

// TextQuery is the input for an FT.SEARCH text/tag query.
type TextQuery struct {
	IndexName    string
	Query        string
	Offset       int
	Limit        int
	SortBy       string // optional SORTBY field
	SortDesc     bool
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}
