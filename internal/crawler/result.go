package crawler

import (
	"encoding/json"
	"time"
)

// Page is one successfully crawled page.
type Page struct {
	URL       string    `json:"url" yaml:"url"`
	Title     string    `json:"title" yaml:"title"`
	Content   string    `json:"content" yaml:"content"`
	FetchedAt time.Time `json:"timestamp" yaml:"timestamp"`
	HTMLPath  string    `json:"htmlFilePath,omitempty" yaml:"htmlFilePath,omitempty"`
}

// PageError records a page whose fetch failed. The crawl carries on.
type PageError struct {
	URL        string    `json:"url" yaml:"url"`
	Message    string    `json:"error" yaml:"error"`
	OccurredAt time.Time `json:"timestamp" yaml:"timestamp"`
}

// Result is the outcome of one crawl. Pages are in fetch order and errors
// in occurrence order.
type Result struct {
	Pages      []Page      `json:"pages" yaml:"pages"`
	TotalPages int         `json:"totalPages" yaml:"totalPages"`
	Errors     []PageError `json:"errors" yaml:"errors"`
}

// String returns the JSON form of the result handed to content processing.
func (r *Result) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return "{}"
	}
	return string(data)
}
