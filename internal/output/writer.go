// Package output writes crawl results as JSON, JSONL or YAML.
package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/sitecrawl/internal/crawler"
)

// Format represents output format types.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// Formats lists the supported formats in the order shown to users.
var Formats = []Format{FormatJSON, FormatJSONL, FormatYAML}

// Crawl is the outcome of crawling one seed. Result may be partial when Err
// is set, or nil when the crawl could not start.
type Crawl struct {
	Seed   string
	Result *crawler.Result
	Err    error
}

// Writer handles output serialization.
type Writer interface {
	// Write outputs one crawl.
	Write(c Crawl) error

	// Flush ensures all data is written.
	Flush() error

	// Close releases resources.
	Close() error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty bool
	indent string
}

// WithPretty enables pretty-printing.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format: %s", s)
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty: true,
		indent: "  ",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatJSON:
		return NewJSONWriter(w, cfg.pretty, cfg.indent), nil
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// record is the document form of a Crawl shared by JSON and YAML.
type record struct {
	Seed       string              `json:"seed" yaml:"seed"`
	Error      string              `json:"error,omitempty" yaml:"error,omitempty"`
	Pages      []crawler.Page      `json:"pages" yaml:"pages"`
	TotalPages int                 `json:"totalPages" yaml:"totalPages"`
	Errors     []crawler.PageError `json:"errors" yaml:"errors"`
}

func newRecord(c Crawl) record {
	r := record{
		Seed:   c.Seed,
		Pages:  []crawler.Page{},
		Errors: []crawler.PageError{},
	}
	if c.Err != nil {
		r.Error = c.Err.Error()
	}
	if c.Result != nil {
		if c.Result.Pages != nil {
			r.Pages = c.Result.Pages
		}
		if c.Result.Errors != nil {
			r.Errors = c.Result.Errors
		}
		r.TotalPages = c.Result.TotalPages
	}
	return r
}
