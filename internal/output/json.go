package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/jmylchreest/sitecrawl/internal/crawler"
)

// JSONWriter writes JSON output.
type JSONWriter struct {
	w       *bufio.Writer
	pretty  bool
	indent  string
	records []record
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:       bufio.NewWriter(w),
		pretty:  pretty,
		indent:  indent,
		records: make([]record, 0),
	}
}

// Write buffers a crawl for output on Flush.
func (w *JSONWriter) Write(c Crawl) error {
	w.records = append(w.records, newRecord(c))
	return nil
}

// Flush writes the buffered crawls. A single crawl is written as an object,
// several as an array.
func (w *JSONWriter) Flush() error {
	if len(w.records) == 0 {
		return w.w.Flush()
	}

	var data any = w.records
	if len(w.records) == 1 {
		data = w.records[0]
	}

	var output []byte
	var err error
	if w.pretty {
		output, err = json.MarshalIndent(data, "", w.indent)
	} else {
		output, err = json.Marshal(data)
	}
	if err != nil {
		return err
	}

	if _, err := w.w.Write(output); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}

	w.records = w.records[:0]
	return w.w.Flush()
}

// Close flushes and closes the writer.
func (w *JSONWriter) Close() error {
	return w.Flush()
}

// JSONLWriter writes newline-delimited JSON, one line per page or error.
type JSONLWriter struct {
	w *bufio.Writer
}

type pageLine struct {
	Seed string `json:"seed"`
	crawler.Page
}

type errorLine struct {
	Seed string `json:"seed"`
	crawler.PageError
}

type crawlErrorLine struct {
	Seed  string `json:"seed"`
	Error string `json:"error"`
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{
		w: bufio.NewWriter(w),
	}
}

// Write streams the pages of a crawl, then its page errors, then the crawl
// error if any.
func (w *JSONLWriter) Write(c Crawl) error {
	if c.Result != nil {
		for _, p := range c.Result.Pages {
			if err := w.line(pageLine{Seed: c.Seed, Page: p}); err != nil {
				return err
			}
		}
		for _, e := range c.Result.Errors {
			if err := w.line(errorLine{Seed: c.Seed, PageError: e}); err != nil {
				return err
			}
		}
	}
	if c.Err != nil {
		if err := w.line(crawlErrorLine{Seed: c.Seed, Error: c.Err.Error()}); err != nil {
			return err
		}
	}
	return w.w.Flush()
}

func (w *JSONLWriter) line(v any) error {
	output, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(output); err != nil {
		return err
	}
	_, err = w.w.WriteString("\n")
	return err
}

// Flush flushes the buffer.
func (w *JSONLWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONLWriter) Close() error {
	return w.Flush()
}
