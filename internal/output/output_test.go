package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/sitecrawl/internal/crawler"
)

var fetched = time.Date(2026, 5, 17, 10, 0, 0, 0, time.UTC)

func sampleCrawl(seed string) Crawl {
	return Crawl{
		Seed: seed,
		Result: &crawler.Result{
			Pages: []crawler.Page{
				{URL: seed, Title: "Home", Content: "Welcome", FetchedAt: fetched},
				{URL: seed + "docs", Title: "Docs", Content: "Guide", FetchedAt: fetched, HTMLPath: "crawler-html/x/docs.html"},
			},
			TotalPages: 2,
			Errors: []crawler.PageError{
				{URL: seed + "broken", Message: "navigation failed", OccurredAt: fetched},
			},
		},
	}
}

// --- NewWriter Factory Tests ---

func TestNewWriter(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatJSON, "*output.JSONWriter"},
		{FormatJSONL, "*output.JSONLWriter"},
		{FormatYAML, "*output.YAMLWriter"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			w, err := NewWriter(&bytes.Buffer{}, tt.format)
			if err != nil {
				t.Fatalf("NewWriter() error = %v", err)
			}
			if got := typeName(w); got != tt.want {
				t.Errorf("NewWriter() = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(w Writer) string {
	switch w.(type) {
	case *JSONWriter:
		return "*output.JSONWriter"
	case *JSONLWriter:
		return "*output.JSONLWriter"
	case *YAMLWriter:
		return "*output.YAMLWriter"
	}
	return "unknown"
}

func TestNewWriter_UnsupportedFormat(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, Format("xml"))
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected error containing 'unsupported', got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats {
		got, err := ParseFormat(string(f))
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %q, %v", f, got, err)
		}
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Error("ParseFormat(csv) should fail")
	}
}

// --- JSONWriter Tests ---

func TestJSONWriter_SingleCrawl(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, true, "  ")

	if err := w.Write(sampleCrawl("https://example.com/")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	// Single crawl should be output directly, not as array
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal output: %v", err)
	}
	if got["seed"] != "https://example.com/" {
		t.Errorf("seed = %v", got["seed"])
	}
	if got["totalPages"] != float64(2) {
		t.Errorf("totalPages = %v", got["totalPages"])
	}
	if _, ok := got["error"]; ok {
		t.Error("error key should be omitted for a clean crawl")
	}

	pages := got["pages"].([]any)
	second := pages[1].(map[string]any)
	for _, key := range []string{"url", "title", "content", "timestamp", "htmlFilePath"} {
		if _, ok := second[key]; !ok {
			t.Errorf("page missing key %q", key)
		}
	}
	if _, ok := pages[0].(map[string]any)["htmlFilePath"]; ok {
		t.Error("htmlFilePath should be omitted when empty")
	}

	errs := got["errors"].([]any)
	if errs[0].(map[string]any)["error"] != "navigation failed" {
		t.Errorf("errors = %v", errs)
	}
}

func TestJSONWriter_MultipleCrawls_OutputsArray(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, false, "")

	_ = w.Write(sampleCrawl("https://a.example/"))
	_ = w.Write(Crawl{Seed: "https://b.example/", Err: errors.New("invalid seed")})
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got []record
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal output: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 crawls, got %d", len(got))
	}
	if got[1].Error != "invalid seed" {
		t.Errorf("error = %q", got[1].Error)
	}
	if got[1].Pages == nil || got[1].Errors == nil {
		t.Error("failed crawl should still carry empty pages and errors arrays")
	}
}

func TestJSONWriter_Compact(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, false, "")

	_ = w.Write(sampleCrawl("https://example.com/"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Errorf("expected single line in compact output, got %d lines", len(lines))
	}
}

func TestJSONWriter_CustomIndent(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, true, "\t")

	_ = w.Write(sampleCrawl("https://example.com/"))
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if !strings.Contains(buf.String(), "\n\t\"seed\"") {
		t.Errorf("expected tab indentation, got %q", buf.String())
	}
}

func TestJSONWriter_CloseAfterFlushWritesOnce(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, false, "")

	_ = w.Write(sampleCrawl("https://example.com/"))
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if n := strings.Count(buf.String(), "\n"); n != 1 {
		t.Errorf("expected one document, got %d lines", n)
	}
}

// --- JSONLWriter Tests ---

func TestJSONLWriter_LinePerPageAndError(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONLWriter(buf)

	if err := w.Write(sampleCrawl("https://example.com/")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("failed to unmarshal line: %v", err)
	}
	if first["seed"] != "https://example.com/" || first["title"] != "Home" {
		t.Errorf("first line = %v", first)
	}

	var last map[string]any
	if err := json.Unmarshal([]byte(lines[2]), &last); err != nil {
		t.Fatalf("failed to unmarshal line: %v", err)
	}
	if last["error"] != "navigation failed" || last["url"] != "https://example.com/broken" {
		t.Errorf("error line = %v", last)
	}
}

func TestJSONLWriter_CrawlError(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONLWriter(buf)

	c := sampleCrawl("https://example.com/")
	c.Err = errors.New("context canceled")
	if err := w.Write(c); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[3] != `{"seed":"https://example.com/","error":"context canceled"}` {
		t.Errorf("crawl error line = %s", lines[3])
	}
}

func TestJSONLWriter_Empty(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONLWriter(buf)

	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected empty output, got %q", buf.String())
	}
}

// --- YAMLWriter Tests ---

func TestYAMLWriter_SingleCrawl(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewYAMLWriter(buf)

	_ = w.Write(sampleCrawl("https://example.com/"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var got record
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal output: %v", err)
	}
	if got.Seed != "https://example.com/" || got.TotalPages != 2 {
		t.Errorf("unexpected result: %+v", got)
	}
	if len(got.Pages) != 2 || got.Pages[1].HTMLPath != "crawler-html/x/docs.html" {
		t.Errorf("pages = %+v", got.Pages)
	}
	if !got.Pages[0].FetchedAt.Equal(fetched) {
		t.Errorf("timestamp = %v, want %v", got.Pages[0].FetchedAt, fetched)
	}
}

func TestYAMLWriter_MultipleCrawls(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewYAMLWriter(buf)

	_ = w.Write(sampleCrawl("https://a.example/"))
	_ = w.Write(sampleCrawl("https://b.example/"))
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got []record
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal output: %v", err)
	}
	if len(got) != 2 || got[1].Seed != "https://b.example/" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestYAMLWriter_Empty(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewYAMLWriter(buf)

	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected empty output, got %q", buf.String())
	}
}

// --- Option Tests ---

func TestWriterOptions(t *testing.T) {
	cfg := &writerConfig{pretty: true}
	WithPretty(false)(cfg)
	WithIndent("\t")(cfg)

	if cfg.pretty {
		t.Error("WithPretty(false) did not unset pretty")
	}
	if cfg.indent != "\t" {
		t.Errorf("expected indent '\\t', got %q", cfg.indent)
	}
}

func TestNewWriter_WithOptions(t *testing.T) {
	buf := &bytes.Buffer{}

	w, err := NewWriter(buf, FormatJSON, WithPretty(false), WithIndent(""))
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	_ = w.Write(sampleCrawl("https://example.com/"))
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	// With pretty=false, should be compact
	output := strings.TrimSpace(buf.String())
	if strings.Contains(output, "\n") {
		t.Errorf("expected compact output, got %q", output)
	}
}
