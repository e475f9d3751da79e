package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter writes YAML output.
type YAMLWriter struct {
	w       *bufio.Writer
	records []record
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{
		w:       bufio.NewWriter(w),
		records: make([]record, 0),
	}
}

// Write buffers a crawl.
func (w *YAMLWriter) Write(c Crawl) error {
	w.records = append(w.records, newRecord(c))
	return nil
}

// Flush writes the buffered crawls as YAML.
func (w *YAMLWriter) Flush() error {
	if len(w.records) == 0 {
		return w.w.Flush()
	}

	encoder := yaml.NewEncoder(w.w)
	encoder.SetIndent(2)

	// If only one crawl, output it directly
	var err error
	if len(w.records) == 1 {
		err = encoder.Encode(w.records[0])
	} else {
		err = encoder.Encode(w.records)
	}
	if err != nil {
		return err
	}

	if err := encoder.Close(); err != nil {
		return err
	}

	w.records = w.records[:0]
	return w.w.Flush()
}

// Close flushes and closes the writer.
func (w *YAMLWriter) Close() error {
	return w.Flush()
}
