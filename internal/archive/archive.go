// Package archive stores the raw HTML of crawled pages on disk, grouped by
// site and UTC day, and prunes days past a retention window.
//
// Layout: {root}/{domain}/{YYYY-MM-DD}/{file}.html
package archive

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/jmylchreest/sitecrawl/internal/logger"
)

const (
	// DefaultRoot is the archive directory used when none is configured.
	DefaultRoot = "crawler-html"
	// DefaultKeepDays is the default retention window for Prune.
	DefaultKeepDays = 30

	dayLayout     = "2006-01-02"
	maxNameLength = 200
	cutNameLength = 150
)

var (
	invalidNameChars = regexp.MustCompile(`[<>:"|?*\x00-\x1F]`)
	trailingExt      = regexp.MustCompile(`\.[^/.]+$`)
)

// Store writes page HTML to a filesystem.
type Store struct {
	fs   afero.Fs
	root string
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock that picks the day directory.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store rooted at root on fs.
func New(fs afero.Fs, root string, opts ...Option) *Store {
	if root == "" {
		root = DefaultRoot
	}
	s := &Store{fs: fs, root: root, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewOS creates a Store on the local filesystem.
func NewOS(root string, opts ...Option) *Store {
	return New(afero.NewOsFs(), root, opts...)
}

// Root returns the archive root directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory holding pages of baseDomain archived on day.
func (s *Store) Dir(baseDomain string, day time.Time) string {
	return filepath.Join(s.root, sanitize(baseDomain), day.UTC().Format(dayLayout))
}

// Save writes html for pageURL and returns the file path.
func (s *Store) Save(html, pageURL, baseDomain string) (string, error) {
	dir := s.Dir(baseDomain, s.now())
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	path := filepath.Join(dir, FileName(pageURL))
	if err := afero.WriteFile(s.fs, path, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("failed to write archive file: %w", err)
	}

	logger.Debug("saved HTML", "url", pageURL, "path", path, "size", humanize.Bytes(uint64(len(html))))
	return path, nil
}

// PruneReport summarises one Prune call.
type PruneReport struct {
	Dirs  int   // day directories removed
	Bytes int64 // bytes of files removed
}

// Prune removes the day directories of baseDomain older than keepDays.
// Directories are dated by name; those without a date name fall back to
// their modification time.
func (s *Store) Prune(baseDomain string, keepDays int) (PruneReport, error) {
	var report PruneReport
	if keepDays < 0 {
		keepDays = DefaultKeepDays
	}

	domainDir := filepath.Join(s.root, sanitize(baseDomain))
	exists, err := afero.DirExists(s.fs, domainDir)
	if err != nil {
		return report, fmt.Errorf("failed to stat %s: %w", domainDir, err)
	}
	if !exists {
		return report, nil
	}

	entries, err := afero.ReadDir(s.fs, domainDir)
	if err != nil {
		return report, fmt.Errorf("failed to list %s: %w", domainDir, err)
	}

	now := s.now().UTC()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -keepDays)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dated := entry.ModTime()
		if day, err := time.Parse(dayLayout, entry.Name()); err == nil {
			dated = day
		}
		if !dated.Before(cutoff) {
			continue
		}

		dir := filepath.Join(domainDir, entry.Name())
		size, err := s.dirSize(dir)
		if err != nil {
			return report, err
		}
		if err := s.fs.RemoveAll(dir); err != nil {
			return report, fmt.Errorf("failed to remove %s: %w", dir, err)
		}
		report.Dirs++
		report.Bytes += size
		logger.Info("deleted old archive directory", "path", dir, "size", humanize.Bytes(uint64(size)))
	}

	return report, nil
}

func (s *Store) dirSize(dir string) (int64, error) {
	var total int64
	err := afero.Walk(s.fs, dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to measure %s: %w", dir, err)
	}
	return total, nil
}

// FileName derives a safe file name from a page URL: the path with "/"
// turned into "-", the extension replaced by .html, and "index" for the
// root. Long names are cut and suffixed with a hash of the URL.
func FileName(pageURL string) string {
	path, ok := urlPath(pageURL)
	if !ok {
		return "page-" + shortHash(pageURL) + ".html"
	}

	name := strings.TrimPrefix(path, "/")
	if name == "" {
		name = "index"
	}
	name = strings.ReplaceAll(name, "/", "-")
	name = trailingExt.ReplaceAllString(name, "")
	if !strings.HasSuffix(name, ".html") {
		name += ".html"
	}
	name = invalidNameChars.ReplaceAllString(name, "-")

	if len(name) > maxNameLength {
		name = name[:cutNameLength] + "-" + shortHash(pageURL) + ".html"
	}
	if name == "" || name == ".html" {
		name = "page-" + shortHash(pageURL) + ".html"
	}
	return name
}

// shortHash is a 31-multiplier string hash over UTF-16 code units, wrapped
// to 32 bits, rendered in base 36 and cut to 8 characters.
func shortHash(s string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(c)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	out := strconv.FormatInt(abs, 36)
	if len(out) > 8 {
		out = out[:8]
	}
	return out
}

func urlPath(pageURL string) (string, bool) {
	u, err := url.Parse(pageURL)
	if err != nil || !u.IsAbs() {
		return "", false
	}
	return u.EscapedPath(), true
}

// sanitize keeps a domain usable as a single path element.
func sanitize(domain string) string {
	domain = invalidNameChars.ReplaceAllString(domain, "-")
	domain = strings.NewReplacer("/", "-", `\`, "-").Replace(domain)
	if domain == "" || domain == "." || domain == ".." {
		return "unknown"
	}
	return domain
}
