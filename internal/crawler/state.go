package crawler

// CrawlState is the mutable frontier of one crawl. It is owned by a single
// goroutine and never shared across crawls.
type CrawlState struct {
	visited map[string]struct{}
	pages   []Page
	errors  []PageError
	stack   []*frame
}

// frame is a page's discovered links awaiting a visit, with a cursor.
type frame struct {
	links []string
	next  int
	depth uint // depth of the links, one below the page they came from
}

// NewCrawlState returns an empty state.
func NewCrawlState() *CrawlState {
	return &CrawlState{visited: make(map[string]struct{})}
}

// Visited reports whether url was already reserved.
func (s *CrawlState) Visited(url string) bool {
	_, ok := s.visited[url]
	return ok
}

// Reserve marks url visited. It returns false when url was already taken.
func (s *CrawlState) Reserve(url string) bool {
	if s.Visited(url) {
		return false
	}
	s.visited[url] = struct{}{}
	return true
}

// AddPage appends a crawled page.
func (s *CrawlState) AddPage(p Page) {
	s.pages = append(s.pages, p)
}

// AddError appends a page error.
func (s *CrawlState) AddError(e PageError) {
	s.errors = append(s.errors, e)
}

// PageCount returns the number of pages collected so far.
func (s *CrawlState) PageCount() uint {
	return uint(len(s.pages))
}

func (s *CrawlState) push(f *frame) {
	s.stack = append(s.stack, f)
}

func (s *CrawlState) top() *frame {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

func (s *CrawlState) pop() {
	if len(s.stack) > 0 {
		s.stack[len(s.stack)-1] = nil
		s.stack = s.stack[:len(s.stack)-1]
	}
}

// Result packages the collected pages and errors. Slices are never nil so
// the JSON form always carries both arrays.
func (s *CrawlState) Result() *Result {
	pages := append([]Page{}, s.pages...)
	errs := append([]PageError{}, s.errors...)
	return &Result{
		Pages:      pages,
		TotalPages: len(pages),
		Errors:     errs,
	}
}
