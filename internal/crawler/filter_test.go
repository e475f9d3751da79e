package crawler

import (
	"reflect"
	"testing"
)

func TestShouldCrawl(t *testing.T) {
	scoped := DefaultPolicy()

	unscoped := DefaultPolicy()
	unscoped.SameDomainOnly = false

	filtered := DefaultPolicy()
	filtered.ExcludePatterns = []string{"/admin"}
	filtered.IncludePatterns = []string{"/"}

	includeOnly := DefaultPolicy()
	includeOnly.IncludePatterns = []string{"/docs/", "/blog/"}

	blankPatterns := DefaultPolicy()
	blankPatterns.ExcludePatterns = []string{""}
	blankPatterns.IncludePatterns = []string{""}

	tests := []struct {
		name       string
		url        string
		baseDomain string
		policy     Policy
		want       bool
	}{
		{"same domain", "https://example.com/x", "example.com", scoped, true},
		{"www url, bare base", "https://www.a.com/x", "a.com", scoped, true},
		{"bare url, www base", "https://a.com/x", "www.a.com", scoped, true},
		{"other domain scoped", "https://other.com/x", "example.com", scoped, false},
		{"subdomain scoped", "https://blog.example.com/x", "example.com", scoped, false},
		{"other domain unscoped", "https://other.com/x", "example.com", unscoped, true},
		{"exclude wins over include", "https://a.com/admin/page", "a.com", filtered, false},
		{"include matches", "https://a.com/public/page", "a.com", filtered, true},
		{"include matches one", "https://a.com/blog/post", "a.com", includeOnly, true},
		{"include matches none", "https://a.com/shop/item", "a.com", includeOnly, false},
		{"blank patterns ignored", "https://a.com/anything", "a.com", blankPatterns, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldCrawl(tt.url, tt.baseDomain, tt.policy); got != tt.want {
				t.Errorf("ShouldCrawl(%q, %q) = %v, want %v", tt.url, tt.baseDomain, got, tt.want)
			}
		})
	}
}

func TestExtractLinks(t *testing.T) {
	hrefs := []string{
		"",
		"   ",
		"javascript:void(0)",
		"JavaScript:alert(1)",
		"mailto:team@example.com",
		"tel:+15550100",
		"data:text/plain,hello",
		"file:///etc/passwd",
		"/about",
		"post-1",
		"post-1#comments",
		"https://other.com/x",
		"https://www.example.com/contact",
		"/",
		"https://example.com",
		"#top",
		"/about",
		"ftp://example.com/file",
	}

	t.Run("same domain only", func(t *testing.T) {
		got := ExtractLinks(hrefs, "example.com", DefaultPolicy(), "https://example.com/blog/")
		want := []string{
			"https://example.com/about",
			"https://example.com/blog/post-1",
			"https://www.example.com/contact",
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ExtractLinks() = %v, want %v", got, want)
		}
	})

	t.Run("any domain", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.SameDomainOnly = false
		got := ExtractLinks(hrefs, "example.com", policy, "https://example.com/blog/")
		want := []string{
			"https://example.com/about",
			"https://example.com/blog/post-1",
			"https://other.com/x",
			"https://www.example.com/contact",
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ExtractLinks() = %v, want %v", got, want)
		}
	})
}

func TestExtractLinks_JavascriptOnly(t *testing.T) {
	got := ExtractLinks([]string{"javascript:void(0)"}, "example.com", DefaultPolicy(), "https://example.com/")
	if len(got) != 0 {
		t.Errorf("ExtractLinks() = %v, want no links", got)
	}
}

func TestExtractLinks_SkipsSelf(t *testing.T) {
	got := ExtractLinks(
		[]string{"https://example.com/page", "https://example.com/page#reviews", "/other"},
		"example.com", DefaultPolicy(), "https://example.com/page")
	if len(got) != 1 || got[0] != "https://example.com/other" {
		t.Errorf("ExtractLinks() = %v, want [https://example.com/other]", got)
	}
}

func TestExtractLinks_InvalidCurrentURL(t *testing.T) {
	if got := ExtractLinks([]string{"/a"}, "example.com", DefaultPolicy(), "not a url"); got != nil {
		t.Errorf("ExtractLinks() = %v, want nil", got)
	}
}
