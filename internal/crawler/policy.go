package crawler

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Policy holds crawl configuration. A Policy is never mutated once a crawl
// has started.
type Policy struct {
	// MaxDepth is the deepest link level followed; the seed is depth 0.
	MaxDepth uint `validate:"lte=32"`
	// MaxPages caps the number of pages in the result.
	MaxPages uint `validate:"min=1"`
	// SameDomainOnly keeps the crawl on the seed's host, www-insensitive.
	SameDomainOnly bool

	// URL substring filters. Exclude wins over include.
	ExcludePatterns []string
	IncludePatterns []string

	NavigationTimeout  time.Duration `validate:"gt=0"`
	ContentSettleDelay time.Duration `validate:"gte=0"`
	ContentSelector    string        `validate:"required"`

	SaveHTML      bool // Archive raw HTML of each page
	RespectRobots bool // Consult robots.txt before each fetch

	// MaxDuration bounds the whole crawl (0 = none).
	MaxDuration time.Duration `validate:"gte=0"`
	// RequestsPerMinute caps the fetch rate (0 = none).
	RequestsPerMinute int `validate:"gte=0"`
}

// DefaultPolicy returns sensible crawl defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxDepth:           2,
		MaxPages:           50,
		SameDomainOnly:     true,
		NavigationTimeout:  60 * time.Second,
		ContentSettleDelay: 3 * time.Second,
		ContentSelector:    "body",
		SaveHTML:           true,
	}
}

// ErrInvalidPolicy is returned when a policy fails validation.
var ErrInvalidPolicy = errors.New("invalid crawl policy")

var validate = validator.New()

// Validate checks the policy's field constraints.
func (p Policy) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidPolicy, fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	return nil
}
