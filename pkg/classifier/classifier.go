// Package classifier maps completed spans onto typed graph path elements.
// Dispatch is table-driven: an ordered set of rules keyed by attribute family,
// evaluated in fixed priority order.
package classifier

import (
	"go.opentelemetry.io/otel/attribute"

	"github.com/hyp3rd/tracepath/types"
)

// Classifier classifies spans against an ordered rule table. The zero value is
// not usable; construct it with New.
type Classifier struct {
	rules []Rule
}

// New creates a classifier. With no arguments it uses DefaultRules; passing
// rules replaces the table entirely.
func New(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	return &Classifier{rules: rules}
}

// Register appends rules to the table. Appended rules run after the existing
// ones, so they extend rather than override the default families.
func (c *Classifier) Register(rules ...Rule) {
	c.rules = append(c.rules, rules...)
}

// Classify maps a completed span to its graph path element. It is pure: the
// span is read-only and no state is touched. The second return value is false
// when no rule matches; such spans are excluded from path-key computation and
// only counted under the unclassified bucket by the caller.
func (c *Classifier) Classify(span types.Span) (Element, bool) {
	for _, rule := range c.rules {
		if !matches(span, rule.Match) {
			continue
		}

		element := rule.Build(span.Attr)
		if element == nil {
			continue
		}

		return element, true
	}

	return nil, false
}

// matches reports whether any of the family discriminator keys is present.
func matches(span types.Span, keys []attribute.Key) bool {
	for _, key := range keys {
		if _, ok := span.Attr(key); ok {
			return true
		}
	}

	return false
}
