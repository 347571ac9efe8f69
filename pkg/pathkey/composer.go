// Package pathkey derives deterministic, hash-identified path keys from the
// causal chain of graph path elements observed during a request's lifetime.
package pathkey

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/hyp3rd/tracepath/internal/constants"
	"github.com/hyp3rd/tracepath/pkg/classifier"
)

// separator joins the identity, parent key, and canonical element before hashing.
const separator = "|"

// Composer composes path keys for one application identity. Compose is a pure
// function and total over its input domain: it never fails, and identical
// inputs always yield the identical key, across processes and hosts.
type Composer struct {
	appIdentity string
}

// NewComposer creates a composer bound to the given application identity. The
// identity participates in every digest, so the same causal chain observed by
// two different services yields two different keys.
func NewComposer(appIdentity string) *Composer {
	return &Composer{appIdentity: appIdentity}
}

// Compose combines the incoming path key with the element's canonical form
// into a new path key. An empty incoming key marks a root-of-graph span: the
// root sentinel is substituted before hashing, keeping roots distinguishable
// from hops whose upstream never propagated anything.
func (c *Composer) Compose(incoming string, element classifier.Element) string {
	parent := incoming
	if parent == "" {
		parent = constants.RootSentinel
	}

	sum := sha256.Sum256([]byte(c.appIdentity + separator + parent + separator + element.Canonical()))

	return hex.EncodeToString(sum[:])
}

// AppIdentity returns the identity the composer hashes under.
func (c *Composer) AppIdentity() string {
	return c.appIdentity
}

// Valid reports whether the given string has the shape of a composed path
// key: a hex-encoded 256-bit digest.
func Valid(key string) bool {
	if len(key) != constants.PathKeyLength {
		return false
	}

	for i := range len(key) {
		ch := key[i]
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return false
		}
	}

	return true
}
