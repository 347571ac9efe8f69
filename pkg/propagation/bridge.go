// Package propagation moves path keys between execution contexts and
// transport carriers. The bridge is a pure boundary adapter: one
// implementation serves header-based, message-property-based, and
// metadata-based carriers alike through OpenTelemetry's TextMapCarrier
// abstraction, and it performs no classification or aggregation.
package propagation

import (
	"context"

	otelpropagation "go.opentelemetry.io/otel/propagation"

	"github.com/hyp3rd/tracepath/internal/constants"
	"github.com/hyp3rd/tracepath/pkg/pathkey"
	"github.com/hyp3rd/tracepath/types"
)

// Bridge reads and writes the well-known propagation key on carriers. It
// implements otelpropagation.TextMapPropagator, so it composes with any
// OpenTelemetry-instrumented transport.
type Bridge struct{}

var _ otelpropagation.TextMapPropagator = Bridge{}

// Extract reads the incoming path key from the carrier into a derived
// context. A missing key, the no-prior-path sentinel, or a malformed value
// all leave the context untouched.
func (Bridge) Extract(ctx context.Context, carrier otelpropagation.TextMapCarrier) context.Context {
	pathKey, state := Peek(carrier)
	if state != types.PropagationPresent {
		return ctx
	}

	return ContextWithPathKey(ctx, pathKey)
}

// Inject writes the current path key to the carrier. When the context carries
// no key yet, the no-prior-path sentinel is written instead, so the
// downstream hop can tell "instrumented but empty" apart from "never
// instrumented".
func (Bridge) Inject(ctx context.Context, carrier otelpropagation.TextMapCarrier) {
	if carrier == nil {
		return
	}

	pathKey, ok := FromContext(ctx)
	if !ok {
		carrier.Set(constants.PropagationKey, constants.NoPriorPathSentinel)

		return
	}

	carrier.Set(constants.PropagationKey, pathKey)
}

// Fields returns the carrier keys the bridge touches.
func (Bridge) Fields() []string {
	return []string{constants.PropagationKey}
}

// Peek inspects the carrier without deriving a context. It distinguishes a
// key that was never written, the no-prior-path sentinel, and a valid path
// key; malformed values and a nil carrier count as absent.
func Peek(carrier otelpropagation.TextMapCarrier) (string, types.PropagationState) {
	if carrier == nil {
		return "", types.PropagationAbsent
	}

	value := carrier.Get(constants.PropagationKey)

	switch {
	case value == "":
		return "", types.PropagationAbsent
	case value == constants.NoPriorPathSentinel:
		return "", types.PropagationEmpty
	case !pathkey.Valid(value):
		return "", types.PropagationAbsent
	}

	return value, types.PropagationPresent
}
