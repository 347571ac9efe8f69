package classifier

import (
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Attribute names that moved between semantic-convention versions. Spans in
// the wild carry either generation, so the default rules accept both.
var (
	legacyHTTPMethodKey      = attribute.Key("http.method")
	legacyDBNameKey          = attribute.Key("db.name")
	legacyMessagingDestKey   = attribute.Key("messaging.destination")
	renamedDBSystemKey       = attribute.Key("db.system.name")
	renamedDBNamespaceKey    = attribute.Key("db.namespace")
	legacyPeerHostnameKey    = attribute.Key("net.peer.name")
	legacyHTTPServerRouteKey = attribute.Key("http.target")
)

// Lookup resolves a single attribute on the span under classification.
type Lookup func(key attribute.Key) (attribute.Value, bool)

// Rule binds an attribute family to an element constructor. Classification
// rules are data: new systems are added by appending rules, not by touching
// the dispatch logic.
type Rule struct {
	// Name identifies the rule in logs and tests.
	Name string
	// Match is the family discriminator: the rule fires when any of these
	// keys is present on the span.
	Match []attribute.Key
	// Build constructs the element from the span attributes. Returning nil
	// declines the span and lets later rules run.
	Build func(lookup Lookup) Element
}

// DefaultRules returns the built-in classification table in fixed priority
// order: database, messaging, HTTP, RPC, external peer. The families are
// mutually exclusive in well-formed spans, so the first match wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:  "database",
			Match: []attribute.Key{semconv.DBSystemKey, renamedDBSystemKey},
			Build: func(lookup Lookup) Element {
				return DatabaseElement{
					System:    firstString(lookup, semconv.DBSystemKey, renamedDBSystemKey),
					Namespace: firstString(lookup, renamedDBNamespaceKey, legacyDBNameKey),
				}
			},
		},
		{
			Name:  "messaging",
			Match: []attribute.Key{semconv.MessagingSystemKey},
			Build: func(lookup Lookup) Element {
				return MessagingElement{
					System:      firstString(lookup, semconv.MessagingSystemKey),
					Destination: firstString(lookup, semconv.MessagingDestinationNameKey, legacyMessagingDestKey),
				}
			},
		},
		{
			Name:  "http",
			Match: []attribute.Key{semconv.HTTPRequestMethodKey, legacyHTTPMethodKey},
			Build: func(lookup Lookup) Element {
				return HTTPElement{
					Method: firstString(lookup, semconv.HTTPRequestMethodKey, legacyHTTPMethodKey),
					Route:  firstString(lookup, semconv.HTTPRouteKey, legacyHTTPServerRouteKey),
				}
			},
		},
		{
			Name:  "rpc",
			Match: []attribute.Key{semconv.RPCSystemKey},
			Build: func(lookup Lookup) Element {
				return RPCElement{
					System:  firstString(lookup, semconv.RPCSystemKey),
					Service: firstString(lookup, semconv.RPCServiceKey),
					Method:  firstString(lookup, semconv.RPCMethodKey),
				}
			},
		},
		{
			Name:  "external",
			Match: []attribute.Key{semconv.PeerServiceKey, semconv.ServerAddressKey, legacyPeerHostnameKey},
			Build: func(lookup Lookup) Element {
				return ExternalElement{
					Peer: firstString(lookup, semconv.PeerServiceKey, semconv.ServerAddressKey, legacyPeerHostnameKey),
				}
			},
		},
	}
}

// firstString returns the first of the given keys present on the span,
// rendered as a string.
func firstString(lookup Lookup, keys ...attribute.Key) string {
	for _, key := range keys {
		if value, ok := lookup(key); ok {
			return value.Emit()
		}
	}

	return ""
}
