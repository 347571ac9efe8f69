package classifier

import "strings"

// ElementKind tags the closed set of graph path element variants.
type ElementKind string

const (
	// KindHTTP is an HTTP service call.
	KindHTTP ElementKind = "http"
	// KindDatabase is a database call.
	KindDatabase ElementKind = "db"
	// KindMessaging is a messaging operation.
	KindMessaging ElementKind = "messaging"
	// KindRPC is a remote procedure call.
	KindRPC ElementKind = "rpc"
	// KindExternal is a call to an external dependency that matches no richer family.
	KindExternal ElementKind = "external"
)

// String returns the string representation of the ElementKind.
func (k ElementKind) String() string {
	return string(k)
}

// Element is a typed graph path element classified from a span. Each variant
// canonicalizes its discriminator fields in a fixed order, prefixed by the
// kind tag so canonical forms never collide across categories.
type Element interface {
	// Kind returns the element's type tag.
	Kind() ElementKind
	// Canonical returns the stable string form of the element,
	// e.g. "http:GET:/orders/{id}".
	Canonical() string
}

// HTTPElement is an HTTP service call, discriminated by request method and route.
type HTTPElement struct {
	Method string
	Route  string
}

// Kind returns KindHTTP.
func (e HTTPElement) Kind() ElementKind { return KindHTTP }

// Canonical returns "http:<method>:<route>"; the route part is omitted when
// the instrumentation recorded none.
func (e HTTPElement) Canonical() string {
	return canonical(KindHTTP, e.Method, e.Route)
}

// DatabaseElement is a database call, discriminated by subsystem and namespace.
type DatabaseElement struct {
	System    string
	Namespace string
}

// Kind returns KindDatabase.
func (e DatabaseElement) Kind() ElementKind { return KindDatabase }

// Canonical returns "db:<system>" or "db:<system>:<namespace>".
func (e DatabaseElement) Canonical() string {
	return canonical(KindDatabase, e.System, e.Namespace)
}

// MessagingElement is a messaging operation, discriminated by system and destination.
type MessagingElement struct {
	System      string
	Destination string
}

// Kind returns KindMessaging.
func (e MessagingElement) Kind() ElementKind { return KindMessaging }

// Canonical returns "messaging:<system>:<destination>".
func (e MessagingElement) Canonical() string {
	return canonical(KindMessaging, e.System, e.Destination)
}

// RPCElement is a remote procedure call, discriminated by system, service, and method.
type RPCElement struct {
	System  string
	Service string
	Method  string
}

// Kind returns KindRPC.
func (e RPCElement) Kind() ElementKind { return KindRPC }

// Canonical returns "rpc:<system>:<service>:<method>".
func (e RPCElement) Canonical() string {
	return canonical(KindRPC, e.System, e.Service, e.Method)
}

// ExternalElement is a dependency identified only by its peer, for spans that
// carry a peer identity but none of the richer attribute families.
type ExternalElement struct {
	Peer string
}

// Kind returns KindExternal.
func (e ExternalElement) Kind() ElementKind { return KindExternal }

// Canonical returns "external:<peer>".
func (e ExternalElement) Canonical() string {
	return canonical(KindExternal, e.Peer)
}

// canonical joins the kind tag and the non-empty discriminator fields with a
// colon, preserving field order.
func canonical(kind ElementKind, fields ...string) string {
	parts := make([]string, 0, len(fields)+1)
	parts = append(parts, kind.String())

	for _, field := range fields {
		if field != "" {
			parts = append(parts, field)
		}
	}

	return strings.Join(parts, ":")
}
