package types

// Event represents a structured state change emitted by the protocol. The
// attribute map keeps values as strings so downstream indexers do not need
// module-specific decoding.
type Event struct {
	Type       string
	Attributes map[string]string
}
