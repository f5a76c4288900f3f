// Package server provides the LDAP server implementation.
package server

// Entry is the server package's storage-agnostic view of an LDAP entry: a
// DN plus its multi-valued attributes. Default operation handlers in this
// package exchange Entry values with whatever backend is wired in via the
// per-operation interfaces (see add.go, bind.go, compare.go, search.go).
type Entry struct {
	// DN is the distinguished name of the entry.
	DN string
	// Attributes maps attribute name to its values.
	Attributes map[string][][]byte
}

// NewEntry creates a new Entry with the given DN and an empty attribute set.
func NewEntry(dn string) *Entry {
	return &Entry{
		DN:         dn,
		Attributes: make(map[string][][]byte),
	}
}

// SetAttribute sets the values for the given attribute name.
func (e *Entry) SetAttribute(name string, values [][]byte) {
	if e.Attributes == nil {
		e.Attributes = make(map[string][][]byte)
	}
	e.Attributes[name] = values
}

// SetStringAttribute sets the values for the given attribute name from
// plain strings, a convenience wrapper around SetAttribute for callers that
// don't otherwise work with []byte values.
func (e *Entry) SetStringAttribute(name string, values ...string) {
	byteValues := make([][]byte, len(values))
	for i, v := range values {
		byteValues[i] = []byte(v)
	}
	e.SetAttribute(name, byteValues)
}

// GetAttribute returns the values for the given attribute name, or nil if
// unset.
func (e *Entry) GetAttribute(name string) [][]byte {
	return e.Attributes[name]
}

// Scope is an LDAP search scope.
type Scope int

// Search scope values, matching RFC 4511's SearchRequest.scope enumeration.
const (
	ScopeBase Scope = iota
	ScopeOneLevel
	ScopeSubtree
)

// Iterator iterates over entries produced by a backend search.
type Iterator interface {
	// Next advances the iterator, returning false when exhausted or on error.
	Next() bool
	// Entry returns the current entry. Valid only after a successful Next.
	Entry() *Entry
	// Error returns the first error encountered during iteration, if any.
	Error() error
	// Close releases resources held by the iterator.
	Close()
}
