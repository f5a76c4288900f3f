package backend

import (
	"github.com/oba-ldap/oba/internal/server"
)

// This file adapts ObaBackend to the interfaces internal/server's operation
// handlers expect (server.Backend, server.AddBackend, server.DeleteBackend,
// server.SearchBackend, and the optional bind-DN-aware variants), so the
// handlers built around request controls (§4.11) run against the real
// directory store rather than the ad hoc closures cmd/oba used to wire up
// directly.

// GetEntry retrieves an entry by its DN, returning nil (not an error) when
// the entry does not exist, matching server.Backend's contract.
func (b *ObaBackend) GetEntry(dn string) (*server.Entry, error) {
	normalizedDN := normalizeDN(dn)
	se, err := b.store.get(normalizedDN)
	if err != nil {
		return nil, nil
	}
	return storeToServerEntry(se), nil
}

// AddEntry adds a new entry with no bind DN attribution. Satisfies
// server.AddBackend.
func (b *ObaBackend) AddEntry(entry *server.Entry) error {
	return b.AddEntryAsBindDN(entry, "")
}

// AddEntryAsBindDN adds a new entry, attributing creatorsName/modifiersName
// to bindDN. Satisfies server.AddBackendWithBindDN.
func (b *ObaBackend) AddEntryAsBindDN(entry *server.Entry, bindDN string) error {
	return b.AddWithBindDN(serverToBackendEntry(entry), bindDN)
}

// ModifyEntryAsBindDN applies changes to dn, attributing modifiersName to
// bindDN. Satisfies server.ModifyBackendWithBindDN.
func (b *ObaBackend) ModifyEntryAsBindDN(dn string, changes []server.Modification, bindDN string) error {
	return b.ModifyWithBindDN(dn, convertServerModifications(changes), bindDN)
}

// SearchByDN returns an iterator over entries at baseDN per scope. Satisfies
// server.SearchBackend. Results flow through a bounded FIFO (§4.8) rather
// than being handed back as a fully materialized slice, so a consumer that
// stops draining (size limit, abandon, connection loss) applies
// back-pressure to the producer instead of the whole result set having
// already been built.
func (b *ObaBackend) SearchByDN(baseDN string, scope server.Scope) server.Iterator {
	normalizedBaseDN := normalizeDN(baseDN)
	if normalizedBaseDN != "" {
		if _, err := b.store.get(normalizedBaseDN); err != nil {
			return failedIterator(ErrEntryNotFound)
		}
	}

	storeEntries := b.store.search(normalizedBaseDN, searchScope(scope))
	entries := make([]*server.Entry, len(storeEntries))
	for i, se := range storeEntries {
		entries[i] = storeToServerEntry(se)
	}

	it := newStreamingIterator()
	it.startProducer(entries)
	return it
}

// modifyDNBackend adapts ObaBackend's ModifyDN (which takes the backend
// package's own ModifyDNRequest) to server.ModifyDNBackend's signature.
// ObaBackend cannot implement server.ModifyDNBackend directly since Go
// forbids two methods named ModifyDN with different parameter types on the
// same receiver.
type modifyDNBackend struct {
	backend *ObaBackend
}

// NewModifyDNBackend wraps an ObaBackend as a server.ModifyDNBackend.
func NewModifyDNBackend(b *ObaBackend) server.ModifyDNBackend {
	return &modifyDNBackend{backend: b}
}

func (a *modifyDNBackend) ModifyDN(req *server.ModifyDNRequestData) error {
	return a.backend.ModifyDN(&ModifyDNRequest{
		DN:           req.DN,
		NewRDN:       req.NewRDN,
		DeleteOldRDN: req.DeleteOldRDN,
		NewSuperior:  req.NewSuperior,
	})
}

// CheckReferral forwards to the wrapped ObaBackend, satisfying
// server.Referrer.
func (a *modifyDNBackend) CheckReferral(dn string) ([]string, bool) {
	return a.backend.CheckReferral(dn)
}

// NearestAncestor forwards to the wrapped ObaBackend, satisfying
// server.MatchedDNFinder.
func (a *modifyDNBackend) NearestAncestor(dn string) string {
	return a.backend.NearestAncestor(dn)
}

// passwordBackend adapts ObaBackend to server.PasswordBackend for the
// Password Modify extended operation (RFC 3062). A separate wrapper type is
// needed since its GetEntry returns *server.PasswordEntry, not *server.Entry.
type passwordBackend struct {
	backend *ObaBackend
}

// NewPasswordBackend wraps an ObaBackend as a server.PasswordBackend.
func NewPasswordBackend(b *ObaBackend) server.PasswordBackend {
	return &passwordBackend{backend: b}
}

func (a *passwordBackend) GetEntry(dn string) (*server.PasswordEntry, error) {
	se, err := a.backend.store.get(normalizeDN(dn))
	if err != nil {
		return nil, nil
	}
	passwords := se.Attributes[PasswordAttribute]
	var hashed string
	if len(passwords) > 0 {
		hashed = string(passwords[0])
	}
	return &server.PasswordEntry{DN: se.DN, Password: hashed}, nil
}

// SetPassword hashes password with the same scheme Bind verifies against and
// replaces the entry's userPassword attribute.
func (a *passwordBackend) SetPassword(dn string, password []byte) error {
	hashed, err := server.HashPassword(string(password), server.SchemeSSHA256)
	if err != nil {
		return err
	}
	return a.backend.ModifyEntry(dn, []server.Modification{
		{Type: server.ModifyReplace, Attribute: PasswordAttribute, Values: []string{hashed}},
	})
}

// VerifyPassword delegates to Bind, reusing its account-lockout-free
// credential check.
func (a *passwordBackend) VerifyPassword(dn string, password string) error {
	return a.backend.Bind(dn, password)
}

// storeToServerEntry converts a store entry to a server.Entry. Both use
// map[string][][]byte attributes, so this is a direct field copy.
func storeToServerEntry(se *storeEntry) *server.Entry {
	if se == nil {
		return nil
	}
	attrs := make(map[string][][]byte, len(se.Attributes))
	for name, values := range se.Attributes {
		attrs[name] = values
	}
	return &server.Entry{DN: se.DN, Attributes: attrs}
}

// serverToBackendEntry converts a server.Entry (byte-valued) to a backend
// Entry (string-valued).
func serverToBackendEntry(entry *server.Entry) *Entry {
	e := NewEntry(entry.DN)
	for name, values := range entry.Attributes {
		stringValues := make([]string, len(values))
		for i, v := range values {
			stringValues[i] = string(v)
		}
		e.Attributes[name] = stringValues
	}
	return e
}

// convertServerModifications converts server.Modification values to the
// backend package's own Modification type.
func convertServerModifications(changes []server.Modification) []Modification {
	result := make([]Modification, len(changes))
	for i, c := range changes {
		result[i] = Modification{
			Type:      ModificationType(c.Type),
			Attribute: c.Attribute,
			Values:    c.Values,
		}
	}
	return result
}
