// Package backend provides the LDAP backend interface that wraps the storage engine
// and provides LDAP-specific operations including authentication, entry validation,
// and coordination with the storage layer.
package backend

// DeleteEntry removes an entry from the directory with proper validation.
// This method checks for children before deletion and returns appropriate errors.
// Returns ErrEntryNotFound if the entry does not exist.
// Returns ErrNotAllowedOnNonLeaf if the entry has children.
func (b *ObaBackend) DeleteEntry(dn string) error {
	return b.Delete(dn)
}
