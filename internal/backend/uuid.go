// Package backend provides the LDAP backend interface that wraps the storage engine
// and provides LDAP-specific operations including authentication, entry validation,
// and coordination with the storage layer.
package backend

import "github.com/google/uuid"

// GenerateUUID generates a UUID v4 for use as an entryUUID operational attribute.
func GenerateUUID() string {
	return uuid.NewString()
}
