// Package backend provides the LDAP backend interface that wraps the storage engine
// and provides LDAP-specific operations including authentication, entry validation,
// and coordination with the storage layer.
package backend

import "github.com/google/uuid"

// GenerateUUID generates a UUID v4, formatted as a standard UUID
// string: xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx.
func GenerateUUID() string {
	return uuid.New().String()
}
