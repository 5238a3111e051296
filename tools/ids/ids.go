// Package ids generates the opaque identifiers used across the gateway:
// account ids, connection ids and per-delivery message ids.
package ids

import "github.com/google/uuid"

func GenerateString() string {
	return uuid.NewString()
}
