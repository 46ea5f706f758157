package models

import "github.com/google/uuid"

// ensureID assigns a fresh identifier so rows can be written to stores that
// have no server-side uuid default.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
