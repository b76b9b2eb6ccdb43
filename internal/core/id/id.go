// Package id generates and parses entity identifiers. Every document
// and catalog record in the system keys on a UUIDv7, whose leading
// timestamp bits keep inserts roughly append-ordered in PostgreSQL.
package id

import (
	"github.com/google/uuid"
)

// ID aliases uuid.UUID so call sites never import the uuid package
// directly.
type ID = uuid.UUID

// New returns a fresh UUIDv7. Generation only fails when the system
// entropy source does, in which case a random UUIDv4 is returned so
// callers never see an error for an identifier.
func New() ID {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v7
}

// Parse validates and converts a string form.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse panics on malformed input. For fixtures and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil is the zero identifier.
func Nil() ID {
	return uuid.Nil
}

// IsNil reports whether id is the zero identifier.
func IsNil(id ID) bool {
	return id == uuid.Nil
}
