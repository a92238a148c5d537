// Package idgen provides pluggable ID generation. Constructors that
// need identifiers (archive files, feedback rows) accept a Generator,
// making the ID strategy a startup-time decision.
package idgen

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// NanoID returns a Generator producing base-36 IDs of the given
// length. Short and URL-safe; use where UUIDv7 is too verbose.
func NanoID(length int) Generator {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	return func() string {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		b := make([]byte, length)
		for i := range b {
			b[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return string(b)
	}
}

// UUIDv7 returns a Generator producing RFC 9562 UUID v7 strings.
// Time-sortable and globally unique.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Timestamped returns a Generator producing IDs of the form
// "20060102T150405Z_<suffix>". Archive files named this way sort by
// capture time in a directory listing.
func Timestamped(gen Generator) Generator {
	return func() string {
		return time.Now().UTC().Format("20060102T150405Z") + "_" + gen()
	}
}

// Default is UUIDv7.
var Default Generator = UUIDv7()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}
