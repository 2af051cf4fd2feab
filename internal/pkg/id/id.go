package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs are lexicographically sortable
// by creation time.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// Prefixed returns prefix + "_" + a ULID, e.g. "user_01HV...".
func Prefixed(prefix string) string {
	return prefix + "_" + New()
}
