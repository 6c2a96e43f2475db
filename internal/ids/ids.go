// Package ids generates the time-ordered identifiers used for clients,
// CMS blocks, uploaded images and previews.
package ids

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// New generates a ULID stamped with t. ULIDs sort by creation time and carry
// 80 bits of entropy, so ids minted in the same millisecond stay unique.
func New(t time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Time extracts the creation time from a ULID. ok is false for ids that are
// not ULIDs (for example ids assigned by a remote registry).
func Time(id string) (time.Time, bool) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(parsed.Time()), true
}
