package access

import (
	"fmt"
	"strings"
)

// Level orders permission levels so a higher grant satisfies a lower
// requirement: owner covers write, write covers read.
type Level int

const (
	Read Level = iota + 1
	Write
	Owner
)

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read":
		return Read, nil
	case "write":
		return Write, nil
	case "owner":
		return Owner, nil
	}
	return 0, fmt.Errorf("unknown permission level %q (expected read, write or owner)", s)
}

func (l Level) String() string {
	switch l {
	case Read:
		return "read"
	case Write:
		return "write"
	case Owner:
		return "owner"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Satisfies reports whether this level meets a required level.
func (l Level) Satisfies(required Level) bool {
	return l >= required
}

type grantKey struct {
	bucket string
	key    string
	user   string
}

// Authorizer is an in-memory permission store scoped to one facade instance.
// It is constructed explicitly rather than held in package state so tests and
// embedders run in isolation. Entries have no expiry and no persistence: they
// are lost on process exit. There is no concurrent-access protection; callers
// needing concurrency must serialize externally.
//
// Bucket-level grants use an empty object key and act as a fallback for every
// object in the bucket.
type Authorizer struct {
	grants map[grantKey]Level
}

func NewAuthorizer() *Authorizer {
	return &Authorizer{
		grants: make(map[grantKey]Level),
	}
}

// Grant inserts or overwrites a permission entry.
func (a *Authorizer) Grant(bucket, key, user string, level Level) {
	a.grants[grantKey{bucket, key, user}] = level
}

// Check reports whether user holds at least the required level on
// bucket/key, either through an object-level grant or a bucket-level one.
func (a *Authorizer) Check(bucket, key, user string, required Level) bool {
	if level, ok := a.grants[grantKey{bucket, key, user}]; ok && level.Satisfies(required) {
		return true
	}
	if key == "" {
		return false
	}
	level, ok := a.grants[grantKey{bucket, "", user}]
	return ok && level.Satisfies(required)
}

// HasGrants reports whether any user holds a grant on exactly bucket/key.
// The facade uses it to decide whether a writer is the first owner of a new
// object.
func (a *Authorizer) HasGrants(bucket, key string) bool {
	for k := range a.grants {
		if k.bucket == bucket && k.key == key {
			return true
		}
	}
	return false
}
