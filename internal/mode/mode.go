package mode

import (
	"fmt"
	"strings"
)

// Mode selects which backend a client is bound to. It is immutable once a
// client has been constructed.
type Mode string

const (
	// Mock addresses a locally run S3-compatible endpoint (moto, minio)
	// with static test credentials.
	Mock Mode = "mock"
	// Real addresses AWS proper using resolvable credentials.
	Real Mode = "real"
)

// Auto is not a mode a client can be bound to; it instructs the CLI to run
// the identity probe and pick Mock or Real based on the outcome.
const Auto = "auto"

func Parse(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mock":
		return Mock, nil
	case "real":
		return Real, nil
	}
	return "", fmt.Errorf("unknown storage mode %q (expected mock or real)", s)
}

func (m Mode) String() string {
	return string(m)
}

// All returns every mode a client can be bound to. The mirror keeps one
// subtree per entry.
func All() []Mode {
	return []Mode{Mock, Real}
}
