// Package lookup validates user-supplied addresses and resolves them against
// the ranked identity list.
package lookup

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"epochwatch/internal/snapshot"
)

// State classifies a lookup outcome. The four states are mutually exclusive:
// NotFound is reachable only for a well-formed, unmatched address.
type State int

const (
	// StateNone means the user typed nothing.
	StateNone State = iota
	// StateInvalid means the input is non-empty but not a well-formed address.
	StateInvalid
	// StateFound means the address resolved to a ranked identity.
	StateFound
	// StateNotFound means the address is well-formed but unranked.
	StateNotFound
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateInvalid:
		return "invalid"
	case StateFound:
		return "found"
	case StateNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Result is the outcome of resolving one query.
type Result struct {
	State    State
	Query    string
	Identity *snapshot.IdentityRow
}

// NormalizeQuery trims surrounding whitespace and lowercases. Addresses may
// arrive mixed-case from the user while stored entities are lowercase.
func NormalizeQuery(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// IsWellFormed reports whether a normalized query is exactly "0x" followed
// by 40 hex characters. The prefix is mandatory.
func IsWellFormed(addr string) bool {
	return strings.HasPrefix(addr, "0x") && common.IsHexAddress(addr)
}

// Resolve normalizes the input and scans the lookup rows for an exact match.
// Rows are leaderboard-sized, so a linear scan is fine; addresses are unique
// within one snapshot, so the first match wins.
func Resolve(input string, rows []snapshot.IdentityRow) Result {
	q := NormalizeQuery(input)
	if q == "" {
		return Result{State: StateNone}
	}
	if !IsWellFormed(q) {
		return Result{State: StateInvalid, Query: q}
	}
	for i := range rows {
		if rows[i].Address == q {
			row := rows[i]
			return Result{State: StateFound, Query: q, Identity: &row}
		}
	}
	return Result{State: StateNotFound, Query: q}
}
