package lookup

import (
	"testing"

	"epochwatch/internal/snapshot"
)

var rows = []snapshot.IdentityRow{
	{Rank: 1, Address: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", TotalGradeScore: 12.5},
	{Rank: 2, Address: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", TotalGradeScore: 9.25},
}

func TestResolveEmptyInputIsNoQuery(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		res := Resolve(input, rows)
		if res.State != StateNone {
			t.Fatalf("Resolve(%q) = %v, want none", input, res.State)
		}
	}
}

func TestResolveInvalidFormat(t *testing.T) {
	for _, input := range []string{"0x123", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "0xzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", "hello"} {
		res := Resolve(input, rows)
		if res.State != StateInvalid {
			t.Fatalf("Resolve(%q) = %v, want invalid", input, res.State)
		}
	}
}

func TestResolveMixedCaseFinds(t *testing.T) {
	res := Resolve("  0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA ", rows)
	if res.State != StateFound {
		t.Fatalf("expected found, got %v", res.State)
	}
	if res.Identity == nil || res.Identity.Rank != 1 {
		t.Fatalf("expected rank 1 identity, got %+v", res.Identity)
	}
}

func TestResolveWellFormedButUnranked(t *testing.T) {
	res := Resolve("0xcccccccccccccccccccccccccccccccccccccccc", rows)
	if res.State != StateNotFound {
		t.Fatalf("expected not_found, got %v", res.State)
	}
	if res.Identity != nil {
		t.Fatal("not_found should carry no identity")
	}
}

func TestIsWellFormed(t *testing.T) {
	cases := map[string]bool{
		"0xabcdef0123456789abcdef0123456789abcdef01": true,
		"0x123": false,
		"abcdef0123456789abcdef0123456789abcdef01":   false, // prefix mandatory
		"0xabcdef0123456789abcdef0123456789abcdef012": false,
	}
	for addr, want := range cases {
		if got := IsWellFormed(addr); got != want {
			t.Fatalf("IsWellFormed(%q) = %v, want %v", addr, got, want)
		}
	}
}

func TestResolveReturnsCopy(t *testing.T) {
	res := Resolve("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", rows)
	res.Identity.Rank = 99
	if rows[0].Rank != 1 {
		t.Fatal("resolving must not mutate the source rows")
	}
}
