package pipeline

import (
	"strings"
	"testing"
)

func TestGenerateULID_Format(t *testing.T) {
	id := generateULID()
	if len(id) != 26 {
		t.Fatalf("expected 26 chars, got %d (%q)", len(id), id)
	}
	for _, c := range id {
		if !strings.ContainsRune(crockford, c) {
			t.Errorf("unexpected character %q in %q", c, id)
		}
	}
	if id[0] > '7' {
		t.Errorf("leading digit carries 3 bits, got %q", id[0])
	}
}

func TestGenerateULID_UniqueAndOrdered(t *testing.T) {
	prev := generateULID()
	seen := map[string]bool{prev: true}
	for range 1000 {
		id := generateULID()
		if seen[id] {
			t.Fatalf("duplicate ULID %q", id)
		}
		seen[id] = true
		if id[:10] < prev[:10] {
			t.Errorf("timestamp prefix went backwards: %q after %q", id, prev)
		}
		prev = id
	}
}

func TestEncodeULID_KnownValues(t *testing.T) {
	var zero [16]byte
	if got := encodeULID(zero); got != strings.Repeat("0", 26) {
		t.Errorf("expected all zeros, got %q", got)
	}

	var ones [16]byte
	for i := range ones {
		ones[i] = 0xff
	}
	if got := encodeULID(ones); got != "7"+strings.Repeat("Z", 25) {
		t.Errorf("expected 7ZZZ..., got %q", got)
	}

	var one [16]byte
	one[15] = 1
	if got := encodeULID(one); got != strings.Repeat("0", 25)+"1" {
		t.Errorf("expected trailing 1, got %q", got)
	}
}
