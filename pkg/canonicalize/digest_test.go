package canonicalize

import "testing"

func TestDigest_KeyOrderIndependent(t *testing.T) {
	a := map[string]any{"user": "alice", "amount": 100, "currency": "USD"}
	b := map[string]any{"currency": "USD", "amount": 100, "user": "alice"}

	h1, err := Digest([]any{a})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := Digest([]any{b})
	if err != nil {
		t.Fatal(err)
	}

	if h1 != h2 {
		t.Errorf("digests differ for structurally equal maps: %s != %s", h1, h2)
	}
}

func TestDigest_DistinguishesValues(t *testing.T) {
	h1, err := Digest([]any{"Alice"})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := Digest([]any{"Bob"})
	if err != nil {
		t.Fatal(err)
	}

	if h1 == h2 {
		t.Error("distinct argument lists produced identical digests")
	}
}

func TestDigest_DistinguishesArity(t *testing.T) {
	h1, err := Digest([]any{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := Digest([]any{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}

	if h1 == h2 {
		t.Error("lists of different length produced identical digests")
	}
}

func TestDigest_EmptyArgs(t *testing.T) {
	h, err := Digest(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(h) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h))
	}

	h2, err := Digest([]any{})
	if err != nil {
		t.Fatal(err)
	}
	if h != h2 {
		t.Error("nil and empty argument lists should digest identically")
	}
}

func TestDigest_StructAndMapEquivalence(t *testing.T) {
	type order struct {
		SKU string `json:"sku"`
		Qty int    `json:"qty"`
	}

	h1, err := Digest([]any{order{SKU: "a-1", Qty: 3}})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := Digest([]any{map[string]any{"qty": 3, "sku": "a-1"}})
	if err != nil {
		t.Fatal(err)
	}

	if h1 != h2 {
		t.Errorf("struct and equivalent map digest differently: %s != %s", h1, h2)
	}
}
