package types

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func hashOf(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

func TestCompressionContextDedupesAndOrders(t *testing.T) {
	ctx := NewCompressionContext()

	a := hashOf(0xaa)
	b := hashOf(0xbb)

	if idx := ctx.IndexFor(a); idx != 0 {
		t.Fatalf("first hash got index %d, want 0", idx)
	}
	if idx := ctx.IndexFor(b); idx != 1 {
		t.Fatalf("second distinct hash got index %d, want 1", idx)
	}
	if idx := ctx.IndexFor(a); idx != 0 {
		t.Fatalf("repeat of first hash got index %d, want 0 (dedup failed)", idx)
	}

	if ctx.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", ctx.Len())
	}

	hashes := ctx.Hashes()
	if len(hashes) != 2 || hashes[0] != a || hashes[1] != b {
		t.Fatalf("Hashes() = %v, want [%v %v]", hashes, a, b)
	}
}

func TestDecompressionContextResolvesAndBoundsChecks(t *testing.T) {
	a := hashOf(0x01)
	b := hashOf(0x02)
	dctx := NewDecompressionContext([]chainhash.Hash{a, b})

	got, err := dctx.HashAt(0)
	if err != nil || got != a {
		t.Fatalf("HashAt(0) = %v, %v, want %v, nil", got, err, a)
	}
	got, err = dctx.HashAt(1)
	if err != nil || got != b {
		t.Fatalf("HashAt(1) = %v, %v, want %v, nil", got, err, b)
	}

	if _, err := dctx.HashAt(2); err == nil {
		t.Fatal("HashAt(2) should fail: index out of range")
	}

	var codecErr *CodecError
	if _, err := dctx.HashAt(99); err != nil {
		var ok bool
		codecErr, ok = err.(*CodecError)
		if !ok {
			t.Fatalf("expected *CodecError, got %T", err)
		}
		if codecErr.Kind != OutOfRange {
			t.Fatalf("Kind = %v, want %v", codecErr.Kind, OutOfRange)
		}
	}
}
