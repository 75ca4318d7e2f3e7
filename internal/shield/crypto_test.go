package shield

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

func TestHash2Deterministic(t *testing.T) {
	var a, b fr.Element
	a.SetUint64(7)
	b.SetUint64(11)

	h1 := Hash2(a, b)
	h2 := Hash2(a, b)
	if !h1.Equal(&h2) {
		t.Error("Hash2 is not deterministic")
	}

	swapped := Hash2(b, a)
	if h1.Equal(&swapped) {
		t.Error("Hash2 should depend on argument order")
	}
}

func TestZeroHashChain(t *testing.T) {
	var zero fr.Element
	if z := ZeroHash(0); !z.Equal(&zero) {
		t.Errorf("level-0 zero hash should be the zero element, got %s", z.String())
	}
	for i := 1; i <= TreeDepth; i++ {
		prev := ZeroHash(i - 1)
		want := Hash2(prev, prev)
		got := ZeroHash(i)
		if !got.Equal(&want) {
			t.Errorf("level %d zero hash is not the self-hash of level %d", i, i-1)
		}
	}
	root := EmptyRoot()
	top := ZeroHash(TreeDepth)
	if !root.Equal(&top) {
		t.Error("EmptyRoot should equal the top-level zero hash")
	}
}

func TestNullifierBindsLeafIndex(t *testing.T) {
	note, err := NewNote(AssetID(NativeAsset), big.NewInt(100))
	if err != nil {
		t.Fatalf("NewNote failed: %v", err)
	}
	n0 := note.NullifierAt(0)
	n1 := note.NullifierAt(1)
	if n0.Equal(&n1) {
		t.Error("nullifiers at different leaf indices should differ")
	}
	again := note.NullifierAt(0)
	if !n0.Equal(&again) {
		t.Error("nullifier at a fixed leaf index should be stable")
	}
}

func TestCommitmentDigestInputSensitivity(t *testing.T) {
	asset := AssetID(NativeAsset)
	base, err := NewNote(asset, big.NewInt(42))
	if err != nil {
		t.Fatalf("NewNote failed: %v", err)
	}
	cm := base.Commitment()

	other := *base
	other.Amount = big.NewInt(43)
	if c := other.Commitment(); cm.Equal(&c) {
		t.Error("commitment should change with the amount")
	}
	other = *base
	secret, _ := RandomElement()
	other.Secret = secret
	if c := other.Commitment(); cm.Equal(&c) {
		t.Error("commitment should change with the secret")
	}
}

func TestAssetIDDerivation(t *testing.T) {
	var zero fr.Element
	native := AssetID(NativeAsset)
	want := Hash2(zero, zero)
	if !native.Equal(&want) {
		t.Error("native asset identifier should be Hash2(0, 0)")
	}
	tokenA := AssetID(big.NewInt(1001))
	tokenB := AssetID(big.NewInt(1002))
	if tokenA.Equal(&tokenB) {
		t.Error("distinct asset addresses should derive distinct identifiers")
	}
}

func TestNewNoteRejectsBadAmounts(t *testing.T) {
	asset := AssetID(NativeAsset)
	if _, err := NewNote(asset, big.NewInt(0)); err != ErrZeroAmount {
		t.Errorf("expected ErrZeroAmount, got %v", err)
	}
	if _, err := NewNote(asset, new(big.Int).Set(frModulus)); err != ErrNotInField {
		t.Errorf("expected ErrNotInField, got %v", err)
	}
}
