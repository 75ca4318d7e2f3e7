// crypto.go - Cryptographic derivations shared by the on-record core and the
// off-record prover.
//
// All digests are MiMC over the BN254 scalar field. The derivations here are
// the contract the constraint specification re-states in-circuit; the two
// must agree bit for bit or proofs verify against the wrong values.

package shield

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// TreeDepth is the height of the commitment accumulator.
const TreeDepth = 20

// Capacity bounds the number of leaves the accumulator can ever hold.
const Capacity = uint64(1) << TreeDepth

var frModulus = fr.Modulus()

// zeros[i] is the digest of an empty subtree of height i. Derived once by
// repeatedly self-hashing the prior level's zero value; this is the
// canonical default path shared with off-record tree construction.
var zeros [TreeDepth + 1]fr.Element

func init() {
	for i := 1; i <= TreeDepth; i++ {
		zeros[i] = Hash2(zeros[i-1], zeros[i-1])
	}
}

// Hash2 computes MiMC(a, b) over canonical field-element encodings.
func Hash2(a, b fr.Element) fr.Element {
	h := mimc.NewMiMC()
	ab := a.Bytes()
	bb := b.Bytes()
	h.Write(ab[:])
	h.Write(bb[:])
	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out
}

// Hash5 computes MiMC(a, b, c, d, e) over canonical field-element encodings.
func Hash5(a, b, c, d, e fr.Element) fr.Element {
	h := mimc.NewMiMC()
	for _, v := range []fr.Element{a, b, c, d, e} {
		vb := v.Bytes()
		h.Write(vb[:])
	}
	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out
}

// CommitmentDigest computes cm = Hash5(secret, nullifierSecret, assetId,
// amount, blinding). Computed off the record only; the pool never recomputes
// it, it only checks field-validity of the supplied value.
func CommitmentDigest(secret, nullifierSecret, assetID fr.Element, amount *big.Int, blinding fr.Element) fr.Element {
	var amt fr.Element
	amt.SetBigInt(amount)
	return Hash5(secret, nullifierSecret, assetID, amt, blinding)
}

// NullifierDigest computes nf = Hash2(Hash2(nullifierSecret, cm), leafIndex).
// Binding the leaf index prevents two commitments sharing secrets from
// colliding and forecloses nullifying without proving tree position.
func NullifierDigest(nullifierSecret, commitment fr.Element, leafIndex uint64) fr.Element {
	inner := Hash2(nullifierSecret, commitment)
	var idx fr.Element
	idx.SetUint64(leafIndex)
	return Hash2(inner, idx)
}

// AssetID derives the field identifier for an asset address:
// Hash2(assetAddress, 0). The native-currency identifier is AssetID(0).
func AssetID(assetAddress *big.Int) fr.Element {
	var addr, zero fr.Element
	if assetAddress != nil {
		addr.SetBigInt(assetAddress)
	}
	return Hash2(addr, zero)
}

// NativeAsset is the address under which the platform's base unit is keyed.
var NativeAsset = big.NewInt(0)

// ZeroHash returns the digest of an empty subtree of height level.
func ZeroHash(level int) fr.Element {
	return zeros[level]
}

// EmptyRoot is the root of the empty depth-20 tree.
func EmptyRoot() fr.Element {
	return zeros[TreeDepth]
}

// validFieldElement reports whether v is a canonical scalar field value.
func validFieldElement(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(frModulus) < 0
}

// elementOf reduces nothing: it requires v already canonical and converts.
func elementOf(v *big.Int) (fr.Element, error) {
	var e fr.Element
	if !validFieldElement(v) {
		return e, ErrNotInField
	}
	e.SetBigInt(v)
	return e, nil
}

// RandomElement draws a uniformly random field element from crypto/rand.
func RandomElement() (fr.Element, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return e, err
	}
	return e, nil
}
