// verifier.go - Pairing-based proof verifier over a fixed verification key.
//
// The verifier evaluates the single-product Groth16 check
//
//	e(-A, B) * e(alpha, beta) * e(acc, gamma) * e(C, delta) == 1
//
// with acc the linear combination of the public-input vector over the IC
// points. Key material is set once at construction and never mutated; a
// circuit upgrade replaces the whole record. A failure of the arithmetic
// engine is a verifier fault, reported distinctly from a proof that is
// merely invalid.

package shield

import (
	"fmt"
	"math/big"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
)

// NumPublicInputs is the length of the public-input vector:
// {root, nullifier, amount, recipient, changeCommitment, assetId}. The
// order is part of the verification contract and must match the constraint
// specification's public-signal order exactly.
const NumPublicInputs = 6

// VerifyingKey groups the fixed verification-key constants into one
// immutable record: deploy-time configuration, not scattered literals.
type VerifyingKey struct {
	Alpha bn254.G1Affine
	Beta  bn254.G2Affine
	Gamma bn254.G2Affine
	Delta bn254.G2Affine
	// IC holds the constant term followed by one point per public input.
	IC []bn254.G1Affine
}

// Proof is the wire-format proof: two curve points in G1, one in G2.
type Proof struct {
	A bn254.G1Affine
	B bn254.G2Affine
	C bn254.G1Affine
}

// Verifier evaluates proofs against its verification key.
type Verifier struct {
	vk VerifyingKey
}

// NewVerifier builds a verifier. The key must carry the constant IC term
// plus one point per expected public input.
func NewVerifier(vk VerifyingKey) (*Verifier, error) {
	if len(vk.IC) != NumPublicInputs+1 {
		return nil, fmt.Errorf("%w: verification key has %d ic points, want %d",
			ErrVerifierFault, len(vk.IC), NumPublicInputs+1)
	}
	key := vk
	key.IC = append([]bn254.G1Affine(nil), vk.IC...)
	return &Verifier{vk: key}, nil
}

// Verify checks proof against the ordered public-input vector. It returns
// nil for a valid proof, ErrInvalidProof when the pairing product is not
// the identity, ErrNotInField for an out-of-range input, and an error
// wrapping ErrVerifierFault when the arithmetic engine itself fails.
func (v *Verifier) Verify(proof *Proof, publicInputs []*big.Int) error {
	if proof == nil {
		return fmt.Errorf("%w: nil proof", ErrVerifierFault)
	}
	if len(publicInputs) != len(v.vk.IC)-1 {
		return fmt.Errorf("%w: got %d public inputs, want %d",
			ErrVerifierFault, len(publicInputs), len(v.vk.IC)-1)
	}
	for i, in := range publicInputs {
		if !validFieldElement(in) {
			return fmt.Errorf("public input %d: %w", i, ErrNotInField)
		}
	}

	// acc = constant term + sum over publicInput[i] * ic[i+1]
	var acc bn254.G1Jac
	acc.FromAffine(&v.vk.IC[0])
	var term bn254.G1Affine
	for i, in := range publicInputs {
		term.ScalarMultiplication(&v.vk.IC[i+1], in)
		acc.AddMixed(&term)
	}
	var accAff bn254.G1Affine
	accAff.FromJacobian(&acc)

	// Negate A. The additive identity must keep its zero coordinate, or
	// the negation would leave the field.
	negA := proof.A
	if !negA.IsInfinity() {
		negA.Y.Neg(&negA.Y)
	}

	ok, err := bn254.PairingCheck(
		[]bn254.G1Affine{negA, v.vk.Alpha, accAff, proof.C},
		[]bn254.G2Affine{proof.B, v.vk.Beta, v.vk.Gamma, v.vk.Delta},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerifierFault, err)
	}
	if !ok {
		return ErrInvalidProof
	}
	return nil
}

// VerifyingKeyFromGnark extracts the point record from a gnark BN254
// Groth16 verifying key, as produced by the trusted setup.
func VerifyingKeyFromGnark(vk groth16.VerifyingKey) (VerifyingKey, error) {
	bvk, ok := vk.(*groth16_bn254.VerifyingKey)
	if !ok {
		return VerifyingKey{}, fmt.Errorf("%w: verifying key is not bn254", ErrVerifierFault)
	}
	return VerifyingKey{
		Alpha: bvk.G1.Alpha,
		Beta:  bvk.G2.Beta,
		Gamma: bvk.G2.Gamma,
		Delta: bvk.G2.Delta,
		IC:    append([]bn254.G1Affine(nil), bvk.G1.K...),
	}, nil
}

// ProofFromGnark converts a gnark BN254 Groth16 proof into wire form.
func ProofFromGnark(p groth16.Proof) (*Proof, error) {
	bp, ok := p.(*groth16_bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("%w: proof is not bn254", ErrVerifierFault)
	}
	return &Proof{A: bp.Ar, B: bp.Bs, C: bp.Krs}, nil
}

// ProofFromWire parses the raw wire format: A and C as (x, y) pairs, B as
// ((x0, x1), (y0, y1)) with the real component first. Points must lie on
// the curve and, for B, in the correct subgroup.
func ProofFromWire(a [2]*big.Int, b [2][2]*big.Int, c [2]*big.Int) (*Proof, error) {
	for _, v := range []*big.Int{a[0], a[1], b[0][0], b[0][1], b[1][0], b[1][1], c[0], c[1]} {
		if v == nil || v.Sign() < 0 {
			return nil, fmt.Errorf("proof coordinate: %w", ErrNotInField)
		}
	}
	var p Proof
	p.A.X.SetBigInt(a[0])
	p.A.Y.SetBigInt(a[1])
	p.B.X.A0.SetBigInt(b[0][0])
	p.B.X.A1.SetBigInt(b[0][1])
	p.B.Y.A0.SetBigInt(b[1][0])
	p.B.Y.A1.SetBigInt(b[1][1])
	p.C.X.SetBigInt(c[0])
	p.C.Y.SetBigInt(c[1])
	if !p.A.IsOnCurve() || !p.C.IsOnCurve() {
		return nil, fmt.Errorf("g1 point off curve: %w", ErrInvalidProof)
	}
	if !p.B.IsOnCurve() || !p.B.IsInSubGroup() {
		return nil, fmt.Errorf("g2 point off curve: %w", ErrInvalidProof)
	}
	return &p, nil
}
