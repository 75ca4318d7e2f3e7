// reveal.go - Off-record proof generation for the reveal circuit.
//
// Builds the witness from a note, its accumulator position and the reveal
// parameters, proves with Groth16, and converts the result into the wire
// proof the on-record verifier consumes.

package reveal

import (
	"fmt"
	"math/big"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"shieldedpool/internal/shield"
)

// Assignment carries everything needed to prove one reveal.
type Assignment struct {
	Note      *shield.Note
	LeafIndex uint64
	// Path holds the sibling digests from leaf level upward, as served by
	// the indexer's Witness.
	Path [shield.TreeDepth]fr.Element
	// Root is the published root the path reconstructs.
	Root fr.Element

	RedeemAmount *big.Int
	Recipient    *big.Int
	// Change is the note re-committing the unspent remainder; nil for a
	// full redeem.
	Change *shield.Note
}

func (a *Assignment) validate() error {
	if a.Note == nil {
		return fmt.Errorf("assignment: nil note")
	}
	if a.RedeemAmount == nil || a.RedeemAmount.Sign() == 0 {
		return shield.ErrZeroAmount
	}
	if a.RedeemAmount.Cmp(a.Note.Amount) > 0 {
		return fmt.Errorf("assignment: redeem amount exceeds note amount")
	}
	remainder := new(big.Int).Sub(a.Note.Amount, a.RedeemAmount)
	if a.Change == nil {
		if remainder.Sign() != 0 {
			return fmt.Errorf("assignment: partial redeem needs a change note for %s", remainder)
		}
		return nil
	}
	if a.Change.Amount.Cmp(remainder) != 0 {
		return fmt.Errorf("assignment: change note encodes %s, want %s", a.Change.Amount, remainder)
	}
	if !a.Change.AssetID.Equal(&a.Note.AssetID) {
		return fmt.Errorf("assignment: change note is bound to a different asset")
	}
	return nil
}

// PublicInputs derives the ordered public-input vector for this reveal.
func (a *Assignment) PublicInputs() (shield.PublicInputs, error) {
	if err := a.validate(); err != nil {
		return shield.PublicInputs{}, err
	}
	nullifier := a.Note.NullifierAt(a.LeafIndex)
	change := new(big.Int)
	if a.Change != nil {
		cm := a.Change.Commitment()
		cm.BigInt(change)
	}
	return shield.PublicInputs{
		Root:             a.Root.BigInt(new(big.Int)),
		Nullifier:        nullifier.BigInt(new(big.Int)),
		Amount:           new(big.Int).Set(a.RedeemAmount),
		Recipient:        new(big.Int).Set(a.Recipient),
		ChangeCommitment: change,
		AssetID:          a.Note.AssetID.BigInt(new(big.Int)),
	}, nil
}

// witness assembles the full circuit assignment, private inputs included.
func (a *Assignment) witness() (*Circuit, error) {
	pub, err := a.PublicInputs()
	if err != nil {
		return nil, err
	}
	w := &Circuit{
		Root:             pub.Root,
		Nullifier:        pub.Nullifier,
		Amount:           pub.Amount,
		Recipient:        pub.Recipient,
		ChangeCommitment: pub.ChangeCommitment,
		AssetID:          pub.AssetID,

		Secret:          a.Note.Secret.BigInt(new(big.Int)),
		NullifierSecret: a.Note.NullifierSecret.BigInt(new(big.Int)),
		TotalAmount:     new(big.Int).Set(a.Note.Amount),
		Blinding:        a.Note.Blinding.BigInt(new(big.Int)),
		LeafIndex:       new(big.Int).SetUint64(a.LeafIndex),

		ChangeSecret:          big.NewInt(0),
		ChangeNullifierSecret: big.NewInt(0),
		ChangeBlinding:        big.NewInt(0),
	}
	for i := range a.Path {
		w.Path[i] = a.Path[i].BigInt(new(big.Int))
	}
	if a.Change != nil {
		w.ChangeSecret = a.Change.Secret.BigInt(new(big.Int))
		w.ChangeNullifierSecret = a.Change.NullifierSecret.BigInt(new(big.Int))
		w.ChangeBlinding = a.Change.Blinding.BigInt(new(big.Int))
	}
	return w, nil
}

// Compile compiles the reveal circuit to R1CS over BN254.
func Compile() (constraint.ConstraintSystem, error) {
	var circuit Circuit
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
}

// Prove generates a Groth16 proof for the assignment and returns it in wire
// form together with the ordered public-input vector.
func Prove(ccs constraint.ConstraintSystem, pk groth16.ProvingKey, a *Assignment) (*shield.Proof, shield.PublicInputs, error) {
	assignment, err := a.witness()
	if err != nil {
		return nil, shield.PublicInputs{}, err
	}
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, shield.PublicInputs{}, fmt.Errorf("witness creation failed: %w", err)
	}
	proof, err := groth16.Prove(ccs, pk, w)
	if err != nil {
		return nil, shield.PublicInputs{}, fmt.Errorf("proof generation failed: %w", err)
	}
	wire, err := shield.ProofFromGnark(proof)
	if err != nil {
		return nil, shield.PublicInputs{}, err
	}
	pub, err := a.PublicInputs()
	if err != nil {
		return nil, shield.PublicInputs{}, err
	}
	return wire, pub, nil
}

// SaveProvingKey saves a Groth16 proving key to disk.
func SaveProvingKey(path string, pk groth16.ProvingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = pk.WriteTo(f)
	return err
}

// SaveVerifyingKey saves a Groth16 verifying key to disk.
func SaveVerifyingKey(path string, vk groth16.VerifyingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = vk.WriteTo(f)
	return err
}

// LoadProvingKey loads a Groth16 proving key from disk.
func LoadProvingKey(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BN254)
	_, err = pk.ReadFrom(f)
	return pk, err
}

// LoadVerifyingKey loads a Groth16 verifying key from disk.
func LoadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BN254)
	_, err = vk.ReadFrom(f)
	return vk, err
}

// SetupOrLoadKeys generates or loads Groth16 keys for the circuit. If both
// keys exist on disk they are loaded; otherwise fresh keys are generated
// and saved.
func SetupOrLoadKeys(ccs constraint.ConstraintSystem, pkPath, vkPath string) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pk, pkErr := LoadProvingKey(pkPath)
	vk, vkErr := LoadVerifyingKey(vkPath)
	if pkErr == nil && vkErr == nil {
		return pk, vk, nil
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, err
	}
	if err := SaveProvingKey(pkPath, pk); err != nil {
		return nil, nil, err
	}
	if err := SaveVerifyingKey(vkPath, vk); err != nil {
		return nil, nil, err
	}
	return pk, vk, nil
}
