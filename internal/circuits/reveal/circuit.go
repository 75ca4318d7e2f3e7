package reveal

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"

	"shieldedpool/internal/shield"
)

// Circuit is the reveal constraint specification: the shared contract
// between off-record proof generation and the on-record verifier. The
// public field order below IS the public-signal order the verifier's IC
// points are built over; changing it breaks every deployed verification key.
type Circuit struct {
	// Public inputs
	Root             frontend.Variable `gnark:",public"`
	Nullifier        frontend.Variable `gnark:",public"`
	Amount           frontend.Variable `gnark:",public"`
	Recipient        frontend.Variable `gnark:",public"`
	ChangeCommitment frontend.Variable `gnark:",public"`
	AssetID          frontend.Variable `gnark:",public"`

	// Private inputs
	Secret          frontend.Variable
	NullifierSecret frontend.Variable
	TotalAmount     frontend.Variable
	Blinding        frontend.Variable
	LeafIndex       frontend.Variable
	Path            [shield.TreeDepth]frontend.Variable

	// Change-note secrets; unconstrained when the reveal consumes the
	// full amount (the change commitment is forced to zero then).
	ChangeSecret          frontend.Variable
	ChangeNullifierSecret frontend.Variable
	ChangeBlinding        frontend.Variable
}

func (c *Circuit) Define(api frontend.API) error {
	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	// Step 1: Commitment (cm = Hash5(secret, nullifierSecret, assetId, totalAmount, blinding))
	hasher.Write(c.Secret, c.NullifierSecret, c.AssetID, c.TotalAmount, c.Blinding)
	commitment := hasher.Sum()

	// Step 2: Nullifier (nf = Hash2(Hash2(nullifierSecret, cm), leafIndex))
	hasher.Reset()
	hasher.Write(c.NullifierSecret, commitment)
	inner := hasher.Sum()
	hasher.Reset()
	hasher.Write(inner, c.LeafIndex)
	nullifierComputed := hasher.Sum()
	api.AssertIsEqual(c.Nullifier, nullifierComputed)

	// Step 3: Membership. The leaf index's bits select the orientation at
	// each level; the same convention the off-record tree builder uses.
	bits := api.ToBinary(c.LeafIndex, shield.TreeDepth)
	node := commitment
	for i := 0; i < shield.TreeDepth; i++ {
		left := api.Select(bits[i], c.Path[i], node)
		right := api.Select(bits[i], node, c.Path[i])
		hasher.Reset()
		hasher.Write(left, right)
		node = hasher.Sum()
	}
	api.AssertIsEqual(c.Root, node)

	// Step 4: Amounts (0 < redeemAmount <= totalAmount)
	api.AssertIsDifferent(c.Amount, 0)
	api.AssertIsLessOrEqual(c.Amount, c.TotalAmount)

	// Step 5: Change commitment encodes exactly totalAmount - redeemAmount,
	// and equals zero when the reveal consumes the full amount.
	change := api.Sub(c.TotalAmount, c.Amount)
	hasher.Reset()
	hasher.Write(c.ChangeSecret, c.ChangeNullifierSecret, c.AssetID, change, c.ChangeBlinding)
	changeComputed := hasher.Sum()
	fullRedeem := api.IsZero(change)
	api.AssertIsEqual(c.ChangeCommitment, api.Select(fullRedeem, 0, changeComputed))

	return nil
}
