// note.go - Secret note material held off the record by a depositor.
//
// A note's commitment digest is the only thing that ever reaches the
// observable record; the secrets stay with the holder until reveal time.

package shield

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Note is the secret material behind one commitment.
type Note struct {
	AssetID         fr.Element
	Amount          *big.Int
	Secret          fr.Element
	NullifierSecret fr.Element
	Blinding        fr.Element
}

// NewNote draws fresh secrets for a commitment over amount units of the
// asset identified by assetID.
func NewNote(assetID fr.Element, amount *big.Int) (*Note, error) {
	if amount == nil || amount.Sign() == 0 {
		return nil, ErrZeroAmount
	}
	if !validFieldElement(amount) {
		return nil, ErrNotInField
	}
	secret, err := RandomElement()
	if err != nil {
		return nil, err
	}
	nullifierSecret, err := RandomElement()
	if err != nil {
		return nil, err
	}
	blinding, err := RandomElement()
	if err != nil {
		return nil, err
	}
	return &Note{
		AssetID:         assetID,
		Amount:          new(big.Int).Set(amount),
		Secret:          secret,
		NullifierSecret: nullifierSecret,
		Blinding:        blinding,
	}, nil
}

// Commitment computes the note's commitment digest.
func (n *Note) Commitment() fr.Element {
	return CommitmentDigest(n.Secret, n.NullifierSecret, n.AssetID, n.Amount, n.Blinding)
}

// NullifierAt computes the note's nullifier once its leaf position is known.
func (n *Note) NullifierAt(leafIndex uint64) fr.Element {
	return NullifierDigest(n.NullifierSecret, n.Commitment(), leafIndex)
}
