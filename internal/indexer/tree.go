// tree.go - Full depth-20 MiMC Merkle tree used by the read model.
//
// The on-record accumulator never stores the tree; this builder
// reconstructs it leaf by leaf so provers can be served membership
// witnesses. Empty positions take the canonical zero-subtree digests, the
// same default path the constraint specification assumes.

package indexer

import (
	"errors"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"shieldedpool/internal/shield"
)

var (
	// ErrTreeFull no leaf slots remain
	ErrTreeFull = errors.New("indexer: tree is full")

	// ErrLeafOutOfRange witness requested past the last leaf
	ErrLeafOutOfRange = errors.New("indexer: leaf index out of range")
)

// tree keeps every level in memory: levels[0] are the leaves, levels[20]
// holds the single root slot.
type tree struct {
	levels [shield.TreeDepth + 1][]fr.Element
}

func newTree() *tree {
	return &tree{}
}

func (t *tree) leafCount() uint64 {
	return uint64(len(t.levels[0]))
}

func (t *tree) node(level int, index uint64) fr.Element {
	if index < uint64(len(t.levels[level])) {
		return t.levels[level][index]
	}
	return shield.ZeroHash(level)
}

// append inserts the leaf at the next index and rehashes its ancestor path.
func (t *tree) append(leaf fr.Element) (uint64, error) {
	index := t.leafCount()
	if index >= shield.Capacity {
		return 0, ErrTreeFull
	}
	t.levels[0] = append(t.levels[0], leaf)
	idx := index
	for level := 0; level < shield.TreeDepth; level++ {
		parentIdx := idx / 2
		parent := shield.Hash2(t.node(level, parentIdx*2), t.node(level, parentIdx*2+1))
		if parentIdx < uint64(len(t.levels[level+1])) {
			t.levels[level+1][parentIdx] = parent
		} else {
			t.levels[level+1] = append(t.levels[level+1], parent)
		}
		idx = parentIdx
	}
	return index, nil
}

func (t *tree) root() fr.Element {
	if len(t.levels[shield.TreeDepth]) == 0 {
		return shield.EmptyRoot()
	}
	return t.levels[shield.TreeDepth][0]
}

// path returns the sibling digests from leaf level upward. The sibling at
// level i is taken from the leaf index's i-th bit, matching the circuit's
// orientation bits.
func (t *tree) path(index uint64) ([shield.TreeDepth]fr.Element, error) {
	var siblings [shield.TreeDepth]fr.Element
	if index >= t.leafCount() {
		return siblings, ErrLeafOutOfRange
	}
	idx := index
	for level := 0; level < shield.TreeDepth; level++ {
		siblings[level] = t.node(level, idx^1)
		idx /= 2
	}
	return siblings, nil
}
