// Package indexer rebuilds the commitment tree from the journal's record
// stream. It is an eventually-consistent read model for provers and
// observers: derived state, never a source of truth. Membership witnesses
// it serves are only usable once the corresponding root has been published
// on the record.
package indexer

import (
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/rs/zerolog"

	"shieldedpool/internal/shield"
)

// Witness is a membership witness for one leaf against the indexer's
// current tree.
type Witness struct {
	LeafIndex uint64
	Path      [shield.TreeDepth]fr.Element
	Root      fr.Element
}

// Indexer incrementally replays journal records into a full tree.
type Indexer struct {
	mu     sync.Mutex
	tree   *tree
	cursor int
	log    zerolog.Logger
}

// New creates an empty indexer.
func New(log zerolog.Logger) *Indexer {
	return &Indexer{tree: newTree(), log: log}
}

// Sync replays records appended since the last call. Leaves must arrive in
// index order; a gap means the journal was truncated or reordered and the
// read model must be rebuilt from scratch.
func (ix *Indexer) Sync(journal *shield.Journal) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	records := journal.RecordsFrom(ix.cursor)
	for _, rec := range records {
		ix.cursor++
		switch rec.Type {
		case shield.RecordCommitmentAdded, shield.RecordChangeCommitmentAdded:
			var cm fr.Element
			if _, err := cm.SetString(rec.Commitment); err != nil {
				return fmt.Errorf("indexer: record %d: %w", ix.cursor-1, err)
			}
			if rec.LeafIndex != ix.tree.leafCount() {
				return fmt.Errorf("indexer: leaf gap: record says %d, tree has %d",
					rec.LeafIndex, ix.tree.leafCount())
			}
			if _, err := ix.tree.append(cm); err != nil {
				return err
			}
			ix.log.Debug().Uint64("leaf", rec.LeafIndex).Msg("indexed commitment")
		}
	}
	return nil
}

// Root returns the tree root over all indexed leaves.
func (ix *Indexer) Root() fr.Element {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.tree.root()
}

// LeafCount returns the number of indexed leaves.
func (ix *Indexer) LeafCount() uint64 {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.tree.leafCount()
}

// Witness builds a membership witness for the leaf at index against the
// current tree. The caller must check the returned root is still within the
// accumulator's valid window before proving against it.
func (ix *Indexer) Witness(index uint64) (Witness, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	path, err := ix.tree.path(index)
	if err != nil {
		return Witness{}, err
	}
	return Witness{LeafIndex: index, Path: path, Root: ix.tree.root()}, nil
}
