// nullifier.go - Permanent one-time-use nullifier registry.
//
// CheckAndRecord tests membership and inserts under a single mutex hold, so
// two concurrent attempts to spend the same nullifier can never both
// succeed. A separate check-then-insert pair would be a race by
// construction; this single primitive is the system's only double-spend
// defence.

package shield

import (
	"math/big"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Registry owns all nullifier state.
type Registry struct {
	mu      sync.Mutex
	journal *Journal
	now     func() time.Time
	spent   map[fr.Element]struct{}
}

// NewRegistry creates an empty registry. now overrides the clock for tests;
// nil means time.Now.
func NewRegistry(journal *Journal, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		journal: journal,
		now:     now,
		spent:   make(map[fr.Element]struct{}),
	}
}

// CheckAndRecord atomically tests membership and records the nullifier.
// It rejects the zero nullifier and non-field values; a nullifier already
// present fails with ErrNullifierSpent and nothing changes.
func (r *Registry) CheckAndRecord(nullifier *big.Int) error {
	nf, err := elementOf(nullifier)
	if err != nil {
		return err
	}
	if nf.IsZero() {
		return ErrZeroNullifier
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.spent[nf]; ok {
		return ErrNullifierSpent
	}
	r.spent[nf] = struct{}{}
	r.journal.nullifierRecorded(nf, r.now())
	return nil
}

// IsSpent reports whether the nullifier has been recorded.
func (r *Registry) IsSpent(nullifier *big.Int) bool {
	nf, err := elementOf(nullifier)
	if err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.spent[nf]
	return ok
}

// Count returns the number of recorded nullifiers.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spent)
}

// rollback removes a nullifier recorded earlier in the same pool operation.
// Only the pool calls it, while unwinding a reveal whose release step
// failed; the registry stays permanent for every operation that completes.
func (r *Registry) rollback(nf fr.Element) {
	r.mu.Lock()
	delete(r.spent, nf)
	r.mu.Unlock()
}

// restore replays a nullifier-recorded record without re-emitting it.
func (r *Registry) restore(nf fr.Element) {
	r.mu.Lock()
	r.spent[nf] = struct{}{}
	r.mu.Unlock()
}

// Restore rebuilds accumulator and registry checkpoints from a persisted
// journal. Records are replayed in order without re-emission.
func Restore(j *Journal, acc *Accumulator, reg *Registry) error {
	for _, rec := range j.Records() {
		switch rec.Type {
		case RecordCommitmentAdded, RecordChangeCommitmentAdded:
			var cm fr.Element
			if _, err := cm.SetString(rec.Commitment); err != nil {
				return err
			}
			acc.restore(cm, rec.LeafIndex)
		case RecordRootPublished:
			var root fr.Element
			if _, err := root.SetString(rec.NewRoot); err != nil {
				return err
			}
			acc.restoreRoot(root)
		case RecordNullifierRecorded:
			var nf fr.Element
			if _, err := nf.SetString(rec.Nullifier); err != nil {
				return err
			}
			reg.restore(nf)
		}
	}
	return nil
}
