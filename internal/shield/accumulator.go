// accumulator.go - Append-only commitment accumulator with a bounded window
// of historically valid roots.
//
// The accumulator never stores the Merkle tree. It tracks the leaf count, a
// duplicate set and a ring buffer of recently published roots; the full tree
// lives off the record, rebuilt by observers from the journal. Root
// publication is decoupled from appends: a bounded history lets provers
// finish against a slightly stale root without failing, while capping how
// long a root stays usable.

package shield

import (
	"math/big"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// DefaultRootHistorySize is the number of simultaneously valid roots.
const DefaultRootHistorySize = 100

// DefaultStalenessBound caps how many leaves a published root may lag the
// current leaf count. Policy configuration, not a protocol invariant.
const DefaultStalenessBound = 1000

// AccumulatorConfig carries the deploy-time accumulator policy.
type AccumulatorConfig struct {
	// Publisher is the single principal allowed to publish roots.
	Publisher *big.Int
	// RootHistorySize is the ring-buffer capacity; 0 means the default.
	RootHistorySize int
	// StalenessBound is the maximum accepted leaf-count lag; 0 means the
	// default.
	StalenessBound uint64
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Accumulator owns all commitment, leaf and root state.
type Accumulator struct {
	mu             sync.Mutex
	journal        *Journal
	publisher      fr.Element
	stalenessBound uint64
	now            func() time.Time

	leafCount uint64
	leaves    map[fr.Element]uint64
	roots     []fr.Element
	rootIdx   int
}

// NewAccumulator creates an accumulator seeded with the empty-tree root.
func NewAccumulator(cfg AccumulatorConfig, journal *Journal) *Accumulator {
	size := cfg.RootHistorySize
	if size <= 0 {
		size = DefaultRootHistorySize
	}
	bound := cfg.StalenessBound
	if bound == 0 {
		bound = DefaultStalenessBound
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	var publisher fr.Element
	if cfg.Publisher != nil {
		publisher.SetBigInt(cfg.Publisher)
	}
	a := &Accumulator{
		journal:        journal,
		publisher:      publisher,
		stalenessBound: bound,
		now:            now,
		leaves:         make(map[fr.Element]uint64),
		roots:          make([]fr.Element, size),
	}
	a.roots[0] = EmptyRoot()
	return a
}

// CanAppend reports whether commitment would be accepted by Append, without
// mutating anything. The pool uses it to validate before external escrow.
func (a *Accumulator) CanAppend(commitment *big.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := a.checkAppend(commitment)
	return err
}

func (a *Accumulator) checkAppend(commitment *big.Int) (fr.Element, error) {
	cm, err := elementOf(commitment)
	if err != nil {
		return cm, err
	}
	if cm.IsZero() {
		return cm, ErrZeroCommitment
	}
	if _, dup := a.leaves[cm]; dup {
		return cm, ErrDuplicateCommitment
	}
	if a.leafCount >= Capacity {
		return cm, ErrAccumulatorFull
	}
	return cm, nil
}

// Append records a commitment and assigns the next sequential leaf index.
// It rejects the zero value, values at or above the field modulus,
// duplicates, and appends past capacity.
func (a *Accumulator) Append(commitment *big.Int) (uint64, error) {
	return a.append(commitment, RecordCommitmentAdded)
}

// AppendChange records a change commitment produced by a partial reveal. It
// behaves exactly like Append but emits a change-commitment record.
func (a *Accumulator) AppendChange(commitment *big.Int) (uint64, error) {
	return a.append(commitment, RecordChangeCommitmentAdded)
}

func (a *Accumulator) append(commitment *big.Int, typ RecordType) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cm, err := a.checkAppend(commitment)
	if err != nil {
		return 0, err
	}
	index := a.leafCount
	a.leaves[cm] = index
	a.leafCount++
	a.journal.commitmentAdded(typ, cm, index, a.now())
	return index, nil
}

// PublishRoot inserts a newly computed root into the history window. Only
// the configured publishing role may call it. leafCountAtComputation is the
// leaf count the root was computed over; it must not exceed the current
// count nor lag it beyond the staleness bound.
func (a *Accumulator) PublishRoot(publisher *big.Int, newRoot *big.Int, leafCountAtComputation uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	caller, err := elementOf(publisher)
	if err != nil {
		return ErrNotPublisher
	}
	if !caller.Equal(&a.publisher) {
		return ErrNotPublisher
	}
	root, err := elementOf(newRoot)
	if err != nil {
		return err
	}
	if root.IsZero() {
		return ErrZeroRoot
	}
	if leafCountAtComputation > a.leafCount {
		return ErrLeafCountAhead
	}
	if a.leafCount-leafCountAtComputation > a.stalenessBound {
		return ErrRootTooStale
	}

	old := a.roots[a.rootIdx]
	a.rootIdx = (a.rootIdx + 1) % len(a.roots)
	// The overwritten slot's value becomes invalid unless it recurs
	// elsewhere in the buffer.
	a.roots[a.rootIdx] = root
	a.journal.rootPublished(old, root, leafCountAtComputation, a.now())
	return nil
}

// IsKnownRoot reports whether root is within the currently valid window.
// The zero root is never valid.
func (a *Accumulator) IsKnownRoot(root *big.Int) bool {
	r, err := elementOf(root)
	if err != nil || r.IsZero() {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.roots {
		if a.roots[i].Equal(&r) {
			return true
		}
	}
	return false
}

// LatestRoot returns the most recently published root (the empty-tree root
// before any publication).
func (a *Accumulator) LatestRoot() *big.Int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.roots[a.rootIdx].BigInt(new(big.Int))
}

// LeafCount returns the number of recorded commitments.
func (a *Accumulator) LeafCount() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.leafCount
}

// HasCommitment reports whether the commitment value is already a leaf.
func (a *Accumulator) HasCommitment(commitment *big.Int) bool {
	cm, err := elementOf(commitment)
	if err != nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.leaves[cm]
	return ok
}

// restore replays a commitment-added record without re-emitting it. Used
// when rebuilding state from a persisted journal.
func (a *Accumulator) restore(cm fr.Element, leafIndex uint64) {
	a.mu.Lock()
	a.leaves[cm] = leafIndex
	if leafIndex >= a.leafCount {
		a.leafCount = leafIndex + 1
	}
	a.mu.Unlock()
}

// restoreRoot replays a root-published record without re-emitting it.
func (a *Accumulator) restoreRoot(root fr.Element) {
	a.mu.Lock()
	a.rootIdx = (a.rootIdx + 1) % len(a.roots)
	a.roots[a.rootIdx] = root
	a.mu.Unlock()
}
