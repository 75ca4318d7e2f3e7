package shield

import (
	"errors"
	"math/big"
	"testing"
)

func testAccumulator(t *testing.T) (*Accumulator, *Journal) {
	t.Helper()
	j := NewJournal()
	return NewAccumulator(AccumulatorConfig{Publisher: big.NewInt(1)}, j), j
}

func TestAppendAssignsSequentialIndices(t *testing.T) {
	acc, j := testAccumulator(t)

	for i := uint64(0); i < 5; i++ {
		idx, err := acc.Append(big.NewInt(int64(1000 + i)))
		if err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
		if idx != i {
			t.Errorf("append %d: expected index %d, got %d", i, i, idx)
		}
	}
	if acc.LeafCount() != 5 {
		t.Errorf("expected leaf count 5, got %d", acc.LeafCount())
	}
	if j.Len() != 5 {
		t.Errorf("expected 5 journal records, got %d", j.Len())
	}
}

func TestAppendRejectsDuplicates(t *testing.T) {
	acc, _ := testAccumulator(t)

	cm := big.NewInt(77)
	if _, err := acc.Append(cm); err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	if _, err := acc.Append(cm); !errors.Is(err, ErrDuplicateCommitment) {
		t.Errorf("expected ErrDuplicateCommitment, got %v", err)
	}
	if acc.LeafCount() != 1 {
		t.Errorf("rejected append must not advance the leaf count, got %d", acc.LeafCount())
	}
	if !acc.HasCommitment(cm) {
		t.Error("first commitment should still be present")
	}
}

func TestAppendRejectsInvalidValues(t *testing.T) {
	acc, _ := testAccumulator(t)

	if _, err := acc.Append(big.NewInt(0)); !errors.Is(err, ErrZeroCommitment) {
		t.Errorf("expected ErrZeroCommitment, got %v", err)
	}
	if _, err := acc.Append(new(big.Int).Set(frModulus)); !errors.Is(err, ErrNotInField) {
		t.Errorf("expected ErrNotInField at the modulus, got %v", err)
	}
	if _, err := acc.Append(big.NewInt(-1)); !errors.Is(err, ErrNotInField) {
		t.Errorf("expected ErrNotInField for a negative value, got %v", err)
	}
	if acc.LeafCount() != 0 {
		t.Errorf("no append should have landed, got leaf count %d", acc.LeafCount())
	}
}

func TestCanAppendDoesNotMutate(t *testing.T) {
	acc, j := testAccumulator(t)

	cm := big.NewInt(9)
	if err := acc.CanAppend(cm); err != nil {
		t.Fatalf("CanAppend failed: %v", err)
	}
	if acc.LeafCount() != 0 || j.Len() != 0 {
		t.Error("CanAppend must not record anything")
	}
	if _, err := acc.Append(cm); err != nil {
		t.Fatalf("append after CanAppend failed: %v", err)
	}
	if err := acc.CanAppend(cm); !errors.Is(err, ErrDuplicateCommitment) {
		t.Errorf("expected ErrDuplicateCommitment, got %v", err)
	}
}

func TestPublishRootAuthorization(t *testing.T) {
	acc, _ := testAccumulator(t)

	if err := acc.PublishRoot(big.NewInt(2), big.NewInt(500), 0); !errors.Is(err, ErrNotPublisher) {
		t.Errorf("expected ErrNotPublisher for a stranger, got %v", err)
	}
	if err := acc.PublishRoot(nil, big.NewInt(500), 0); !errors.Is(err, ErrNotPublisher) {
		t.Errorf("expected ErrNotPublisher for a nil caller, got %v", err)
	}
	if err := acc.PublishRoot(big.NewInt(1), big.NewInt(500), 0); err != nil {
		t.Errorf("publisher should be accepted, got %v", err)
	}
	if !acc.IsKnownRoot(big.NewInt(500)) {
		t.Error("freshly published root should be known")
	}
}

func TestPublishRootValidation(t *testing.T) {
	acc, _ := testAccumulator(t)
	pub := big.NewInt(1)

	if err := acc.PublishRoot(pub, big.NewInt(0), 0); !errors.Is(err, ErrZeroRoot) {
		t.Errorf("expected ErrZeroRoot, got %v", err)
	}
	if err := acc.PublishRoot(pub, big.NewInt(500), 1); !errors.Is(err, ErrLeafCountAhead) {
		t.Errorf("expected ErrLeafCountAhead, got %v", err)
	}

	for i := 0; i < DefaultStalenessBound+1; i++ {
		if _, err := acc.Append(big.NewInt(int64(10 + i))); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}
	if err := acc.PublishRoot(pub, big.NewInt(500), 0); !errors.Is(err, ErrRootTooStale) {
		t.Errorf("expected ErrRootTooStale, got %v", err)
	}
	if err := acc.PublishRoot(pub, big.NewInt(500), 1); err != nil {
		t.Errorf("lag exactly at the bound should pass, got %v", err)
	}
}

func TestRootHistoryWindowEviction(t *testing.T) {
	j := NewJournal()
	acc := NewAccumulator(AccumulatorConfig{Publisher: big.NewInt(1), RootHistorySize: 3}, j)
	pub := big.NewInt(1)

	empty := EmptyRoot()
	emptyBig := empty.BigInt(new(big.Int))
	if !acc.IsKnownRoot(emptyBig) {
		t.Fatal("empty-tree root should be valid before any publication")
	}

	for i := int64(1); i <= 5; i++ {
		if err := acc.PublishRoot(pub, big.NewInt(100+i), 0); err != nil {
			t.Fatalf("publish %d failed: %v", i, err)
		}
	}
	// Window of 3: roots 103..105 remain, 101, 102 and the seed are gone.
	if acc.IsKnownRoot(emptyBig) {
		t.Error("seed root should be evicted")
	}
	for i := int64(1); i <= 2; i++ {
		if acc.IsKnownRoot(big.NewInt(100 + i)) {
			t.Errorf("root %d should be evicted", 100+i)
		}
	}
	for i := int64(3); i <= 5; i++ {
		if !acc.IsKnownRoot(big.NewInt(100 + i)) {
			t.Errorf("root %d should still be valid", 100+i)
		}
	}
	latest := acc.LatestRoot()
	if latest.Cmp(big.NewInt(105)) != 0 {
		t.Errorf("expected latest root 105, got %s", latest.String())
	}
}

func TestDefaultWindowHoldsLastHundredRoots(t *testing.T) {
	acc, _ := testAccumulator(t)
	pub := big.NewInt(1)

	const n = 105
	for i := int64(1); i <= n; i++ {
		if err := acc.PublishRoot(pub, big.NewInt(1000+i), 0); err != nil {
			t.Fatalf("publish %d failed: %v", i, err)
		}
	}
	for i := int64(1); i <= n-DefaultRootHistorySize; i++ {
		if acc.IsKnownRoot(big.NewInt(1000 + i)) {
			t.Errorf("root %d should have fallen out of the window", i)
		}
	}
	for i := int64(n - DefaultRootHistorySize + 1); i <= n; i++ {
		if !acc.IsKnownRoot(big.NewInt(1000 + i)) {
			t.Errorf("root %d should be within the window", i)
		}
	}
}

func TestRecurringRootValueSurvivesEviction(t *testing.T) {
	acc := NewAccumulator(AccumulatorConfig{Publisher: big.NewInt(1), RootHistorySize: 3}, NewJournal())
	pub := big.NewInt(1)

	// Publish the same value twice, then push one of the slots out.
	if err := acc.PublishRoot(pub, big.NewInt(200), 0); err != nil {
		t.Fatal(err)
	}
	if err := acc.PublishRoot(pub, big.NewInt(201), 0); err != nil {
		t.Fatal(err)
	}
	if err := acc.PublishRoot(pub, big.NewInt(200), 0); err != nil {
		t.Fatal(err)
	}
	if err := acc.PublishRoot(pub, big.NewInt(202), 0); err != nil {
		t.Fatal(err)
	}
	// The first 200 slot was overwritten but the value recurs in a live slot.
	if !acc.IsKnownRoot(big.NewInt(200)) {
		t.Error("a root value still present in a live slot must stay valid")
	}
	empty := EmptyRoot()
	if acc.IsKnownRoot(empty.BigInt(new(big.Int))) {
		t.Error("seed root should be evicted")
	}
}

func TestIsKnownRootRejectsZero(t *testing.T) {
	acc, _ := testAccumulator(t)
	if acc.IsKnownRoot(big.NewInt(0)) {
		t.Error("the zero root must never validate")
	}
	if acc.IsKnownRoot(nil) {
		t.Error("a nil root must never validate")
	}
}
