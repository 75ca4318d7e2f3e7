package shield

import (
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
)

func TestCheckAndRecordAtMostOnce(t *testing.T) {
	reg := NewRegistry(NewJournal(), nil)

	nf := big.NewInt(12345)
	if err := reg.CheckAndRecord(nf); err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	if err := reg.CheckAndRecord(nf); !errors.Is(err, ErrNullifierSpent) {
		t.Errorf("expected ErrNullifierSpent, got %v", err)
	}
	if !reg.IsSpent(nf) {
		t.Error("nullifier should read as spent")
	}
	if reg.Count() != 1 {
		t.Errorf("expected count 1, got %d", reg.Count())
	}
}

func TestCheckAndRecordRejectsInvalidValues(t *testing.T) {
	reg := NewRegistry(NewJournal(), nil)

	if err := reg.CheckAndRecord(big.NewInt(0)); !errors.Is(err, ErrZeroNullifier) {
		t.Errorf("expected ErrZeroNullifier, got %v", err)
	}
	if err := reg.CheckAndRecord(new(big.Int).Set(frModulus)); !errors.Is(err, ErrNotInField) {
		t.Errorf("expected ErrNotInField, got %v", err)
	}
	if reg.Count() != 0 {
		t.Errorf("nothing should have been recorded, got %d", reg.Count())
	}
}

func TestCheckAndRecordConcurrentSameNullifier(t *testing.T) {
	reg := NewRegistry(NewJournal(), nil)
	nf := big.NewInt(777)

	const workers = 32
	var wg sync.WaitGroup
	var wins int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := reg.CheckAndRecord(nf); err == nil {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("exactly one concurrent attempt should win, got %d", wins)
	}
	if reg.Count() != 1 {
		t.Errorf("expected count 1, got %d", reg.Count())
	}
}

func TestCheckAndRecordConcurrentDistinct(t *testing.T) {
	reg := NewRegistry(NewJournal(), nil)

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			if err := reg.CheckAndRecord(big.NewInt(1000 + v)); err != nil {
				t.Errorf("record %d failed: %v", v, err)
			}
		}(int64(i))
	}
	wg.Wait()

	if reg.Count() != n {
		t.Errorf("expected %d recorded nullifiers, got %d", n, reg.Count())
	}
}

func TestRestoreRebuildsState(t *testing.T) {
	j := NewJournal()
	acc := NewAccumulator(AccumulatorConfig{Publisher: big.NewInt(1)}, j)
	reg := NewRegistry(j, nil)

	if _, err := acc.Append(big.NewInt(11)); err != nil {
		t.Fatal(err)
	}
	if _, err := acc.Append(big.NewInt(12)); err != nil {
		t.Fatal(err)
	}
	if err := acc.PublishRoot(big.NewInt(1), big.NewInt(900), 2); err != nil {
		t.Fatal(err)
	}
	if err := reg.CheckAndRecord(big.NewInt(55)); err != nil {
		t.Fatal(err)
	}

	// Fresh checkpoints, same journal.
	acc2 := NewAccumulator(AccumulatorConfig{Publisher: big.NewInt(1)}, j)
	reg2 := NewRegistry(j, nil)
	if err := Restore(j, acc2, reg2); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	if acc2.LeafCount() != 2 {
		t.Errorf("expected leaf count 2 after restore, got %d", acc2.LeafCount())
	}
	if !acc2.HasCommitment(big.NewInt(12)) {
		t.Error("restored accumulator should know commitment 12")
	}
	if !acc2.IsKnownRoot(big.NewInt(900)) {
		t.Error("restored accumulator should know root 900")
	}
	if !reg2.IsSpent(big.NewInt(55)) {
		t.Error("restored registry should know nullifier 55")
	}
}
