package reveal

import (
	"errors"
	"math/big"
	"testing"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/rs/zerolog"

	"shieldedpool/internal/indexer"
	"shieldedpool/internal/shield"
)

func TestAssignmentValidation(t *testing.T) {
	asset := shield.AssetID(shield.NativeAsset)
	note, err := shield.NewNote(asset, big.NewInt(100))
	if err != nil {
		t.Fatal(err)
	}

	base := Assignment{
		Note:         note,
		RedeemAmount: big.NewInt(30),
		Recipient:    big.NewInt(9002),
	}

	// Partial redeem with no change note.
	if _, err := base.PublicInputs(); err == nil {
		t.Error("a partial redeem without a change note should be rejected")
	}

	// Change note with the wrong remainder.
	wrong, err := shield.NewNote(asset, big.NewInt(71))
	if err != nil {
		t.Fatal(err)
	}
	a := base
	a.Change = wrong
	if _, err := a.PublicInputs(); err == nil {
		t.Error("a change note with the wrong amount should be rejected")
	}

	// Change note bound to a different asset.
	foreign, err := shield.NewNote(shield.AssetID(big.NewInt(4001)), big.NewInt(70))
	if err != nil {
		t.Fatal(err)
	}
	a = base
	a.Change = foreign
	if _, err := a.PublicInputs(); err == nil {
		t.Error("a change note on a different asset should be rejected")
	}

	// Redeem above the note amount.
	a = base
	a.RedeemAmount = big.NewInt(101)
	if _, err := a.PublicInputs(); err == nil {
		t.Error("redeeming more than the note holds should be rejected")
	}
	a = base
	a.RedeemAmount = big.NewInt(0)
	if _, err := a.PublicInputs(); !errors.Is(err, shield.ErrZeroAmount) {
		t.Errorf("expected ErrZeroAmount, got %v", err)
	}

	// A consistent partial redeem passes and derives a nonzero change
	// commitment; a full redeem derives zero.
	change, err := shield.NewNote(asset, big.NewInt(70))
	if err != nil {
		t.Fatal(err)
	}
	a = base
	a.Change = change
	pub, err := a.PublicInputs()
	if err != nil {
		t.Fatalf("valid partial assignment rejected: %v", err)
	}
	if pub.ChangeCommitment.Sign() == 0 {
		t.Error("partial redeem should derive a nonzero change commitment")
	}

	full := base
	full.RedeemAmount = big.NewInt(100)
	pub, err = full.PublicInputs()
	if err != nil {
		t.Fatalf("valid full assignment rejected: %v", err)
	}
	if pub.ChangeCommitment.Sign() != 0 {
		t.Error("full redeem should derive a zero change commitment")
	}
}

// TestRevealEndToEnd drives the whole protocol once: commit a note, index
// the tree, publish the root, prove a partial reveal, settle it through the
// pool, then consume the change note with a full redeem.
func TestRevealEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Groth16 setup in short mode")
	}

	ccs, err := Compile()
	if err != nil {
		t.Fatalf("circuit compilation failed: %v", err)
	}
	pk, gvk, err := groth16.Setup(ccs)
	if err != nil {
		t.Fatalf("trusted setup failed: %v", err)
	}
	vk, err := shield.VerifyingKeyFromGnark(gvk)
	if err != nil {
		t.Fatal(err)
	}
	verifier, err := shield.NewVerifier(vk)
	if err != nil {
		t.Fatal(err)
	}

	admin := big.NewInt(1)
	publisher := big.NewInt(2)
	caller := big.NewInt(9001)
	recipient := big.NewInt(9002)

	journal := shield.NewJournal()
	acc := shield.NewAccumulator(shield.AccumulatorConfig{Publisher: publisher}, journal)
	reg := shield.NewRegistry(journal, nil)
	auth := shield.NewAllowlistAuthorizer(admin)
	if err := auth.Authorize(admin, shield.NativeAsset); err != nil {
		t.Fatal(err)
	}
	pool := shield.NewPool(acc, reg, journal, shield.PoolConfig{
		Authorizer:     auth,
		Verifier:       verifier,
		Pauser:         admin,
		CommitCooldown: -1,
		Logger:         zerolog.Nop(),
	})
	vault := shield.NewNativeVaultAdapter()
	pool.RegisterAdapter(shield.NativeAsset, vault)

	asset := shield.AssetID(shield.NativeAsset)
	note, err := shield.NewNote(asset, big.NewInt(100))
	if err != nil {
		t.Fatal(err)
	}
	vault.Credit(caller, big.NewInt(100))
	cm := note.Commitment()
	leafIndex, err := pool.Commit(caller, shield.NativeAsset, cm.BigInt(new(big.Int)), big.NewInt(100))
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	ix := indexer.New(zerolog.Nop())
	if err := ix.Sync(journal); err != nil {
		t.Fatalf("index sync failed: %v", err)
	}
	root := ix.Root()
	if err := acc.PublishRoot(publisher, root.BigInt(new(big.Int)), ix.LeafCount()); err != nil {
		t.Fatalf("root publication failed: %v", err)
	}
	w, err := ix.Witness(leafIndex)
	if err != nil {
		t.Fatalf("witness failed: %v", err)
	}

	change, err := shield.NewNote(asset, big.NewInt(70))
	if err != nil {
		t.Fatal(err)
	}
	assignment := &Assignment{
		Note:         note,
		LeafIndex:    leafIndex,
		Path:         w.Path,
		Root:         w.Root,
		RedeemAmount: big.NewInt(30),
		Recipient:    recipient,
		Change:       change,
	}
	proof, pub, err := Prove(ccs, pk, assignment)
	if err != nil {
		t.Fatalf("proving failed: %v", err)
	}

	// The proof verifies against the derived inputs and against nothing else.
	if err := verifier.Verify(proof, pub.Vector()); err != nil {
		t.Fatalf("honest proof rejected: %v", err)
	}
	tampered := pub
	tampered.Amount = big.NewInt(31)
	if err := verifier.Verify(proof, tampered.Vector()); !errors.Is(err, shield.ErrInvalidProof) {
		t.Errorf("expected ErrInvalidProof for a tampered amount, got %v", err)
	}
	tampered = pub
	tampered.Recipient = big.NewInt(9999)
	if err := verifier.Verify(proof, tampered.Vector()); !errors.Is(err, shield.ErrInvalidProof) {
		t.Errorf("expected ErrInvalidProof for a redirected recipient, got %v", err)
	}

	// A corrupted membership path cannot satisfy the constraints at all.
	badWitness := *assignment
	badWitness.Path[0] = shield.Hash2(w.Path[0], w.Path[0])
	if _, _, err := Prove(ccs, pk, &badWitness); err == nil {
		t.Error("proving with a corrupted path should fail")
	}

	if err := pool.Reveal(shield.RevealRequest{Asset: shield.NativeAsset, Proof: proof, Inputs: pub}); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if got := vault.BalanceOf(recipient); got.Cmp(big.NewInt(30)) != 0 {
		t.Errorf("expected recipient balance 30, got %s", got.String())
	}
	if acc.LeafCount() != 2 {
		t.Fatalf("expected the change commitment as a second leaf, got %d", acc.LeafCount())
	}
	changeCM := change.Commitment()
	if !acc.HasCommitment(changeCM.BigInt(new(big.Int))) {
		t.Error("change commitment should be on the record")
	}

	// A replay of the settled reveal burns on the nullifier.
	if err := pool.Reveal(shield.RevealRequest{Asset: shield.NativeAsset, Proof: proof, Inputs: pub}); !errors.Is(err, shield.ErrNullifierSpent) {
		t.Errorf("expected ErrNullifierSpent on replay, got %v", err)
	}

	// Spend the change note in full against a fresh root.
	if err := ix.Sync(journal); err != nil {
		t.Fatalf("index resync failed: %v", err)
	}
	root2 := ix.Root()
	if err := acc.PublishRoot(publisher, root2.BigInt(new(big.Int)), ix.LeafCount()); err != nil {
		t.Fatalf("second root publication failed: %v", err)
	}
	w2, err := ix.Witness(1)
	if err != nil {
		t.Fatalf("change witness failed: %v", err)
	}
	fullRedeem := &Assignment{
		Note:         change,
		LeafIndex:    1,
		Path:         w2.Path,
		Root:         w2.Root,
		RedeemAmount: big.NewInt(70),
		Recipient:    recipient,
	}
	proof2, pub2, err := Prove(ccs, pk, fullRedeem)
	if err != nil {
		t.Fatalf("proving the change spend failed: %v", err)
	}
	if pub2.ChangeCommitment.Sign() != 0 {
		t.Fatal("a full redeem must carry a zero change commitment")
	}
	if err := pool.Reveal(shield.RevealRequest{Asset: shield.NativeAsset, Proof: proof2, Inputs: pub2}); err != nil {
		t.Fatalf("change spend failed: %v", err)
	}
	if got := vault.BalanceOf(recipient); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("expected recipient balance 100, got %s", got.String())
	}
	if acc.LeafCount() != 2 {
		t.Errorf("a full redeem must not add a leaf, got %d", acc.LeafCount())
	}
}
