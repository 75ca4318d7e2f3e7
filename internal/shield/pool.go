// pool.go - Orchestrator for commit and reveal.
//
// The pool owns no cryptographic state. It sequences the accumulator,
// registry and verifier in a strict order and keeps only derived
// bookkeeping: per-asset running totals, per-caller cooldown stamps and
// depositor attribution, none of it load-bearing.
//
// The central invariant lives in Reveal: the proof is verified strictly
// before the nullifier is recorded. Recording first would let an attacker
// burn a legitimate nullifier with no valid proof; verifying without ever
// recording would let one valid proof be replayed indefinitely.

package shield

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/rs/zerolog"
)

// DefaultCommitCooldown is the per-caller commit spacing. Coarse anti-spam,
// not a privacy control; policy configuration pending a threat model.
const DefaultCommitCooldown = 5 * time.Second

// ProofVerifier is the verification dependency of the pool. The concrete
// Verifier satisfies it; tests substitute stubs.
type ProofVerifier interface {
	Verify(proof *Proof, publicInputs []*big.Int) error
}

// PublicInputs is the ordered public-input vector of a reveal proof.
type PublicInputs struct {
	Root             *big.Int
	Nullifier        *big.Int
	Amount           *big.Int
	Recipient        *big.Int
	ChangeCommitment *big.Int
	AssetID          *big.Int
}

// Vector returns the inputs in the order fixed by the verification
// contract: {root, nullifier, amount, recipient, changeCommitment, assetId}.
func (in PublicInputs) Vector() []*big.Int {
	return []*big.Int{in.Root, in.Nullifier, in.Amount, in.Recipient, in.ChangeCommitment, in.AssetID}
}

// RevealRequest carries one reveal attempt.
type RevealRequest struct {
	// Asset is the target asset address; NativeAsset for the base unit.
	Asset  *big.Int
	Proof  *Proof
	Inputs PublicInputs
}

// PoolConfig wires the pool's collaborators and policy.
type PoolConfig struct {
	Authorizer AssetAuthorizer
	Verifier   ProofVerifier
	// Pauser is the principal allowed to pause and resume.
	Pauser *big.Int
	// CommitCooldown spaces commits per caller; 0 means the default,
	// negative disables.
	CommitCooldown time.Duration
	// Now overrides the clock, for tests.
	Now    func() time.Time
	Logger zerolog.Logger
}

// Pool sequences commit and reveal across the accumulator, registry,
// verifier and external asset collaborators.
type Pool struct {
	mu       sync.Mutex
	acc      *Accumulator
	registry *Registry
	journal  *Journal
	verifier ProofVerifier
	auth     AssetAuthorizer
	adapters map[fr.Element]AssetAdapter

	pauser   fr.Element
	paused   bool
	cooldown time.Duration
	now      func() time.Time
	log      zerolog.Logger

	lastCommit map[string]time.Time
	totals     map[fr.Element]*big.Int
	depositors map[uint64]string
}

// NewPool builds the orchestrator over an accumulator, registry and journal.
func NewPool(acc *Accumulator, registry *Registry, journal *Journal, cfg PoolConfig) *Pool {
	cooldown := cfg.CommitCooldown
	if cooldown == 0 {
		cooldown = DefaultCommitCooldown
	}
	if cooldown < 0 {
		cooldown = 0
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	var pauser fr.Element
	if cfg.Pauser != nil {
		pauser.SetBigInt(cfg.Pauser)
	}
	return &Pool{
		acc:        acc,
		registry:   registry,
		journal:    journal,
		verifier:   cfg.Verifier,
		auth:       cfg.Authorizer,
		adapters:   make(map[fr.Element]AssetAdapter),
		pauser:     pauser,
		cooldown:   cooldown,
		now:        now,
		log:        cfg.Logger,
		lastCommit: make(map[string]time.Time),
		totals:     make(map[fr.Element]*big.Int),
		depositors: make(map[uint64]string),
	}
}

// RegisterAdapter wires the escrow/release adapter for an asset address.
// One-time administrative wiring, done before the pool serves traffic.
func (p *Pool) RegisterAdapter(assetAddress *big.Int, adapter AssetAdapter) {
	p.mu.Lock()
	p.adapters[AssetID(assetAddress)] = adapter
	p.mu.Unlock()
}

// SetPaused pauses or resumes the pool. Restricted to the pause controller.
func (p *Pool) SetPaused(caller *big.Int, paused bool) error {
	c, err := elementOf(caller)
	if err != nil || !c.Equal(&p.pauser) {
		return ErrNotPauser
	}
	p.mu.Lock()
	p.paused = paused
	p.mu.Unlock()
	p.log.Info().Bool("paused", paused).Msg("pool pause state changed")
	return nil
}

// Commit escrows amount of asset from caller against the supplied
// commitment digest and appends the digest to the accumulator. The strict
// sequence is: validate, authorize, cooldown, escrow, append, bookkeeping.
func (p *Pool) Commit(caller, asset, commitment, amount *big.Int) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.paused {
		return 0, ErrPaused
	}
	if amount == nil || amount.Sign() == 0 {
		return 0, ErrZeroAmount
	}
	if !validFieldElement(amount) {
		return 0, fmt.Errorf("amount: %w", ErrNotInField)
	}
	if !validFieldElement(caller) {
		return 0, fmt.Errorf("caller: %w", ErrNotInField)
	}
	if !validFieldElement(asset) {
		return 0, fmt.Errorf("asset: %w", ErrNotInField)
	}

	assetID := AssetID(asset)
	if !p.auth.IsAuthorized(assetID) {
		return 0, ErrAssetNotAuthorized
	}
	adapter, ok := p.adapters[assetID]
	if !ok {
		return 0, ErrAssetNotAuthorized
	}

	callerKey := caller.String()
	if p.cooldown > 0 {
		if last, ok := p.lastCommit[callerKey]; ok && p.now().Sub(last) < p.cooldown {
			return 0, ErrCooldownActive
		}
	}

	// Duplicate and capacity are validation here: checking them before
	// escrow means a rejected commit never needs a compensating release.
	if err := p.acc.CanAppend(commitment); err != nil {
		return 0, err
	}

	if err := adapter.Escrow(caller, amount); err != nil {
		return 0, fmt.Errorf("escrow: %w", err)
	}

	leafIndex, err := p.acc.Append(commitment)
	if err != nil {
		// CanAppend held the same facts under this lock; nothing external
		// can have changed them.
		return 0, err
	}

	total, ok := p.totals[assetID]
	if !ok {
		total = new(big.Int)
		p.totals[assetID] = total
	}
	total.Add(total, amount)
	p.depositors[leafIndex] = callerKey
	p.lastCommit[callerKey] = p.now()

	p.log.Info().
		Uint64("leaf", leafIndex).
		Str("asset", asset.String()).
		Str("amount", amount.String()).
		Msg("commitment recorded")
	return leafIndex, nil
}

// Reveal verifies a proof of knowledge for a committed secret and releases
// the proven amount exactly once. The strict sequence is: validate,
// authorize and bind the asset, check the root window, verify, record the
// nullifier, settle, emit, append any change commitment.
func (p *Pool) Reveal(req RevealRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.paused {
		return ErrPaused
	}
	in := req.Inputs
	if in.Amount == nil || in.Amount.Sign() == 0 {
		return ErrZeroAmount
	}
	if in.Recipient == nil || in.Recipient.Sign() == 0 {
		return ErrNullRecipient
	}
	if !validFieldElement(in.Recipient) {
		return fmt.Errorf("recipient: %w", ErrNotInField)
	}
	if !validFieldElement(req.Asset) {
		return fmt.Errorf("asset: %w", ErrNotInField)
	}

	assetID := AssetID(req.Asset)
	if !p.auth.IsAuthorized(assetID) {
		return ErrAssetNotAuthorized
	}
	adapter, ok := p.adapters[assetID]
	if !ok {
		return ErrAssetNotAuthorized
	}
	// The proof's asset-identifier input must equal the derived identifier
	// for the target asset; anything else is a cross-asset replay.
	proofAsset, err := elementOf(in.AssetID)
	if err != nil {
		return fmt.Errorf("asset id: %w", err)
	}
	if !proofAsset.Equal(&assetID) {
		return ErrAssetMismatch
	}

	if !p.acc.IsKnownRoot(in.Root) {
		return ErrUnknownRoot
	}

	// Pre-validate the change commitment so a verified reveal can only
	// fail on the external release, which is unwound below.
	hasChange := in.ChangeCommitment != nil && in.ChangeCommitment.Sign() != 0
	if hasChange {
		if err := p.acc.CanAppend(in.ChangeCommitment); err != nil {
			return fmt.Errorf("change commitment: %w", err)
		}
	} else if !validFieldElement(in.ChangeCommitment) {
		return fmt.Errorf("change commitment: %w", ErrNotInField)
	}

	// Verification comes strictly before the nullifier is recorded.
	if err := p.verifier.Verify(req.Proof, in.Vector()); err != nil {
		if errors.Is(err, ErrVerifierFault) {
			p.log.Error().Err(err).Msg("verifier fault")
		}
		return err
	}

	if err := p.registry.CheckAndRecord(in.Nullifier); err != nil {
		return err
	}
	var nf fr.Element
	nf.SetBigInt(in.Nullifier)

	total := p.totals[assetID]
	var restoreTotal *big.Int
	if total != nil {
		restoreTotal = new(big.Int).Set(total)
		total.Sub(total, in.Amount)
		if total.Sign() < 0 {
			total.SetInt64(0)
		}
	}

	if err := adapter.Release(in.Recipient, in.Amount); err != nil {
		// Unwind this reveal's own mutations and nothing else: root
		// publication does not hold the pool mutex, so records appended
		// between the nullifier record and here must survive.
		p.registry.rollback(nf)
		if restoreTotal != nil {
			total.Set(restoreTotal)
		}
		p.journal.removeNullifierRecord(nf.String())
		return fmt.Errorf("%w: %v", ErrReleaseFailed, err)
	}

	p.journal.revealed(req.Asset.String(), in.Recipient.String(), in.Amount.String(), nf.String(), p.now())

	if hasChange {
		leafIndex, err := p.acc.AppendChange(in.ChangeCommitment)
		if err != nil {
			// CanAppend above makes this unreachable under the held lock.
			return fmt.Errorf("%w: change append: %v", ErrVerifierFault, err)
		}
		p.log.Info().Uint64("leaf", leafIndex).Msg("change commitment recorded")
	}

	p.log.Info().
		Str("asset", req.Asset.String()).
		Str("amount", in.Amount.String()).
		Str("nullifier", nf.String()).
		Msg("reveal settled")
	return nil
}

// TotalCommitted returns the derived running total for an asset address.
func (p *Pool) TotalCommitted(asset *big.Int) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.totals[AssetID(asset)]; ok {
		return new(big.Int).Set(t)
	}
	return new(big.Int)
}

// DepositorOf returns the recorded depositor of a leaf, if any. Auxiliary
// attribution, not cryptographically load-bearing.
func (p *Pool) DepositorOf(leafIndex uint64) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.depositors[leafIndex]
	return d, ok
}

// Paused reports the pause state.
func (p *Pool) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}
