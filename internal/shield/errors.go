package shield

import "errors"

// Validation errors: rejected before any mutation, the caller may resubmit
// corrected input.
var (
	// ErrZeroAmount a commit or reveal carried a zero amount
	ErrZeroAmount = errors.New("amount must be nonzero")

	// ErrZeroCommitment the zero field element is not a usable commitment
	ErrZeroCommitment = errors.New("commitment must be nonzero")

	// ErrNotInField value is not a canonical scalar field element
	ErrNotInField = errors.New("value is not below the scalar field modulus")

	// ErrNullRecipient reveal targets the null recipient
	ErrNullRecipient = errors.New("recipient must be non-null")

	// ErrZeroNullifier the zero field element is not a usable nullifier
	ErrZeroNullifier = errors.New("nullifier must be nonzero")

	// ErrZeroRoot the zero root is never publishable nor valid
	ErrZeroRoot = errors.New("root must be nonzero")
)

// Authorization errors: rejected with no state change.
var (
	// ErrNotPublisher caller is not the configured root-publishing role
	ErrNotPublisher = errors.New("caller is not the root publisher")

	// ErrNotPauser caller is not the configured pause controller
	ErrNotPauser = errors.New("caller is not the pause controller")

	// ErrNotAdmin caller is not the asset-authorization admin
	ErrNotAdmin = errors.New("caller is not the authorization admin")

	// ErrAssetNotAuthorized target asset is not on the allowlist
	ErrAssetNotAuthorized = errors.New("asset is not authorized")

	// ErrPaused the pool is paused
	ErrPaused = errors.New("pool is paused")

	// ErrCooldownActive per-caller commit cooldown has not elapsed
	ErrCooldownActive = errors.New("commit cooldown active")
)

// Consistency errors: the proof's assumptions no longer match current
// state; resubmission requires regenerating against fresh state.
var (
	// ErrDuplicateCommitment the commitment value is already a leaf
	ErrDuplicateCommitment = errors.New("commitment already recorded")

	// ErrAccumulatorFull leaf capacity (2^20) is exhausted
	ErrAccumulatorFull = errors.New("accumulator is full")

	// ErrUnknownRoot the proof's root is outside the valid window
	ErrUnknownRoot = errors.New("root is not in the valid window")

	// ErrLeafCountAhead a published root claims more leaves than exist
	ErrLeafCountAhead = errors.New("root leaf count exceeds current leaf count")

	// ErrRootTooStale the published root lags beyond the staleness bound
	ErrRootTooStale = errors.New("root leaf count is beyond the staleness bound")

	// ErrNullifierSpent the nullifier was already recorded
	ErrNullifierSpent = errors.New("nullifier already spent")

	// ErrAssetMismatch the proof's asset identifier does not match the
	// identifier derived for the target asset
	ErrAssetMismatch = errors.New("proof is bound to a different asset")
)

// Cryptographic errors: no resubmission with the same secret material can
// succeed.
var (
	// ErrInvalidProof the pairing product is not the identity
	ErrInvalidProof = errors.New("proof verification failed")

	// ErrVerifierFault the verifier's arithmetic engine faulted; distinct
	// from a proof that is merely invalid
	ErrVerifierFault = errors.New("verifier fault")
)

// Adapter errors surfaced by the reference collaborators.
var (
	// ErrInsufficientFunds the holder cannot cover the escrow amount
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrReleaseFailed the asset adapter refused the release; the reveal's
	// own mutations are unwound before this is returned
	ErrReleaseFailed = errors.New("asset release failed")
)
