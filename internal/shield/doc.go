// Package shield implements a commit-once/reveal-once shielded value pool.
//
// Overview:
//   - Value is deposited against an opaque commitment digest and later
//     released exactly once by proving knowledge of the committed secret,
//     without the secret ever appearing on the observable record
//   - The Accumulator tracks committed leaves and a bounded window of
//     historically valid Merkle roots; the Registry records one-time-use
//     nullifiers; the Verifier evaluates a Groth16 pairing check against a
//     fixed verification key; the Pool sequences the three
//
// Security model:
//   - MiMC over the BN254 scalar field for commitments, nullifiers and
//     Merkle nodes; Groth16 (gnark) for proofs
//   - A reveal is verified strictly before its nullifier is recorded, so a
//     failed proof can never burn an honest nullifier and a valid proof can
//     never be replayed
//   - All randomness comes from crypto/rand via gnark-crypto
//
// Usage:
//   - Build an Accumulator, Registry and Verifier, wire them into a Pool
//     with asset adapters, then drive Commit and Reveal
//   - The Journal is the only externally observable trace; indexers rebuild
//     the full tree from it (see internal/indexer)
//
// References:
//   - Zerocash: Decentralized Anonymous Payments from Bitcoin
//     (Ben-Sasson et al., 2014)
package shield
