// Package trustledger implements a Merkle-chain audit log for the market's
// escrow lifecycle: every escrow, settle, refund, purchase and daily-bonus
// event is appended as a hash-chained entry, so the money flow behind any
// decision context can be audited independently of the mutable balance
// columns themselves.
//
// The chain begins with a well-known genesis entry whose Hash equals GenesisHash
// (64 hex zeros). Every subsequent entry records the SHA-256 of its predecessor,
// making any tampering detectable via Verify.
//
// Two implementations of the Ledger interface are provided:
//   - MemoryLedger: in-process, for testing and development.
//   - PostgresLedger: durable, for production use.
package trustledger
