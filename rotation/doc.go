// Package rotation spreads scanner invocations across the provisioned
// account pool. Selection is strict round-robin over the stored accounts,
// and the cursor is persisted before each scan runs so every selection
// burns its turn exactly once.
package rotation
