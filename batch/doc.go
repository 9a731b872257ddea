// Package batch provisions groups of accounts sequentially. It generates all
// credentials before the first network call, resolves the inbox provider's
// domains exactly once per batch, and keeps going past individual failures
// so one rejected registration never sinks the rest of the batch.
package batch
