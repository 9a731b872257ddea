// Package store persists the account rotation document. The document is a
// single JSON object holding the provisioned accounts and the round-robin
// cursor; backends place it on the local file system or in S3, selected by a
// location URI. Reads tolerate missing and malformed documents by degrading
// to an empty pool, which keeps first runs and corrupted files on the same
// code path.
package store
