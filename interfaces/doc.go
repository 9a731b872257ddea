// Package interfaces defines the core types, collaborator contracts, and
// error taxonomy of the account provisioning system, separating interface
// definitions from implementations.
//
// The package provides contracts for the key components of the system:
//
// # Collaborator Interfaces
//
// InboxClient: Read access to a disposable-inbox provider, covering advertised
// email domains, per-address message listings, and raw message bodies.
//
// AccountServiceClient: The scanning service's account API, covering
// registration, activation confirmation, login, and profile retrieval.
// Implementations hold per-attempt session state and must not be shared
// across attempts.
//
// # Storage Interfaces
//
// StoreBackend: Whole-file read/write access to the persisted rotation store,
// implemented for local files and S3-compatible object storage.
//
// # Workflow Types
//
// ProvisioningState and WorkflowTransitions describe the provisioning state
// machine as data; the workflow package drives it. Step labels attribute
// failures to the exact stage that produced them, and the typed errors in
// this package distinguish transport failures, content-shape failures, and
// polling-budget exhaustion.
package interfaces
