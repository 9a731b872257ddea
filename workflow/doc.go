// Package workflow implements the single-account provisioning state machine.
// A workflow registers an identity with the account service, polls the
// identity's inbox for the activation message, confirms activation, logs in,
// and retrieves the account's API token. Polling distinguishes retryable
// misses from terminal failures so a malformed activation message aborts
// immediately instead of burning the polling budget.
package workflow
