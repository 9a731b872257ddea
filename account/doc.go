// Package account talks to the scanning service's account API. It covers the
// full provisioning surface: sign-up, activation token confirmation, sign-in,
// and profile retrieval. Session state lives in a per-client cookie jar, so
// callers create one client per account they provision.
package account
