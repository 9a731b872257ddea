// The devstack command serves in-memory emulations of the inbox provider and
// the account service on one listener, so the provisioner can be exercised
// end-to-end without touching the real endpoints.
package main
