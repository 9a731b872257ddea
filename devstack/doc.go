// Package devstack emulates the inbox provider and the account service in a
// single process so provisioning can be exercised end-to-end without touching
// the real endpoints. State is held in memory and resets on restart; this is
// a development aid, not a production component.
package devstack
