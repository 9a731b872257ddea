// Package domaincheck verifies inbox domains via DNS MX lookups. Providers
// occasionally advertise domains whose mail routing is broken; filtering
// those out up front avoids burning provisioning attempts on addresses that
// can never receive an activation message.
package domaincheck
