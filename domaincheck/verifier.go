package domaincheck

import (
	"context"
	"log/slog"

	"github.com/miekg/dns"
)

// DefaultResolver is the systemd-resolved stub listener most hosts expose.
const DefaultResolver = "127.0.0.53:53"

// Verifier checks that candidate inbox domains can actually receive mail by
// querying their MX records.
type Verifier struct {
	// Resolver is the DNS server to query, host:port. Defaults to
	// DefaultResolver.
	Resolver string

	Log *slog.Logger
}

// VerifyMX reports whether the domain publishes at least one MX record. A
// lookup error counts as a failed verification for that domain, never as a
// fatal condition.
func (v *Verifier) VerifyMX(ctx context.Context, domain string) bool {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), dns.TypeMX)
	m.RecursionDesired = true

	c := new(dns.Client)
	in, _, err := c.ExchangeContext(ctx, m, v.resolver())
	if err != nil {
		v.Log.Debug("MX lookup failed",
			slog.String("domain", domain),
			slog.String("err", err.Error()))
		return false
	}

	for _, answer := range in.Answer {
		if _, ok := answer.(*dns.MX); ok {
			return true
		}
	}

	return false
}

// Filter returns the subset of domains that pass MX verification, dropping
// and logging the rest.
func (v *Verifier) Filter(ctx context.Context, domains []string) []string {
	verified := make([]string, 0, len(domains))
	for _, domain := range domains {
		if v.VerifyMX(ctx, domain) {
			verified = append(verified, domain)
			continue
		}
		v.Log.Warn("Domain failed MX verification, dropping", slog.String("domain", domain))
	}

	return verified
}

func (v *Verifier) resolver() string {
	if v.Resolver == "" {
		return DefaultResolver
	}
	return v.Resolver
}
