package backend

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/primsh/prim.sh-sub000/pkg/model"
)

// Answer is one resource record from a live query, reduced to the fields the
// match predicates care about.
type Answer struct {
	Content   string
	Target    string
	Priority  int
	Weight    int
	Port      int
	TxtChunks []string
	CAATag    string
	CAAValue  string
}

// QueryError carries a typed reason (model.Reason*) so every resolution
// failure stays a reportable outcome instead of an opaque error.
type QueryError struct {
	Reason string
}

func (e *QueryError) Error() string {
	return e.Reason
}

func reasonOf(err error) string {
	if qe, ok := err.(*QueryError); ok {
		return qe.Reason
	}
	return model.ReasonDNSError
}

// Querier issues live DNS queries. LookupNS and LookupHostIPs go through the
// configured recursive resolver; Query targets a specific server directly,
// which is how record checks bypass caching entirely.
type Querier interface {
	LookupNS(ctx context.Context, domain string) ([]string, error)
	LookupHostIPs(ctx context.Context, host string) ([]string, error)
	Query(ctx context.Context, server, name, recordType string) ([]Answer, error)
}

type dnsQuerier struct {
	resolver string
	client   *dns.Client
}

// newDNSQuerier builds a fresh client bound to one upstream resolver. Never
// shared across verifications; each call gets its own.
func newDNSQuerier(resolver string, timeout time.Duration) Querier {
	return &dnsQuerier{
		resolver: resolver,
		client:   &dns.Client{Timeout: timeout},
	}
}

func (q *dnsQuerier) LookupNS(ctx context.Context, domain string) ([]string, error) {
	resp, err := q.exchange(ctx, q.resolver, domain, dns.TypeNS)
	if err != nil {
		return nil, err
	}

	var hosts []string
	for _, rr := range resp.Answer {
		if ns, ok := rr.(*dns.NS); ok {
			hosts = append(hosts, ns.Ns)
		}
	}
	if len(hosts) == 0 {
		// No delegation yet.
		return nil, &QueryError{Reason: model.ReasonNotFound}
	}
	return hosts, nil
}

func (q *dnsQuerier) LookupHostIPs(ctx context.Context, host string) ([]string, error) {
	var ips []string
	var lastErr error

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		resp, err := q.exchange(ctx, q.resolver, host, qtype)
		if err != nil {
			lastErr = err
			continue
		}
		for _, rr := range resp.Answer {
			switch a := rr.(type) {
			case *dns.A:
				ips = append(ips, a.A.String())
			case *dns.AAAA:
				ips = append(ips, a.AAAA.String())
			}
		}
	}

	if len(ips) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, &QueryError{Reason: model.ReasonNotFound}
	}
	return ips, nil
}

func (q *dnsQuerier) Query(ctx context.Context, server, name, recordType string) ([]Answer, error) {
	qtype, ok := dns.StringToType[recordType]
	if !ok {
		return nil, &QueryError{Reason: model.ReasonDNSError}
	}

	resp, err := q.exchange(ctx, server, name, qtype)
	if err != nil {
		return nil, err
	}

	var answers []Answer
	for _, rr := range resp.Answer {
		switch a := rr.(type) {
		case *dns.A:
			answers = append(answers, Answer{Content: a.A.String()})
		case *dns.AAAA:
			answers = append(answers, Answer{Content: a.AAAA.String()})
		case *dns.CNAME:
			answers = append(answers, Answer{Target: a.Target})
		case *dns.NS:
			answers = append(answers, Answer{Target: a.Ns})
		case *dns.MX:
			answers = append(answers, Answer{Target: a.Mx, Priority: int(a.Preference)})
		case *dns.TXT:
			answers = append(answers, Answer{TxtChunks: a.Txt, Content: strings.Join(a.Txt, "")})
		case *dns.SRV:
			answers = append(answers, Answer{
				Target:   a.Target,
				Priority: int(a.Priority),
				Weight:   int(a.Weight),
				Port:     int(a.Port),
			})
		case *dns.CAA:
			answers = append(answers, Answer{CAATag: a.Tag, CAAValue: a.Value})
		}
	}
	return answers, nil
}

func (q *dnsQuerier) exchange(ctx context.Context, server, name string, qtype uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	resp, _, err := q.client.ExchangeContext(ctx, msg, server)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, &QueryError{Reason: model.ReasonTimeout}
		}
		return nil, &QueryError{Reason: model.ReasonUnreachable}
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
		return resp, nil
	case dns.RcodeNameError:
		return nil, &QueryError{Reason: model.ReasonNotFound}
	default:
		return nil, &QueryError{Reason: model.ReasonDNSError}
	}
}
