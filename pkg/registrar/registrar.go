package registrar

import "context"

// SearchResult prices are minor units. Price is nil when the registrar
// returned no purchase price, which callers must treat as unavailable.
type SearchResult struct {
	Domain    string
	Available bool
	Premium   bool
	Price     *int64
}

type RegisterResult struct {
	OrderID string
}

// Gateway is the registrar boundary. Implementations return *apierror.Error
// for every failure so the saga never sees raw transport errors, and must
// redact credentials before any error leaves the package.
//
// "Domain already registered" registrar responses map to domain_taken at both
// the search and register call sites: either one can lose the race against a
// concurrent purchase, and callers handle the two identically.
type Gateway interface {
	Search(ctx context.Context, domains []string) ([]SearchResult, error)
	Register(ctx context.Context, domain string, years int) (RegisterResult, error)
	SetNameservers(ctx context.Context, domain string, nameservers []string) error
	GetNameservers(ctx context.Context, domain string) ([]string, error)
}
