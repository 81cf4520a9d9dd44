package backend

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/primsh/prim.sh-sub000/pkg/apierror"
	"github.com/primsh/prim.sh-sub000/pkg/db"
	"github.com/primsh/prim.sh-sub000/pkg/model"
)

// Quote prices a registration: registrar cost plus margin. One outbound
// pricing call, one store write, no retries; quotes expire by time comparison
// when read, never by a sweep.
func (b *backend) Quote(ctx context.Context, req model.QuoteRequest, caller string) (model.QuoteResponse, *apierror.Error) {
	if err := req.Validate(); err != nil {
		return model.QuoteResponse{}, apierror.InvalidRequest("%v", err)
	}
	domain := strings.ToLower(req.Domain)
	years := req.NormalizedYears()

	existing, err := b.db.GetRegistrationByDomain(domain)
	if err != nil {
		return model.QuoteResponse{}, apierror.Internal("looking up registration: %v", err)
	}
	if existing.ID != "" {
		return model.QuoteResponse{}, apierror.DomainTaken(domain)
	}

	results, err := b.registrar.Search(ctx, []string{domain})
	if err != nil {
		return model.QuoteResponse{}, toAPIError(err, apierror.Registrar)
	}

	var cost *int64
	for _, r := range results {
		if strings.EqualFold(r.Domain, domain) && r.Available {
			cost = r.Price
			break
		}
	}
	if cost == nil {
		return model.QuoteResponse{}, apierror.DomainTaken(domain)
	}

	margin := int64(math.Round(float64(*cost) * b.cfg.MarginRate))
	if margin < b.cfg.MarginMinCents {
		margin = b.cfg.MarginMinCents
	}

	now := time.Now()
	quote := db.Quote{
		ID:            uuid.NewString(),
		Domain:        domain,
		Years:         years,
		RegistrarCost: *cost,
		Margin:        margin,
		Total:         *cost + margin,
		Owner:         caller,
		CreatedAt:     now,
		ExpiresAt:     now.Add(b.cfg.QuoteTTL),
	}
	if err := b.db.CreateQuote(&quote); err != nil {
		return model.QuoteResponse{}, apierror.Internal("persisting quote: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"domain": domain,
		"quote":  quote.ID,
		"total":  quote.Total,
	}).Info("quote issued")

	return quoteResponse(quote), nil
}

func quoteResponse(q db.Quote) model.QuoteResponse {
	return model.QuoteResponse{
		ID:            q.ID,
		Domain:        q.Domain,
		Years:         q.Years,
		RegistrarCost: q.RegistrarCost,
		Margin:        q.Margin,
		Total:         q.Total,
		CreatedAt:     q.CreatedAt,
		ExpiresAt:     q.ExpiresAt,
	}
}
