package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/primsh/prim.sh-sub000/pkg/apierror"
	"github.com/primsh/prim.sh-sub000/pkg/db"
	"github.com/primsh/prim.sh-sub000/pkg/model"
	"github.com/primsh/prim.sh-sub000/pkg/rand"
)

const tokenLength = 32

// HashToken is the stored form of a recovery token. The digest must be
// deterministic because recovery looks the Registration up by token alone.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Register drives the purchase saga: validate quote, purchase at the
// registrar, create the zone, delegate nameservers. Once the registrar
// purchase succeeds the call always returns success, whatever happens after;
// the response's recovery token and flags say what remains to be done.
func (b *backend) Register(ctx context.Context, req model.RegisterRequest, caller string) (model.RegistrationResponse, *apierror.Error) {
	if req.QuoteID == "" {
		return model.RegistrationResponse{}, apierror.InvalidRequest("quoteId must be provided")
	}

	// S0: validate the quote. Nothing has been charged yet, so every failure
	// here is a clean rejection.
	quote, err := b.db.GetQuote(req.QuoteID)
	if err != nil {
		return model.RegistrationResponse{}, apierror.Internal("looking up quote: %v", err)
	}
	if quote.ID == "" || quote.Owner != caller {
		return model.RegistrationResponse{}, apierror.NotFound("quote %s not found", req.QuoteID)
	}
	if quote.Expired(time.Now()) {
		return model.RegistrationResponse{}, apierror.QuoteExpired(quote.ID)
	}

	existing, err := b.db.GetRegistrationByDomain(quote.Domain)
	if err != nil {
		return model.RegistrationResponse{}, apierror.Internal("looking up registration: %v", err)
	}
	if existing.ID != "" {
		return model.RegistrationResponse{}, apierror.DomainTaken(quote.Domain)
	}

	log := logrus.WithFields(logrus.Fields{"domain": quote.Domain, "quote": quote.ID})

	// Remote steps run on a detached context: a purchase already dispatched
	// cannot be undone by the caller hanging up.
	dctx := context.WithoutCancel(ctx)

	// S1: purchase. Money moves here; from this point on there must always be
	// a durable row to find it again.
	order, rerr := b.registrar.Register(dctx, quote.Domain, quote.Years)
	if rerr != nil {
		return model.RegistrationResponse{}, toAPIError(rerr, apierror.Registrar)
	}

	token := rand.Token(tokenLength)
	hash := HashToken(token)
	now := time.Now()
	reg := db.Registration{
		ID:                uuid.NewString(),
		Domain:            quote.Domain,
		QuoteID:           quote.ID,
		RecoveryTokenHash: &hash,
		RegistrarOrderID:  order.OrderID,
		Owner:             caller,
		TotalCharged:      quote.Total,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := b.db.CreateRegistration(&reg); err != nil {
		// The charge is real but we failed to record it. This is the worst
		// failure class; it must never look like a clean error.
		log.WithFields(logrus.Fields{"order": order.OrderID, "remote_committed": true}).
			Errorf("purchase succeeded but persisting registration failed: %v", err)
		if db.IsDuplicate(err) {
			return model.RegistrationResponse{}, apierror.InternalRemoteCommitted(
				"domain %s was purchased (order %s) but conflicts with an existing registration; contact support", quote.Domain, order.OrderID)
		}
		return model.RegistrationResponse{}, apierror.InternalRemoteCommitted(
			"domain %s was purchased (order %s) but recording the registration failed; contact support", quote.Domain, order.OrderID)
	}

	log.WithField("order", order.OrderID).Info("domain purchased")

	resp := b.advance(dctx, &reg)
	resp.RecoveryToken = ""
	if reg.RecoveryTokenHash != nil {
		// Only moment the raw token is ever visible.
		resp.RecoveryToken = token
	}
	return resp, nil
}

// Recover resumes a stalled saga. It is authorized by possession of the
// recovery token, not by identity matching alone, because the Registration
// may predate the caller's current wallet session.
func (b *backend) Recover(ctx context.Context, recoveryToken, caller string) (model.RegistrationResponse, *apierror.Error) {
	if recoveryToken == "" {
		return model.RegistrationResponse{}, apierror.InvalidRequest("recoveryToken must be provided")
	}

	reg, err := b.db.GetRegistrationByTokenHash(HashToken(recoveryToken))
	if err != nil {
		return model.RegistrationResponse{}, apierror.Internal("looking up registration: %v", err)
	}
	if reg.ID == "" {
		return model.RegistrationResponse{}, apierror.NotFound("no pending recovery for this token")
	}
	if reg.Owner != caller {
		return model.RegistrationResponse{}, apierror.Forbidden("registration belongs to a different owner")
	}

	// Already fully configured: a true no-op, so calling recover again
	// returns the same terminal state without any provider calls.
	if reg.NameserversConfigured {
		return b.registrationResponse(reg), nil
	}

	dctx := context.WithoutCancel(ctx)

	if reg.ZoneID == nil {
		// Re-run S2. Unlike the original registration call, a zone failure
		// here is surfaced so the caller knows to try again; the token stays
		// valid.
		if aerr := b.createZoneStep(dctx, &reg); aerr != nil {
			return model.RegistrationResponse{}, aerr
		}
	}

	return b.advance(dctx, &reg), nil
}

// ConfigureNameservers re-runs delegation only. By this point the caller is
// known, so it is authorized by ownership, not token possession; it never
// touches the recovery token.
func (b *backend) ConfigureNameservers(ctx context.Context, domain, caller string) (model.RegistrationResponse, *apierror.Error) {
	reg, err := b.db.GetRegistrationByDomain(domain)
	if err != nil {
		return model.RegistrationResponse{}, apierror.Internal("looking up registration: %v", err)
	}
	if reg.ID == "" || reg.Owner != caller {
		return model.RegistrationResponse{}, apierror.NotFound("registration for %s not found", domain)
	}

	if reg.NameserversConfigured {
		return b.registrationResponse(reg), nil
	}
	if reg.ZoneID == nil {
		return model.RegistrationResponse{}, apierror.InvalidRequest("no zone exists for %s yet; recover the registration first", domain)
	}

	zone, err := b.db.GetZone(*reg.ZoneID)
	if err != nil || zone.ID == "" {
		return model.RegistrationResponse{}, apierror.Internal("loading zone for %s: %v", domain, err)
	}

	dctx := context.WithoutCancel(ctx)

	// Delegation may already be in place from an earlier attempt that failed
	// to persist; only push when the registrar disagrees.
	current, gerr := b.registrar.GetNameservers(dctx, reg.Domain)
	if gerr != nil || db.SortedValues(current) != db.SortedValues(zone.NameserverList()) {
		if nerr := b.registrar.SetNameservers(dctx, reg.Domain, zone.NameserverList()); nerr != nil {
			return model.RegistrationResponse{}, toAPIError(nerr, apierror.Registrar)
		}
	}

	reg.NameserversConfigured = true
	reg.UpdatedAt = time.Now()
	if err := b.db.SaveRegistration(&reg); err != nil {
		logrus.WithFields(logrus.Fields{"domain": reg.Domain, "remote_committed": true}).
			Errorf("nameservers delegated but persisting failed: %v", err)
		return model.RegistrationResponse{}, apierror.InternalRemoteCommitted(
			"nameservers for %s were delegated but recording it failed", reg.Domain)
	}

	logrus.WithField("domain", reg.Domain).Info("nameservers configured")
	return b.registrationResponse(reg), nil
}

func (b *backend) GetRegistration(ctx context.Context, domain, caller string) (model.RegistrationResponse, *apierror.Error) {
	reg, err := b.db.GetRegistrationByDomain(domain)
	if err != nil {
		return model.RegistrationResponse{}, apierror.Internal("looking up registration: %v", err)
	}
	if reg.ID == "" || reg.Owner != caller {
		return model.RegistrationResponse{}, apierror.NotFound("registration for %s not found", domain)
	}
	return b.registrationResponse(reg), nil
}

func (b *backend) ListRegistrations(ctx context.Context, caller string) ([]model.RegistrationResponse, *apierror.Error) {
	regs, err := b.db.ListRegistrations(caller)
	if err != nil {
		return nil, apierror.Internal("listing registrations: %v", err)
	}

	out := make([]model.RegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		out = append(out, b.registrationResponse(reg))
	}
	return out, nil
}

// createZoneStep is S2: create the hosting zone and persist it plus the
// Registration's pointer to it. Used by both the initial saga and recovery.
func (b *backend) createZoneStep(ctx context.Context, reg *db.Registration) *apierror.Error {
	hosted, err := b.dnshost.CreateZone(ctx, reg.Domain)
	if err != nil {
		return toAPIError(err, apierror.Provider)
	}

	now := time.Now()
	zone := db.Zone{
		ID:             uuid.NewString(),
		ProviderZoneID: hosted.ID,
		Domain:         reg.Domain,
		Owner:          reg.Owner,
		Status:         hosted.Status,
		Nameservers:    db.JoinValues(hosted.Nameservers),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := b.db.CreateZone(&zone); err != nil {
		logrus.WithFields(logrus.Fields{"domain": reg.Domain, "remote_committed": true}).
			Errorf("zone created at provider but persisting failed: %v", err)
		return apierror.InternalRemoteCommitted("zone for %s exists at the provider but recording it failed", reg.Domain)
	}

	reg.ZoneID = &zone.ID
	reg.UpdatedAt = now
	if err := b.db.SaveRegistration(reg); err != nil {
		logrus.WithFields(logrus.Fields{"domain": reg.Domain, "remote_committed": true}).
			Errorf("zone persisted but updating registration failed: %v", err)
		return apierror.InternalRemoteCommitted("zone for %s exists but linking it to the registration failed", reg.Domain)
	}

	logrus.WithFields(logrus.Fields{"domain": reg.Domain, "zone": zone.ID}).Info("zone created")
	return nil
}

// advance runs the saga forward from reg's current state through S2 and S3.
// The registrar purchase already happened, so nothing in here may turn the
// call into a failure: a failed step is recorded in the Registration and
// reported through the response fields.
func (b *backend) advance(ctx context.Context, reg *db.Registration) model.RegistrationResponse {
	log := logrus.WithField("domain", reg.Domain)

	// S2: create the zone. On failure the caller keeps the recovery token and
	// the call still succeeds; the purchase must not be reported as lost.
	if reg.ZoneID == nil {
		if aerr := b.createZoneStep(ctx, reg); aerr != nil {
			log.Warnf("zone creation failed, recovery token stays valid: %v", aerr)
			return b.registrationResponse(*reg)
		}
	}

	zone, err := b.db.GetZone(*reg.ZoneID)
	if err != nil || zone.ID == "" {
		log.Errorf("loading zone after creation: %v", err)
		return b.registrationResponse(*reg)
	}

	// S3: delegate nameservers at the registrar. Success or failure, the
	// recovery token is cleared: the zone exists now, and delegation has its
	// own identity-authorized retry that needs no token.
	if nerr := b.registrar.SetNameservers(ctx, reg.Domain, zone.NameserverList()); nerr != nil {
		log.Warnf("nameserver delegation failed, retry via configure-ns: %v", nerr)
	} else {
		reg.NameserversConfigured = true
	}
	reg.RecoveryTokenHash = nil
	reg.UpdatedAt = time.Now()
	if err := b.db.SaveRegistration(reg); err != nil {
		log.WithField("remote_committed", true).Errorf("persisting delegation outcome failed: %v", err)
	}

	if reg.NameserversConfigured {
		log.Info("registration fully configured")
	}
	return b.registrationResponse(*reg)
}

func (b *backend) registrationResponse(reg db.Registration) model.RegistrationResponse {
	resp := model.RegistrationResponse{
		ID:                    reg.ID,
		Domain:                reg.Domain,
		QuoteID:               reg.QuoteID,
		RegistrarOrderID:      reg.RegistrarOrderID,
		NameserversConfigured: reg.NameserversConfigured,
		TotalCharged:          reg.TotalCharged,
		CreatedAt:             reg.CreatedAt,
		UpdatedAt:             reg.UpdatedAt,
	}
	if reg.ZoneID != nil {
		resp.ZoneID = *reg.ZoneID
		if zone, err := b.db.GetZone(*reg.ZoneID); err == nil && zone.ID != "" {
			resp.Nameservers = zone.NameserverList()
		}
	}
	return resp
}
