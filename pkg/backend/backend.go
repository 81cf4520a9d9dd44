package backend

import (
	"context"
	"time"

	"github.com/primsh/prim.sh-sub000/pkg/apierror"
	"github.com/primsh/prim.sh-sub000/pkg/db"
	"github.com/primsh/prim.sh-sub000/pkg/dnshost"
	"github.com/primsh/prim.sh-sub000/pkg/model"
	"github.com/primsh/prim.sh-sub000/pkg/registrar"
)

// Backend holds all saga, verification and CRUD logic. Every method takes the
// caller's wallet address (established by the payment layer upstream) and
// returns a typed error; the HTTP layer only maps results onto the wire.
type Backend interface {
	Quote(ctx context.Context, req model.QuoteRequest, caller string) (model.QuoteResponse, *apierror.Error)

	Register(ctx context.Context, req model.RegisterRequest, caller string) (model.RegistrationResponse, *apierror.Error)
	Recover(ctx context.Context, recoveryToken, caller string) (model.RegistrationResponse, *apierror.Error)
	ConfigureNameservers(ctx context.Context, domain, caller string) (model.RegistrationResponse, *apierror.Error)
	GetRegistration(ctx context.Context, domain, caller string) (model.RegistrationResponse, *apierror.Error)
	ListRegistrations(ctx context.Context, caller string) ([]model.RegistrationResponse, *apierror.Error)

	CreateZone(ctx context.Context, req model.CreateZoneRequest, caller string) (model.ZoneResponse, *apierror.Error)
	GetZone(ctx context.Context, zoneID, caller string) (model.ZoneResponse, *apierror.Error)
	ListZones(ctx context.Context, caller string) ([]model.ZoneResponse, *apierror.Error)
	DeleteZone(ctx context.Context, zoneID, caller string) *apierror.Error
	ActivateZone(ctx context.Context, zoneID, caller string) (model.ZoneResponse, *apierror.Error)

	CreateRecord(ctx context.Context, zoneID string, req model.RecordRequest, caller string) (model.RecordResponse, *apierror.Error)
	UpdateRecord(ctx context.Context, zoneID, recordID string, req model.RecordRequest, caller string) (model.RecordResponse, *apierror.Error)
	DeleteRecord(ctx context.Context, zoneID, recordID, caller string) *apierror.Error
	ListRecords(ctx context.Context, zoneID, caller string) ([]model.RecordResponse, *apierror.Error)
	BatchRecords(ctx context.Context, zoneID string, req model.BatchRecordsRequest, caller string) (model.BatchRecordsResponse, *apierror.Error)

	Verify(ctx context.Context, zoneID, caller string) (model.VerifyResult, *apierror.Error)
}

type Config struct {
	MarginRate     float64
	MarginMinCents int64
	QuoteTTL       time.Duration
	BatchMaxOps    int
	Resolver       string
	QueryTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.MarginRate == 0 {
		c.MarginRate = 0.15
	}
	if c.MarginMinCents == 0 {
		c.MarginMinCents = 100
	}
	if c.QuoteTTL == 0 {
		c.QuoteTTL = 15 * time.Minute
	}
	if c.BatchMaxOps == 0 {
		c.BatchMaxOps = 50
	}
	if c.Resolver == "" {
		c.Resolver = "1.1.1.1:53"
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 5 * time.Second
	}
	return c
}

type backend struct {
	db        db.Database
	registrar registrar.Gateway
	dnshost   dnshost.Gateway
	cfg       Config

	// newQuerier is called once per verification so concurrent verify calls
	// never share resolver state.
	newQuerier func() Querier
}

func New(database db.Database, reg registrar.Gateway, host dnshost.Gateway, cfg Config) Backend {
	cfg = cfg.withDefaults()

	b := &backend{
		db:        database,
		registrar: reg,
		dnshost:   host,
		cfg:       cfg,
	}
	b.newQuerier = func() Querier {
		return newDNSQuerier(cfg.Resolver, cfg.QueryTimeout)
	}
	return b
}

// toAPIError keeps gateway errors typed; anything untyped that slips through
// becomes the given fallback class.
func toAPIError(err error, fallback func(format string, args ...interface{}) *apierror.Error) *apierror.Error {
	if e, ok := apierror.As(err); ok {
		return e
	}
	return fallback("%v", err)
}
