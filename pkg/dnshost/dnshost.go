package dnshost

import "context"

type Zone struct {
	ID          string
	Status      string
	Nameservers []string
}

type Record struct {
	ID       string
	Type     string
	Name     string
	Content  string
	TTL      int
	Proxied  bool
	Priority *int
}

type BatchRequest struct {
	Creates   []Record
	Updates   []Record
	DeleteIDs []string
}

type BatchResult struct {
	Created    []Record
	Updated    []Record
	DeletedIDs []string
}

// Gateway is the managed-DNS provider boundary. Implementations return
// *apierror.Error for every failure. BatchRecords must hit the provider's
// batch endpoint exactly once; it never falls back to per-record calls.
type Gateway interface {
	CreateZone(ctx context.Context, domain string) (Zone, error)
	GetZone(ctx context.Context, providerZoneID string) (Zone, error)
	DeleteZone(ctx context.Context, providerZoneID string) error
	TriggerActivationCheck(ctx context.Context, providerZoneID string) (string, error)

	CreateRecord(ctx context.Context, providerZoneID string, record Record) (Record, error)
	UpdateRecord(ctx context.Context, providerZoneID string, record Record) (Record, error)
	DeleteRecord(ctx context.Context, providerZoneID, providerRecordID string) error
	ListRecords(ctx context.Context, providerZoneID string) ([]Record, error)
	BatchRecords(ctx context.Context, providerZoneID string, batch BatchRequest) (BatchResult, error)
}
