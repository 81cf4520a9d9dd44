package dnshost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/cloudflare/cloudflare-go"
	"github.com/sirupsen/logrus"

	"github.com/primsh/prim.sh-sub000/pkg/apierror"
)

type cfGateway struct {
	api       *cloudflare.API
	accountID string
}

// NewCloudflare returns a Gateway backed by the Cloudflare v4 API. Zones are
// created in the given account; the proxied flag and the
// pending/active/moved status set come straight from Cloudflare's zone model.
func NewCloudflare(apiToken, accountID string) (Gateway, error) {
	api, err := cloudflare.NewWithAPIToken(apiToken)
	if err != nil {
		return nil, err
	}
	return &cfGateway{api: api, accountID: accountID}, nil
}

func (g *cfGateway) CreateZone(ctx context.Context, domain string) (Zone, error) {
	zone, err := g.api.CreateZone(ctx, domain, false, cloudflare.Account{ID: g.accountID}, "full")
	if err != nil {
		return Zone{}, mapError("create zone", err)
	}

	return Zone{
		ID:          zone.ID,
		Status:      zone.Status,
		Nameservers: zone.NameServers,
	}, nil
}

func (g *cfGateway) GetZone(ctx context.Context, providerZoneID string) (Zone, error) {
	zone, err := g.api.ZoneDetails(ctx, providerZoneID)
	if err != nil {
		return Zone{}, mapError("get zone", err)
	}

	return Zone{
		ID:          zone.ID,
		Status:      zone.Status,
		Nameservers: zone.NameServers,
	}, nil
}

func (g *cfGateway) DeleteZone(ctx context.Context, providerZoneID string) error {
	if _, err := g.api.DeleteZone(ctx, providerZoneID); err != nil {
		return mapError("delete zone", err)
	}
	return nil
}

func (g *cfGateway) TriggerActivationCheck(ctx context.Context, providerZoneID string) (string, error) {
	if _, err := g.api.ZoneActivationCheck(ctx, providerZoneID); err != nil {
		return "", mapError("activation check", err)
	}

	// The check is asynchronous on Cloudflare's side; report the status as it
	// stands right after triggering.
	zone, err := g.api.ZoneDetails(ctx, providerZoneID)
	if err != nil {
		return "", mapError("get zone", err)
	}
	return zone.Status, nil
}

func (g *cfGateway) CreateRecord(ctx context.Context, providerZoneID string, record Record) (Record, error) {
	created, err := g.api.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(providerZoneID), cloudflare.CreateDNSRecordParams{
		Type:     record.Type,
		Name:     record.Name,
		Content:  record.Content,
		TTL:      cfTTL(record.TTL),
		Proxied:  cloudflare.BoolPtr(record.Proxied),
		Priority: cfPriority(record.Priority),
	})
	if err != nil {
		return Record{}, mapError("create record", err)
	}
	return fromDNSRecord(created), nil
}

func (g *cfGateway) UpdateRecord(ctx context.Context, providerZoneID string, record Record) (Record, error) {
	updated, err := g.api.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(providerZoneID), cloudflare.UpdateDNSRecordParams{
		ID:       record.ID,
		Type:     record.Type,
		Name:     record.Name,
		Content:  record.Content,
		TTL:      cfTTL(record.TTL),
		Proxied:  cloudflare.BoolPtr(record.Proxied),
		Priority: cfPriority(record.Priority),
	})
	if err != nil {
		return Record{}, mapError("update record", err)
	}
	return fromDNSRecord(updated), nil
}

func (g *cfGateway) DeleteRecord(ctx context.Context, providerZoneID, providerRecordID string) error {
	if err := g.api.DeleteDNSRecord(ctx, cloudflare.ZoneIdentifier(providerZoneID), providerRecordID); err != nil {
		return mapError("delete record", err)
	}
	return nil
}

func (g *cfGateway) ListRecords(ctx context.Context, providerZoneID string) ([]Record, error) {
	listed, _, err := g.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(providerZoneID), cloudflare.ListDNSRecordsParams{})
	if err != nil {
		return nil, mapError("list records", err)
	}

	records := make([]Record, 0, len(listed))
	for _, r := range listed {
		records = append(records, fromDNSRecord(r))
	}
	return records, nil
}

type batchRecordBody struct {
	ID       string  `json:"id,omitempty"`
	Type     string  `json:"type,omitempty"`
	Name     string  `json:"name,omitempty"`
	Content  string  `json:"content,omitempty"`
	TTL      int     `json:"ttl,omitempty"`
	Proxied  bool    `json:"proxied"`
	Priority *uint16 `json:"priority,omitempty"`
}

type batchPayload struct {
	Posts   []batchRecordBody `json:"posts,omitempty"`
	Patches []batchRecordBody `json:"patches,omitempty"`
	Deletes []batchRecordBody `json:"deletes,omitempty"`
}

// BatchRecords posts one request to /dns_records/batch; Cloudflare applies
// the whole set atomically and returns the per-op outcomes.
func (g *cfGateway) BatchRecords(ctx context.Context, providerZoneID string, batch BatchRequest) (BatchResult, error) {
	payload := batchPayload{}
	for _, r := range batch.Creates {
		payload.Posts = append(payload.Posts, toBatchBody(r))
	}
	for _, r := range batch.Updates {
		payload.Patches = append(payload.Patches, toBatchBody(r))
	}
	for _, id := range batch.DeleteIDs {
		payload.Deletes = append(payload.Deletes, batchRecordBody{ID: id})
	}

	endpoint := fmt.Sprintf("/zones/%s/dns_records/batch", providerZoneID)
	raw, err := g.api.Raw(ctx, http.MethodPost, endpoint, payload, nil)
	if err != nil {
		return BatchResult{}, mapError("batch records", err)
	}

	var out struct {
		Posts   []batchRecordBody `json:"posts"`
		Patches []batchRecordBody `json:"patches"`
		Deletes []batchRecordBody `json:"deletes"`
	}
	if err := json.Unmarshal(raw.Result, &out); err != nil {
		return BatchResult{}, apierror.Provider("decoding batch response: %v", err)
	}

	result := BatchResult{}
	for _, r := range out.Posts {
		result.Created = append(result.Created, fromBatchBody(r))
	}
	for _, r := range out.Patches {
		result.Updated = append(result.Updated, fromBatchBody(r))
	}
	for _, r := range out.Deletes {
		result.DeletedIDs = append(result.DeletedIDs, r.ID)
	}
	return result, nil
}

func toBatchBody(r Record) batchRecordBody {
	return batchRecordBody{
		ID:       r.ID,
		Type:     r.Type,
		Name:     r.Name,
		Content:  r.Content,
		TTL:      cfTTL(r.TTL),
		Proxied:  r.Proxied,
		Priority: cfPriority(r.Priority),
	}
}

func fromBatchBody(r batchRecordBody) Record {
	rec := Record{
		ID:      r.ID,
		Type:    r.Type,
		Name:    r.Name,
		Content: r.Content,
		TTL:     r.TTL,
		Proxied: r.Proxied,
	}
	if r.Priority != nil {
		p := int(*r.Priority)
		rec.Priority = &p
	}
	return rec
}

func fromDNSRecord(r cloudflare.DNSRecord) Record {
	rec := Record{
		ID:      r.ID,
		Type:    r.Type,
		Name:    r.Name,
		Content: r.Content,
		TTL:     r.TTL,
	}
	if r.Proxied != nil {
		rec.Proxied = *r.Proxied
	}
	if r.Priority != nil {
		p := int(*r.Priority)
		rec.Priority = &p
	}
	return rec
}

// Cloudflare uses TTL 1 for "automatic".
func cfTTL(ttl int) int {
	if ttl <= 0 {
		return 1
	}
	return ttl
}

func cfPriority(priority *int) *uint16 {
	if priority == nil {
		return nil
	}
	p := uint16(*priority)
	return &p
}

// mapError translates a Cloudflare failure onto the error taxonomy.
func mapError(op string, err error) *apierror.Error {
	logrus.WithField("op", op).Warnf("dns host error: %v", err)

	var notFound *cloudflare.NotFoundError
	if errors.As(err, &notFound) {
		return apierror.NotFound("dns host: %v", err)
	}

	var rateLimited *cloudflare.RatelimitError
	if errors.As(err, &rateLimited) {
		return apierror.RateLimited(0)
	}

	var request *cloudflare.RequestError
	if errors.As(err, &request) {
		return apierror.InvalidRequest("dns host: %v", err)
	}

	var authorization *cloudflare.AuthorizationError
	if errors.As(err, &authorization) {
		return apierror.Provider("dns host rejected credentials")
	}

	var apiErr *cloudflare.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			return apierror.NotFound("dns host: %v", err)
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return apierror.RateLimited(0)
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			return apierror.InvalidRequest("dns host: %v", err)
		}
	}

	return apierror.Provider("dns host: %v", err)
}
