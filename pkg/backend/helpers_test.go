package backend

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/primsh/prim.sh-sub000/pkg/db"
	"github.com/primsh/prim.sh-sub000/pkg/dnshost"
	"github.com/primsh/prim.sh-sub000/pkg/model"
	"github.com/primsh/prim.sh-sub000/pkg/registrar"
)

const testCaller = "0xabc123"

var testNameservers = []string{"ns1.cloudhost.test", "ns2.cloudhost.test"}

// fakeRegistrar scripts registrar outcomes per domain and counts remote calls
// so tests can assert how many times money-moving endpoints were hit.
type fakeRegistrar struct {
	prices      map[string]int64
	unavailable map[string]bool

	registerErr error
	setNSErr    error

	registerCalls int
	setNSCalls    int
	nameservers   map[string][]string
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{
		prices:      map[string]int64{},
		unavailable: map[string]bool{},
		nameservers: map[string][]string{},
	}
}

func (f *fakeRegistrar) Search(ctx context.Context, domains []string) ([]registrar.SearchResult, error) {
	var out []registrar.SearchResult
	for _, domain := range domains {
		result := registrar.SearchResult{Domain: domain}
		if price, ok := f.prices[domain]; ok && !f.unavailable[domain] {
			p := price
			result.Available = true
			result.Price = &p
		}
		out = append(out, result)
	}
	return out, nil
}

func (f *fakeRegistrar) Register(ctx context.Context, domain string, years int) (registrar.RegisterResult, error) {
	f.registerCalls++
	if f.registerErr != nil {
		return registrar.RegisterResult{}, f.registerErr
	}
	return registrar.RegisterResult{OrderID: fmt.Sprintf("order-%d", f.registerCalls)}, nil
}

func (f *fakeRegistrar) SetNameservers(ctx context.Context, domain string, nameservers []string) error {
	f.setNSCalls++
	if f.setNSErr != nil {
		return f.setNSErr
	}
	f.nameservers[domain] = nameservers
	return nil
}

func (f *fakeRegistrar) GetNameservers(ctx context.Context, domain string) ([]string, error) {
	return f.nameservers[domain], nil
}

// fakeHost is an in-memory DNS provider. Batch calls are counted separately
// from per-record calls because batching must hit the provider exactly once.
type fakeHost struct {
	zones   map[string]dnshost.Zone
	records map[string]dnshost.Record

	createZoneErr error
	batchErr      error

	createZoneCalls int
	batchCalls      int
	recordCalls     int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		zones:   map[string]dnshost.Zone{},
		records: map[string]dnshost.Record{},
	}
}

func (f *fakeHost) CreateZone(ctx context.Context, domain string) (dnshost.Zone, error) {
	f.createZoneCalls++
	if f.createZoneErr != nil {
		return dnshost.Zone{}, f.createZoneErr
	}
	zone := dnshost.Zone{
		ID:          "cf-" + uuid.NewString(),
		Status:      model.ZoneStatusPending,
		Nameservers: testNameservers,
	}
	f.zones[zone.ID] = zone
	return zone, nil
}

func (f *fakeHost) GetZone(ctx context.Context, providerZoneID string) (dnshost.Zone, error) {
	return f.zones[providerZoneID], nil
}

func (f *fakeHost) DeleteZone(ctx context.Context, providerZoneID string) error {
	delete(f.zones, providerZoneID)
	return nil
}

func (f *fakeHost) TriggerActivationCheck(ctx context.Context, providerZoneID string) (string, error) {
	zone := f.zones[providerZoneID]
	zone.Status = model.ZoneStatusActive
	f.zones[providerZoneID] = zone
	return zone.Status, nil
}

func (f *fakeHost) CreateRecord(ctx context.Context, providerZoneID string, record dnshost.Record) (dnshost.Record, error) {
	f.recordCalls++
	record.ID = "cfr-" + uuid.NewString()
	if record.TTL == 0 {
		record.TTL = 1
	}
	f.records[record.ID] = record
	return record, nil
}

func (f *fakeHost) UpdateRecord(ctx context.Context, providerZoneID string, record dnshost.Record) (dnshost.Record, error) {
	f.recordCalls++
	f.records[record.ID] = record
	return record, nil
}

func (f *fakeHost) DeleteRecord(ctx context.Context, providerZoneID, providerRecordID string) error {
	f.recordCalls++
	delete(f.records, providerRecordID)
	return nil
}

func (f *fakeHost) ListRecords(ctx context.Context, providerZoneID string) ([]dnshost.Record, error) {
	var out []dnshost.Record
	for _, record := range f.records {
		out = append(out, record)
	}
	return out, nil
}

func (f *fakeHost) BatchRecords(ctx context.Context, providerZoneID string, batch dnshost.BatchRequest) (dnshost.BatchResult, error) {
	f.batchCalls++
	if f.batchErr != nil {
		return dnshost.BatchResult{}, f.batchErr
	}

	result := dnshost.BatchResult{}
	for _, create := range batch.Creates {
		create.ID = "cfr-" + uuid.NewString()
		if create.TTL == 0 {
			create.TTL = 1
		}
		f.records[create.ID] = create
		result.Created = append(result.Created, create)
	}
	for _, update := range batch.Updates {
		f.records[update.ID] = update
		result.Updated = append(result.Updated, update)
	}
	for _, id := range batch.DeleteIDs {
		delete(f.records, id)
		result.DeletedIDs = append(result.DeletedIDs, id)
	}
	return result, nil
}

// fakeQuerier serves scripted DNS answers. Record queries are keyed by
// name and type only, so every scripted authoritative server agrees.
type fakeQuerier struct {
	ns      map[string][]string
	nsErr   map[string]error
	hostIPs map[string][]string
	answers map[string][]Answer
	qErr    map[string]error
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		ns:      map[string][]string{},
		nsErr:   map[string]error{},
		hostIPs: map[string][]string{},
		answers: map[string][]Answer{},
		qErr:    map[string]error{},
	}
}

func queryKey(name, recordType string) string {
	return name + "/" + recordType
}

func (f *fakeQuerier) LookupNS(ctx context.Context, domain string) ([]string, error) {
	if err := f.nsErr[domain]; err != nil {
		return nil, err
	}
	hosts, ok := f.ns[domain]
	if !ok {
		return nil, &QueryError{Reason: model.ReasonNotFound}
	}
	return hosts, nil
}

func (f *fakeQuerier) LookupHostIPs(ctx context.Context, host string) ([]string, error) {
	ips, ok := f.hostIPs[host]
	if !ok {
		return nil, &QueryError{Reason: model.ReasonNotFound}
	}
	return ips, nil
}

func (f *fakeQuerier) Query(ctx context.Context, server, name, recordType string) ([]Answer, error) {
	key := queryKey(name, recordType)
	if err := f.qErr[key]; err != nil {
		return nil, err
	}
	answers, ok := f.answers[key]
	if !ok {
		return nil, &QueryError{Reason: model.ReasonNotFound}
	}
	return answers, nil
}

func newTestDB(t *testing.T) db.Database {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	database, err := db.New(context.Background(), "sqlite", dsn, nil)
	require.NoError(t, err)
	return database
}

func newTestBackend(t *testing.T) (*backend, *fakeRegistrar, *fakeHost, *fakeQuerier) {
	t.Helper()

	reg := newFakeRegistrar()
	host := newFakeHost()
	querier := newFakeQuerier()

	b := New(newTestDB(t), reg, host, Config{}).(*backend)
	b.newQuerier = func() Querier { return querier }
	return b, reg, host, querier
}

func mustQuote(t *testing.T, b *backend, domain string) model.QuoteResponse {
	t.Helper()
	quote, aerr := b.Quote(context.Background(), model.QuoteRequest{Domain: domain}, testCaller)
	require.Nil(t, aerr)
	return quote
}

func intPtr(v int) *int { return &v }
