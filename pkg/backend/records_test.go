package backend

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primsh/prim.sh-sub000/pkg/apierror"
	"github.com/primsh/prim.sh-sub000/pkg/model"
)

func TestRecordLifecycle(t *testing.T) {
	b, _, host, _ := newTestBackend(t)
	zone := seedZone(t, b, "example.com")

	created, aerr := b.CreateRecord(context.Background(), zone.ID, model.RecordRequest{
		Type:    model.RecordTypeA,
		Name:    "www.example.com",
		Content: "192.0.2.10",
		TTL:     300,
	}, testCaller)
	require.Nil(t, aerr)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, zone.ID, created.ZoneID)

	updated, aerr := b.UpdateRecord(context.Background(), zone.ID, created.ID, model.RecordRequest{
		Type:    model.RecordTypeA,
		Name:    "www.example.com",
		Content: "192.0.2.20",
		TTL:     300,
	}, testCaller)
	require.Nil(t, aerr)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "192.0.2.20", updated.Content)

	records, aerr := b.ListRecords(context.Background(), zone.ID, testCaller)
	require.Nil(t, aerr)
	require.Len(t, records, 1)

	require.Nil(t, b.DeleteRecord(context.Background(), zone.ID, created.ID, testCaller))

	records, aerr = b.ListRecords(context.Background(), zone.ID, testCaller)
	require.Nil(t, aerr)
	assert.Empty(t, records)
	assert.Empty(t, host.records)
}

func TestCreateRecordValidation(t *testing.T) {
	b, _, host, _ := newTestBackend(t)
	zone := seedZone(t, b, "example.com")

	bad := []model.RecordRequest{
		{Type: "SPF", Name: "example.com", Content: "x"},
		{Type: model.RecordTypeA, Name: "www.example.com", Content: "not-an-ip"},
		{Type: model.RecordTypeA, Name: "www.example.com", Content: "2001:db8::1"},
		{Type: model.RecordTypeMx, Name: "example.com", Content: "mail.example.com"},
		{Type: model.RecordTypeTxt, Name: "example.com", Content: "v=spf1 -all", Proxied: true},
	}
	for _, req := range bad {
		_, aerr := b.CreateRecord(context.Background(), zone.ID, req, testCaller)
		require.NotNil(t, aerr, "request %+v", req)
		assert.Equal(t, apierror.CodeInvalidRequest, aerr.Code)
	}
	assert.Zero(t, host.recordCalls, "invalid requests never reach the provider")
}

func TestRecordFromAnotherZoneIsNotFound(t *testing.T) {
	b, _, _, _ := newTestBackend(t)
	zone := seedZone(t, b, "example.com")
	other := seedZone(t, b, "other.com")
	record := seedRecord(t, b, other, model.RecordTypeA, "www.other.com", "192.0.2.10", nil)

	_, aerr := b.UpdateRecord(context.Background(), zone.ID, record.ID, model.RecordRequest{
		Type:    model.RecordTypeA,
		Name:    "www.other.com",
		Content: "192.0.2.20",
	}, testCaller)
	require.NotNil(t, aerr)
	assert.Equal(t, apierror.CodeNotFound, aerr.Code)
}

func TestBatchRecordsCapEnforcedBeforeRemote(t *testing.T) {
	b, _, host, _ := newTestBackend(t)
	zone := seedZone(t, b, "example.com")

	req := model.BatchRecordsRequest{}
	for i := 0; i < b.cfg.BatchMaxOps+1; i++ {
		req.Creates = append(req.Creates, model.RecordRequest{
			Type:    model.RecordTypeA,
			Name:    fmt.Sprintf("host%d.example.com", i),
			Content: "192.0.2.10",
		})
	}

	_, aerr := b.BatchRecords(context.Background(), zone.ID, req, testCaller)
	require.NotNil(t, aerr)
	assert.Equal(t, apierror.CodeInvalidRequest, aerr.Code)
	assert.Zero(t, host.batchCalls)
}

func TestBatchRecordsAtCap(t *testing.T) {
	b, _, host, _ := newTestBackend(t)
	zone := seedZone(t, b, "example.com")

	req := model.BatchRecordsRequest{}
	for i := 0; i < b.cfg.BatchMaxOps; i++ {
		req.Creates = append(req.Creates, model.RecordRequest{
			Type:    model.RecordTypeA,
			Name:    fmt.Sprintf("host%d.example.com", i),
			Content: "192.0.2.10",
		})
	}

	resp, aerr := b.BatchRecords(context.Background(), zone.ID, req, testCaller)
	require.Nil(t, aerr)
	assert.Len(t, resp.Created, b.cfg.BatchMaxOps)
	assert.Equal(t, 1, host.batchCalls, "a batch is one provider call, never one per record")
}

func TestBatchRecordsRejectsEmptyBatch(t *testing.T) {
	b, _, host, _ := newTestBackend(t)
	zone := seedZone(t, b, "example.com")

	_, aerr := b.BatchRecords(context.Background(), zone.ID, model.BatchRecordsRequest{}, testCaller)
	require.NotNil(t, aerr)
	assert.Equal(t, apierror.CodeInvalidRequest, aerr.Code)
	assert.Zero(t, host.batchCalls)
}

func TestBatchRecordsMixedOperations(t *testing.T) {
	b, _, host, _ := newTestBackend(t)
	zone := seedZone(t, b, "example.com")
	toUpdate := seedRecord(t, b, zone, model.RecordTypeA, "www.example.com", "192.0.2.10", nil)
	toDelete := seedRecord(t, b, zone, model.RecordTypeTxt, "example.com", "v=spf1 -all", nil)

	resp, aerr := b.BatchRecords(context.Background(), zone.ID, model.BatchRecordsRequest{
		Creates: []model.RecordRequest{
			{Type: model.RecordTypeCname, Name: "blog.example.com", Content: "pages.example.net"},
		},
		Updates: []model.RecordUpdate{
			{ID: toUpdate.ID, RecordRequest: model.RecordRequest{
				Type:    model.RecordTypeA,
				Name:    "www.example.com",
				Content: "192.0.2.20",
			}},
		},
		Deletes: []string{toDelete.ID},
	}, testCaller)
	require.Nil(t, aerr)

	assert.Equal(t, 1, host.batchCalls)
	require.Len(t, resp.Created, 1)
	require.Len(t, resp.Updated, 1)
	assert.Equal(t, "192.0.2.20", resp.Updated[0].Content)
	assert.Equal(t, []string{toDelete.ID}, resp.Deleted)

	records, aerr := b.ListRecords(context.Background(), zone.ID, testCaller)
	require.Nil(t, aerr)
	assert.Len(t, records, 2)
}

func TestBatchRecordsUnknownDeleteID(t *testing.T) {
	b, _, host, _ := newTestBackend(t)
	zone := seedZone(t, b, "example.com")

	_, aerr := b.BatchRecords(context.Background(), zone.ID, model.BatchRecordsRequest{
		Deletes: []string{"no-such-record"},
	}, testCaller)
	require.NotNil(t, aerr)
	assert.Equal(t, apierror.CodeNotFound, aerr.Code)
	assert.Zero(t, host.batchCalls)
}
