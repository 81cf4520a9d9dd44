package backend

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"

	"github.com/primsh/prim.sh-sub000/pkg/apierror"
	"github.com/primsh/prim.sh-sub000/pkg/db"
	"github.com/primsh/prim.sh-sub000/pkg/dnshost"
	"github.com/primsh/prim.sh-sub000/pkg/model"
)

func (b *backend) CreateRecord(ctx context.Context, zoneID string, req model.RecordRequest, caller string) (model.RecordResponse, *apierror.Error) {
	zone, aerr := b.ownedZone(zoneID, caller)
	if aerr != nil {
		return model.RecordResponse{}, aerr
	}
	if err := req.Validate(); err != nil {
		return model.RecordResponse{}, apierror.InvalidRequest("%v", err)
	}

	hosted, herr := b.dnshost.CreateRecord(context.WithoutCancel(ctx), zone.ProviderZoneID, toHostRecord("", req))
	if herr != nil {
		return model.RecordResponse{}, toAPIError(herr, apierror.Provider)
	}

	now := time.Now()
	record := db.Record{
		ID:               uuid.NewString(),
		ProviderRecordID: hosted.ID,
		ZoneID:           zone.ID,
		Type:             req.Type,
		Name:             hosted.Name,
		Content:          hosted.Content,
		TTL:              hosted.TTL,
		Proxied:          hosted.Proxied,
		Priority:         req.Priority,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := b.db.CreateRecord(&record); err != nil {
		logrus.WithFields(logrus.Fields{"zone": zone.ID, "remote_committed": true}).
			Errorf("record created at provider but persisting failed: %v", err)
		return model.RecordResponse{}, apierror.InternalRemoteCommitted("record was created at the provider but recording it failed")
	}

	return recordResponse(record), nil
}

func (b *backend) UpdateRecord(ctx context.Context, zoneID, recordID string, req model.RecordRequest, caller string) (model.RecordResponse, *apierror.Error) {
	zone, aerr := b.ownedZone(zoneID, caller)
	if aerr != nil {
		return model.RecordResponse{}, aerr
	}
	record, aerr := b.zoneRecord(zone, recordID)
	if aerr != nil {
		return model.RecordResponse{}, aerr
	}
	if err := req.Validate(); err != nil {
		return model.RecordResponse{}, apierror.InvalidRequest("%v", err)
	}

	hosted, herr := b.dnshost.UpdateRecord(context.WithoutCancel(ctx), zone.ProviderZoneID, toHostRecord(record.ProviderRecordID, req))
	if herr != nil {
		return model.RecordResponse{}, toAPIError(herr, apierror.Provider)
	}

	record.Type = req.Type
	record.Name = hosted.Name
	record.Content = hosted.Content
	record.TTL = hosted.TTL
	record.Proxied = hosted.Proxied
	record.Priority = req.Priority
	record.UpdatedAt = time.Now()
	if err := b.db.SaveRecord(&record); err != nil {
		logrus.WithFields(logrus.Fields{"record": record.ID, "remote_committed": true}).
			Errorf("record updated at provider but persisting failed: %v", err)
		return model.RecordResponse{}, apierror.InternalRemoteCommitted("record was updated at the provider but recording it failed")
	}

	return recordResponse(record), nil
}

func (b *backend) DeleteRecord(ctx context.Context, zoneID, recordID, caller string) *apierror.Error {
	zone, aerr := b.ownedZone(zoneID, caller)
	if aerr != nil {
		return aerr
	}
	record, aerr := b.zoneRecord(zone, recordID)
	if aerr != nil {
		return aerr
	}

	if err := b.dnshost.DeleteRecord(context.WithoutCancel(ctx), zone.ProviderZoneID, record.ProviderRecordID); err != nil {
		mapped := toAPIError(err, apierror.Provider)
		if mapped.Code != apierror.CodeNotFound {
			return mapped
		}
	}

	if err := b.db.DeleteRecord(record.ID); err != nil {
		logrus.WithFields(logrus.Fields{"record": record.ID, "remote_committed": true}).
			Errorf("record deleted at provider but local delete failed: %v", err)
		return apierror.InternalRemoteCommitted("record was deleted at the provider but removing it locally failed")
	}
	return nil
}

func (b *backend) ListRecords(ctx context.Context, zoneID, caller string) ([]model.RecordResponse, *apierror.Error) {
	zone, aerr := b.ownedZone(zoneID, caller)
	if aerr != nil {
		return nil, aerr
	}

	records, err := b.db.ListRecords(zone.ID)
	if err != nil {
		return nil, apierror.Internal("listing records: %v", err)
	}

	out := make([]model.RecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, recordResponse(record))
	}
	return out, nil
}

// BatchRecords applies creates, updates and deletes in one provider call and
// one local transaction. The cap is enforced before anything leaves the
// process; a local failure after the provider call is reported as a distinct
// remote-committed condition because the DNS changes already happened.
func (b *backend) BatchRecords(ctx context.Context, zoneID string, req model.BatchRecordsRequest, caller string) (model.BatchRecordsResponse, *apierror.Error) {
	zone, aerr := b.ownedZone(zoneID, caller)
	if aerr != nil {
		return model.BatchRecordsResponse{}, aerr
	}

	if req.OpCount() == 0 {
		return model.BatchRecordsResponse{}, apierror.InvalidRequest("batch contains no operations")
	}
	if req.OpCount() > b.cfg.BatchMaxOps {
		return model.BatchRecordsResponse{}, apierror.InvalidRequest("batch exceeds the maximum of %d operations", b.cfg.BatchMaxOps)
	}

	for _, create := range req.Creates {
		if err := create.Validate(); err != nil {
			return model.BatchRecordsResponse{}, apierror.InvalidRequest("create: %v", err)
		}
	}

	batch := dnshost.BatchRequest{}
	for _, create := range req.Creates {
		batch.Creates = append(batch.Creates, toHostRecord("", create))
	}

	// Updates and deletes arrive with local record IDs; translate to the
	// provider's and keep the rows for the local apply.
	updated := make([]db.Record, 0, len(req.Updates))
	for _, update := range req.Updates {
		if err := update.Validate(); err != nil {
			return model.BatchRecordsResponse{}, apierror.InvalidRequest("update %s: %v", update.ID, err)
		}
		record, aerr := b.zoneRecord(zone, update.ID)
		if aerr != nil {
			return model.BatchRecordsResponse{}, aerr
		}
		updated = append(updated, record)
		batch.Updates = append(batch.Updates, toHostRecord(record.ProviderRecordID, update.RecordRequest))
	}

	deleted := make(map[string]db.Record, len(req.Deletes))
	for _, id := range req.Deletes {
		record, aerr := b.zoneRecord(zone, id)
		if aerr != nil {
			return model.BatchRecordsResponse{}, aerr
		}
		deleted[record.ProviderRecordID] = record
		batch.DeleteIDs = append(batch.DeleteIDs, record.ProviderRecordID)
	}

	result, herr := b.dnshost.BatchRecords(context.WithoutCancel(ctx), zone.ProviderZoneID, batch)
	if herr != nil {
		return model.BatchRecordsResponse{}, toAPIError(herr, apierror.Provider)
	}

	resp := model.BatchRecordsResponse{}
	now := time.Now()
	err := b.db.Transaction(func(tx db.Database) error {
		for i, hosted := range result.Created {
			record := db.Record{
				ID:               uuid.NewString(),
				ProviderRecordID: hosted.ID,
				ZoneID:           zone.ID,
				Type:             hosted.Type,
				Name:             hosted.Name,
				Content:          hosted.Content,
				TTL:              hosted.TTL,
				Proxied:          hosted.Proxied,
				Priority:         hosted.Priority,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if record.Priority == nil && i < len(req.Creates) {
				record.Priority = req.Creates[i].Priority
			}
			if err := tx.CreateRecord(&record); err != nil {
				return err
			}
			resp.Created = append(resp.Created, recordResponse(record))
		}

		for i, hosted := range result.Updated {
			record := updated[i]
			record.Type = hosted.Type
			record.Name = hosted.Name
			record.Content = hosted.Content
			record.TTL = hosted.TTL
			record.Proxied = hosted.Proxied
			if hosted.Priority != nil {
				record.Priority = hosted.Priority
			}
			record.UpdatedAt = now
			if err := tx.SaveRecord(&record); err != nil {
				return err
			}
			resp.Updated = append(resp.Updated, recordResponse(record))
		}

		for _, record := range maps.Values(deleted) {
			if err := tx.DeleteRecord(record.ID); err != nil {
				return err
			}
			resp.Deleted = append(resp.Deleted, record.ID)
		}
		return nil
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"zone": zone.ID, "remote_committed": true}).
			Errorf("batch applied at provider but local apply failed: %v", err)
		return model.BatchRecordsResponse{}, apierror.InternalRemoteCommitted(
			"the DNS changes were applied at the provider but local state may be inconsistent")
	}

	return resp, nil
}

func (b *backend) zoneRecord(zone db.Zone, recordID string) (db.Record, *apierror.Error) {
	record, err := b.db.GetRecord(recordID)
	if err != nil {
		return db.Record{}, apierror.Internal("looking up record: %v", err)
	}
	if record.ID == "" || record.ZoneID != zone.ID {
		return db.Record{}, apierror.NotFound("record %s not found in zone %s", recordID, zone.ID)
	}
	return record, nil
}

func toHostRecord(providerID string, req model.RecordRequest) dnshost.Record {
	return dnshost.Record{
		ID:       providerID,
		Type:     req.Type,
		Name:     req.Name,
		Content:  req.Content,
		TTL:      req.TTL,
		Proxied:  req.Proxied,
		Priority: req.Priority,
	}
}

func recordResponse(r db.Record) model.RecordResponse {
	return model.RecordResponse{
		ID:        r.ID,
		ZoneID:    r.ZoneID,
		Type:      r.Type,
		Name:      r.Name,
		Content:   r.Content,
		TTL:       r.TTL,
		Proxied:   r.Proxied,
		Priority:  r.Priority,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
