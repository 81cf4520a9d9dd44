package backend

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/primsh/prim.sh-sub000/pkg/apierror"
	"github.com/primsh/prim.sh-sub000/pkg/db"
	"github.com/primsh/prim.sh-sub000/pkg/model"
)

// ownedZone is the ownership guard for zone-scoped operations: a zone that
// exists but belongs to someone else is forbidden, not hidden.
func (b *backend) ownedZone(zoneID, caller string) (db.Zone, *apierror.Error) {
	zone, err := b.db.GetZone(zoneID)
	if err != nil {
		return db.Zone{}, apierror.Internal("looking up zone: %v", err)
	}
	if zone.ID == "" {
		return db.Zone{}, apierror.NotFound("zone %s not found", zoneID)
	}
	if zone.Owner != caller {
		return db.Zone{}, apierror.Forbidden("zone %s belongs to a different owner", zoneID)
	}
	return zone, nil
}

// CreateZone stands up a hosting zone for a domain the caller controls
// elsewhere (no purchase involved). Provider call first; the registry is only
// written once the provider accepted the zone.
func (b *backend) CreateZone(ctx context.Context, req model.CreateZoneRequest, caller string) (model.ZoneResponse, *apierror.Error) {
	if err := model.ValidateDomain(req.Domain); err != nil {
		return model.ZoneResponse{}, apierror.InvalidRequest("%v", err)
	}
	domain := strings.ToLower(req.Domain)

	existing, err := b.db.GetZoneByDomain(domain)
	if err != nil {
		return model.ZoneResponse{}, apierror.Internal("looking up zone: %v", err)
	}
	if existing.ID != "" {
		return model.ZoneResponse{}, apierror.DomainTaken(domain)
	}

	hosted, herr := b.dnshost.CreateZone(context.WithoutCancel(ctx), domain)
	if herr != nil {
		return model.ZoneResponse{}, toAPIError(herr, apierror.Provider)
	}

	now := time.Now()
	zone := db.Zone{
		ID:             uuid.NewString(),
		ProviderZoneID: hosted.ID,
		Domain:         domain,
		Owner:          caller,
		Status:         hosted.Status,
		Nameservers:    db.JoinValues(hosted.Nameservers),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := b.db.CreateZone(&zone); err != nil {
		logrus.WithFields(logrus.Fields{"domain": domain, "remote_committed": true}).
			Errorf("zone created at provider but persisting failed: %v", err)
		return model.ZoneResponse{}, apierror.InternalRemoteCommitted("zone for %s exists at the provider but recording it failed", domain)
	}

	return zoneResponse(zone), nil
}

// GetZone reads the local mirror; pending zones get their status lazily
// refreshed from the provider on the way out.
func (b *backend) GetZone(ctx context.Context, zoneID, caller string) (model.ZoneResponse, *apierror.Error) {
	zone, aerr := b.ownedZone(zoneID, caller)
	if aerr != nil {
		return model.ZoneResponse{}, aerr
	}

	if zone.Status == model.ZoneStatusPending {
		zone = b.refreshZoneStatus(ctx, zone)
	}

	return zoneResponse(zone), nil
}

func (b *backend) ListZones(ctx context.Context, caller string) ([]model.ZoneResponse, *apierror.Error) {
	zones, err := b.db.ListZones(caller)
	if err != nil {
		return nil, apierror.Internal("listing zones: %v", err)
	}

	out := make([]model.ZoneResponse, 0, len(zones))
	for _, zone := range zones {
		out = append(out, zoneResponse(zone))
	}
	return out, nil
}

func (b *backend) DeleteZone(ctx context.Context, zoneID, caller string) *apierror.Error {
	zone, aerr := b.ownedZone(zoneID, caller)
	if aerr != nil {
		return aerr
	}

	if err := b.dnshost.DeleteZone(context.WithoutCancel(ctx), zone.ProviderZoneID); err != nil {
		// A zone the provider no longer knows about is fine to drop locally.
		mapped := toAPIError(err, apierror.Provider)
		if mapped.Code != apierror.CodeNotFound {
			return mapped
		}
	}

	if err := b.db.DeleteZone(zone.ID); err != nil {
		logrus.WithFields(logrus.Fields{"zone": zone.ID, "remote_committed": true}).
			Errorf("zone deleted at provider but local delete failed: %v", err)
		return apierror.InternalRemoteCommitted("zone %s was deleted at the provider but removing it locally failed", zone.ID)
	}

	logrus.WithFields(logrus.Fields{"zone": zone.ID, "domain": zone.Domain}).Info("zone deleted")
	return nil
}

// ActivateZone asks the provider to re-check activation now and persists
// whatever status comes back.
func (b *backend) ActivateZone(ctx context.Context, zoneID, caller string) (model.ZoneResponse, *apierror.Error) {
	zone, aerr := b.ownedZone(zoneID, caller)
	if aerr != nil {
		return model.ZoneResponse{}, aerr
	}

	status, err := b.dnshost.TriggerActivationCheck(ctx, zone.ProviderZoneID)
	if err != nil {
		return model.ZoneResponse{}, toAPIError(err, apierror.Provider)
	}

	if status != "" && status != zone.Status {
		zone.Status = status
		zone.UpdatedAt = time.Now()
		if err := b.db.SaveZone(&zone); err != nil {
			return model.ZoneResponse{}, apierror.Internal("persisting zone status: %v", err)
		}
	}

	return zoneResponse(zone), nil
}

// refreshZoneStatus re-reads provider state for a pending zone. Failures are
// logged and the cached row served; a status read must never fail the caller.
func (b *backend) refreshZoneStatus(ctx context.Context, zone db.Zone) db.Zone {
	hosted, err := b.dnshost.GetZone(ctx, zone.ProviderZoneID)
	if err != nil {
		logrus.WithField("zone", zone.ID).Debugf("zone status refresh failed: %v", err)
		return zone
	}
	if hosted.Status == "" || hosted.Status == zone.Status {
		return zone
	}

	zone.Status = hosted.Status
	zone.UpdatedAt = time.Now()
	if err := b.db.SaveZone(&zone); err != nil {
		logrus.WithField("zone", zone.ID).Errorf("persisting refreshed zone status: %v", err)
	}
	return zone
}

func zoneResponse(z db.Zone) model.ZoneResponse {
	return model.ZoneResponse{
		ID:          z.ID,
		Domain:      z.Domain,
		Status:      z.Status,
		Nameservers: z.NameserverList(),
		CreatedAt:   z.CreatedAt,
		UpdatedAt:   z.UpdatedAt,
	}
}
