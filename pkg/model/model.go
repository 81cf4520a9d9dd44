package model

import (
	"fmt"
	"time"
)

const (
	RecordTypeA     = "A"
	RecordTypeAAAA  = "AAAA"
	RecordTypeCname = "CNAME"
	RecordTypeMx    = "MX"
	RecordTypeTxt   = "TXT"
	RecordTypeNs    = "NS"
	RecordTypeSrv   = "SRV"
	RecordTypeCaa   = "CAA"
)

const (
	ZoneStatusPending = "pending"
	ZoneStatusActive  = "active"
	ZoneStatusMoved   = "moved"
)

func IsValidRecordType(rt string) error {
	switch rt {
	case RecordTypeA, RecordTypeAAAA, RecordTypeCname, RecordTypeMx,
		RecordTypeTxt, RecordTypeNs, RecordTypeSrv, RecordTypeCaa:
		return nil
	}

	return fmt.Errorf("invalid record type %q", rt)
}

type QuoteRequest struct {
	Domain string `json:"domain,omitempty"`
	Years  int    `json:"years,omitempty"`
}

type QuoteResponse struct {
	ID            string    `json:"id,omitempty"`
	Domain        string    `json:"domain,omitempty"`
	Years         int       `json:"years,omitempty"`
	RegistrarCost int64     `json:"registrarCost"`
	Margin        int64     `json:"margin"`
	Total         int64     `json:"total"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt,omitempty"`
}

type RegisterRequest struct {
	QuoteID string `json:"quoteId,omitempty"`
}

type RecoverRequest struct {
	RecoveryToken string `json:"recoveryToken,omitempty"`
}

// RegistrationResponse reports exactly what has and hasn't been done for a
// purchase. RecoveryToken is only ever populated on the response that first
// issued it; it is never readable again.
type RegistrationResponse struct {
	ID                    string    `json:"id,omitempty"`
	Domain                string    `json:"domain,omitempty"`
	QuoteID               string    `json:"quoteId,omitempty"`
	RegistrarOrderID      string    `json:"registrarOrderId,omitempty"`
	ZoneID                string    `json:"zoneId,omitempty"`
	Nameservers           []string  `json:"nameservers,omitempty"`
	NameserversConfigured bool      `json:"nameserversConfigured"`
	RecoveryToken         string    `json:"recoveryToken,omitempty"`
	TotalCharged          int64     `json:"totalCharged"`
	CreatedAt             time.Time `json:"createdAt,omitempty"`
	UpdatedAt             time.Time `json:"updatedAt,omitempty"`
}

type CreateZoneRequest struct {
	Domain string `json:"domain,omitempty"`
}

type ZoneResponse struct {
	ID          string    `json:"id,omitempty"`
	Domain      string    `json:"domain,omitempty"`
	Status      string    `json:"status,omitempty"`
	Nameservers []string  `json:"nameservers,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

type RecordRequest struct {
	Type     string `json:"type,omitempty"`
	Name     string `json:"name,omitempty"`
	Content  string `json:"content,omitempty"`
	TTL      int    `json:"ttl,omitempty"`
	Proxied  bool   `json:"proxied,omitempty"`
	Priority *int   `json:"priority,omitempty"`
}

type RecordUpdate struct {
	ID string `json:"id,omitempty"`
	RecordRequest
}

type RecordResponse struct {
	ID        string    `json:"id,omitempty"`
	ZoneID    string    `json:"zoneId,omitempty"`
	Type      string    `json:"type,omitempty"`
	Name      string    `json:"name,omitempty"`
	Content   string    `json:"content,omitempty"`
	TTL       int       `json:"ttl,omitempty"`
	Proxied   bool      `json:"proxied,omitempty"`
	Priority  *int      `json:"priority,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

type BatchRecordsRequest struct {
	Creates []RecordRequest `json:"creates,omitempty"`
	Updates []RecordUpdate  `json:"updates,omitempty"`
	Deletes []string        `json:"deletes,omitempty"`
}

func (b BatchRecordsRequest) OpCount() int {
	return len(b.Creates) + len(b.Updates) + len(b.Deletes)
}

type BatchRecordsResponse struct {
	Created []RecordResponse `json:"created,omitempty"`
	Updated []RecordResponse `json:"updated,omitempty"`
	Deleted []string         `json:"deleted,omitempty"`
}

type ErrorResponse struct {
	OK                bool   `json:"ok"`
	Status            int    `json:"status,omitempty"`
	Code              string `json:"code,omitempty"`
	Message           string `json:"message,omitempty"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

type SuccessResponse struct {
	OK   bool        `json:"ok"`
	Data interface{} `json:"data,omitempty"`
}
