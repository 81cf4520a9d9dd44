package db

import (
	"sort"
	"strings"
	"time"
)

// Quote is immutable once created; expiry is decided by time comparison at
// read time, never by a background sweep.
type Quote struct {
	ID            string `gorm:"primarykey"`
	Domain        string `gorm:"index"`
	Years         int
	RegistrarCost int64
	Margin        int64
	Total         int64
	Owner         string `gorm:"index"`
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

func (q Quote) Expired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}

// Registration is the saga's entire state machine: ZoneID, RecoveryTokenHash
// and NameserversConfigured are the state, every intermediate shape is
// queryable. Rows are never deleted.
type Registration struct {
	ID                    string  `gorm:"primarykey"`
	Domain                string  `gorm:"uniqueIndex"`
	QuoteID               string  `gorm:"uniqueIndex"`
	RecoveryTokenHash     *string `gorm:"uniqueIndex"`
	RegistrarOrderID      string
	ZoneID                *string
	NameserversConfigured bool
	Owner                 string `gorm:"index"`
	TotalCharged          int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Zone struct {
	ID             string `gorm:"primarykey"`
	ProviderZoneID string `gorm:"uniqueIndex"`
	Domain         string `gorm:"uniqueIndex"`
	Owner          string `gorm:"index"`
	Status         string
	Nameservers    string `gorm:"type:text"` // Intentionally denormalized; order preserved
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (z Zone) NameserverList() []string {
	return SplitValues(z.Nameservers)
}

type Record struct {
	ID               string `gorm:"primarykey"`
	ProviderRecordID string `gorm:"index"`
	ZoneID           string `gorm:"index"`
	Type             string
	Name             string
	Content          string
	TTL              int
	Proxied          bool
	Priority         *int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func JoinValues(values []string) string {
	return strings.Join(values, ",")
}

func SplitValues(values string) []string {
	if values == "" {
		return nil
	}
	return strings.Split(values, ",")
}

// SortedValues is JoinValues with a defined order, for set comparisons.
func SortedValues(values []string) string {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
