package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type database struct {
	db *gorm.DB
}

// New creates a new database connection
func New(ctx context.Context, dialect string, dsn string, config *gorm.Config) (Database, error) {
	if config == nil {
		config = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	}
	config.TranslateError = true

	var db *gorm.DB
	var err error

	if dialect == "sqlite" {
		db, err = gorm.Open(sqlite.Open(dsn), config)
		if err == nil {
			db.Exec("PRAGMA foreign_keys = ON")
		}
	} else if dialect == "mysql" {
		db, err = gorm.Open(mysql.Open(dsn), config)
	} else {
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}

	if err != nil {
		return nil, err
	}

	db = db.WithContext(ctx)

	if err := db.AutoMigrate(
		&Quote{},
		&Registration{},
		&Zone{},
		&Record{},
	); err != nil {
		return nil, err
	}

	return &database{db: db}, nil
}

// NewLogger maps the app log level onto gorm's; anything below debug keeps
// the query log silent.
func NewLogger(level string) logger.Interface {
	switch level {
	case "trace", "debug":
		return logger.Default.LogMode(logger.Info)
	default:
		return logger.Default.LogMode(logger.Silent)
	}
}

// IsDuplicate reports whether err is a unique-constraint violation. Domain
// uniqueness races between concurrent registrations are resolved here, by the
// store's index, not by any locking above it.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if err == gorm.ErrDuplicatedKey {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

func (d *database) CreateQuote(quote *Quote) error {
	return d.db.Create(quote).Error
}

func (d *database) GetQuote(id string) (Quote, error) {
	quote := Quote{}
	sql := d.db.Where("id = ?", id).Limit(1).Find(&quote)
	return quote, sql.Error
}

func (d *database) CreateRegistration(reg *Registration) error {
	return d.db.Create(reg).Error
}

func (d *database) GetRegistrationByDomain(domain string) (Registration, error) {
	reg := Registration{}
	sql := d.db.Where("domain = ?", domain).Limit(1).Find(&reg)
	return reg, sql.Error
}

func (d *database) GetRegistrationByTokenHash(hash string) (Registration, error) {
	reg := Registration{}
	sql := d.db.Where("recovery_token_hash = ?", hash).Limit(1).Find(&reg)
	return reg, sql.Error
}

func (d *database) ListRegistrations(owner string) ([]Registration, error) {
	var regs []Registration
	sql := d.db.Where("owner = ?", owner).Order("created_at").Find(&regs)
	return regs, sql.Error
}

func (d *database) SaveRegistration(reg *Registration) error {
	return d.db.Save(reg).Error
}

func (d *database) CreateZone(zone *Zone) error {
	return d.db.Create(zone).Error
}

func (d *database) GetZone(id string) (Zone, error) {
	zone := Zone{}
	sql := d.db.Where("id = ?", id).Limit(1).Find(&zone)
	return zone, sql.Error
}

func (d *database) GetZoneByDomain(domain string) (Zone, error) {
	zone := Zone{}
	sql := d.db.Where("domain = ?", domain).Limit(1).Find(&zone)
	return zone, sql.Error
}

func (d *database) ListZones(owner string) ([]Zone, error) {
	var zones []Zone
	sql := d.db.Where("owner = ?", owner).Order("created_at").Find(&zones)
	return zones, sql.Error
}

func (d *database) SaveZone(zone *Zone) error {
	return d.db.Save(zone).Error
}

func (d *database) DeleteZone(id string) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("zone_id = ?", id).Delete(&Record{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Zone{}).Error
	})
}

func (d *database) CreateRecord(record *Record) error {
	return d.db.Create(record).Error
}

func (d *database) GetRecord(id string) (Record, error) {
	record := Record{}
	sql := d.db.Where("id = ?", id).Limit(1).Find(&record)
	return record, sql.Error
}

func (d *database) ListRecords(zoneID string) ([]Record, error) {
	var records []Record
	sql := d.db.Where("zone_id = ?", zoneID).Order("created_at").Find(&records)
	return records, sql.Error
}

func (d *database) SaveRecord(record *Record) error {
	return d.db.Save(record).Error
}

func (d *database) DeleteRecord(id string) error {
	return d.db.Where("id = ?", id).Delete(&Record{}).Error
}

func (d *database) Transaction(fn func(tx Database) error) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		return fn(&database{db: tx})
	})
}
