package db

type Database interface {
	CreateQuote(quote *Quote) error
	GetQuote(id string) (Quote, error)

	CreateRegistration(reg *Registration) error
	GetRegistrationByDomain(domain string) (Registration, error)
	GetRegistrationByTokenHash(hash string) (Registration, error)
	ListRegistrations(owner string) ([]Registration, error)
	SaveRegistration(reg *Registration) error

	CreateZone(zone *Zone) error
	GetZone(id string) (Zone, error)
	GetZoneByDomain(domain string) (Zone, error)
	ListZones(owner string) ([]Zone, error)
	SaveZone(zone *Zone) error
	DeleteZone(id string) error

	CreateRecord(record *Record) error
	GetRecord(id string) (Record, error)
	ListRecords(zoneID string) ([]Record, error)
	SaveRecord(record *Record) error
	DeleteRecord(id string) error

	// Transaction runs fn against a transactional view of the store; batch
	// record applies use it so local state moves in one step.
	Transaction(fn func(tx Database) error) error
}
