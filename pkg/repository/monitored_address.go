package repository

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"custody_payments_back/models"
)

type MonitoredAddressPostgres struct {
	db *sqlx.DB
}

func NewMonitoredAddressPostgres(db *sqlx.DB) *MonitoredAddressPostgres {
	return &MonitoredAddressPostgres{db: db}
}

const monitorColumns = `id, uuid, address, monitor_type, user_id, active, webhook_endpoint`

func (r *MonitoredAddressPostgres) Create(monitor models.MonitoredAddress) (int64, error) {
	if monitor.Uuid == "" {
		monitor.Uuid = uuid.New().String()
	}

	var id int64
	query := `
        INSERT INTO monitored_addresses (uuid, address, monitor_type, user_id, active, webhook_endpoint)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	err := r.db.QueryRow(query, monitor.Uuid, monitor.Address, monitor.MonitorType,
		monitor.UserID, monitor.Active, monitor.WebhookEndpoint).Scan(&id)
	return id, err
}

func (r *MonitoredAddressPostgres) FindByUuid(uid string) (*models.MonitoredAddress, error) {
	var monitor models.MonitoredAddress
	query := `SELECT ` + monitorColumns + ` FROM monitored_addresses WHERE uuid = $1`
	if err := r.db.Get(&monitor, query, uid); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &monitor, nil
}

func (r *MonitoredAddressPostgres) FindActiveByAddresses(addresses []string) ([]models.MonitoredAddress, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT `+monitorColumns+` FROM monitored_addresses WHERE active = true AND address IN (?) ORDER BY id`, addresses)
	if err != nil {
		return nil, err
	}

	var monitors []models.MonitoredAddress
	err = r.db.Select(&monitors, r.db.Rebind(query), args...)
	return monitors, err
}
