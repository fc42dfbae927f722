package repository

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"custody_payments_back/models"
)

type PaymentAddressPostgres struct {
	db *sqlx.DB
}

func NewPaymentAddressPostgres(db *sqlx.DB) *PaymentAddressPostgres {
	return &PaymentAddressPostgres{db: db}
}

func (r *PaymentAddressPostgres) Create(address models.PaymentAddress) (int64, error) {
	if address.Uuid == "" {
		address.Uuid = uuid.New().String()
	}

	var id int64
	query := `
        INSERT INTO payment_addresses (uuid, user_id, address, is_managed)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	err := r.db.QueryRow(query, address.Uuid, address.UserID, address.Address, address.IsManaged).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "create payment address")
	}

	// у каждого адреса сразу заводится аккаунт "default"
	_, err = r.db.Exec(`INSERT INTO accounts (payment_address_id, name) VALUES ($1, $2)`, id, models.DefaultAccountName)
	if err != nil {
		return 0, errors.Wrap(err, "create default account")
	}
	return id, nil
}

func (r *PaymentAddressPostgres) FindByID(id int64) (*models.PaymentAddress, error) {
	var address models.PaymentAddress
	query := `SELECT id, uuid, user_id, address, is_managed, created_at FROM payment_addresses WHERE id = $1`
	if err := r.db.Get(&address, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &address, nil
}

func (r *PaymentAddressPostgres) FindByUuid(uid string) (*models.PaymentAddress, error) {
	var address models.PaymentAddress
	query := `SELECT id, uuid, user_id, address, is_managed, created_at FROM payment_addresses WHERE uuid = $1`
	if err := r.db.Get(&address, query, uid); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &address, nil
}

func (r *PaymentAddressPostgres) FindByAddress(addr string) (*models.PaymentAddress, error) {
	var address models.PaymentAddress
	query := `SELECT id, uuid, user_id, address, is_managed, created_at FROM payment_addresses WHERE address = $1`
	if err := r.db.Get(&address, query, addr); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &address, nil
}

type cascadeStatement struct {
	query string
	arg   interface{}
}

// порядок важен: сначала зависимые таблицы, сам адрес последним
func cascadeDeleteStatements(address models.PaymentAddress) []cascadeStatement {
	return []cascadeStatement{
		{`DELETE FROM notifications WHERE monitored_address_id IN (SELECT id FROM monitored_addresses WHERE address = $1)`, address.Address},
		{`DELETE FROM monitored_addresses WHERE address = $1`, address.Address},
		{`DELETE FROM txos WHERE payment_address_id = $1`, address.ID},
		{`DELETE FROM sends WHERE payment_address_id = $1`, address.ID},
		{`DELETE FROM accounts WHERE payment_address_id = $1`, address.ID},
		{`DELETE FROM payment_addresses WHERE id = $1`, address.ID},
	}
}

// Delete убирает адрес вместе со всем зависимым состоянием одной транзакцией
func (r *PaymentAddressPostgres) Delete(address models.PaymentAddress) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, st := range cascadeDeleteStatements(address) {
		if _, err := tx.Exec(st.query, st.arg); err != nil {
			return errors.Wrap(err, "cascade delete payment address")
		}
	}

	return tx.Commit()
}
