package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"custody_payments_back/models"
)

type AccountPostgres struct {
	db *sqlx.DB
}

func NewAccountPostgres(db *sqlx.DB) *AccountPostgres {
	return &AccountPostgres{db: db}
}

func (r *AccountPostgres) Create(account models.Account) (int64, error) {
	var id int64
	query := `INSERT INTO accounts (payment_address_id, name) VALUES ($1, $2) RETURNING id`
	err := r.db.QueryRow(query, account.PaymentAddressID, account.Name).Scan(&id)
	return id, err
}

func (r *AccountPostgres) FindByID(id int64) (*models.Account, error) {
	var account models.Account
	query := `SELECT id, payment_address_id, name FROM accounts WHERE id = $1`
	if err := r.db.Get(&account, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountPostgres) FindByName(paymentAddressID int64, name string) (*models.Account, error) {
	var account models.Account
	query := `SELECT id, payment_address_id, name FROM accounts WHERE payment_address_id = $1 AND name = $2`
	if err := r.db.Get(&account, query, paymentAddressID, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountPostgres) FindByPaymentAddress(paymentAddressID int64) ([]models.Account, error) {
	var accounts []models.Account
	query := `SELECT id, payment_address_id, name FROM accounts WHERE payment_address_id = $1 ORDER BY id`
	err := r.db.Select(&accounts, query, paymentAddressID)
	return accounts, err
}
