package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"custody_payments_back/models"
)

type TXOPostgres struct {
	db *sqlx.DB
}

func NewTXOPostgres(db *sqlx.DB) *TXOPostgres {
	return &TXOPostgres{db: db}
}

const txoColumns = `id, txid, n, payment_address_id, account_id, type, spent, green, script, amount, updated_at`

func (r *TXOPostgres) Create(txo models.TXO) (int64, error) {
	if txo.TXID == "" {
		return 0, errors.New("txid is required")
	}
	if txo.N < 0 {
		return 0, errors.New("n is required")
	}
	if txo.Type == 0 {
		txo.Type = models.TXOTypeConfirmed
	}

	var id int64
	query := `
        INSERT INTO txos (txid, n, payment_address_id, account_id, type, spent, green, script, amount, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
        RETURNING id
    `
	err := r.db.QueryRow(query, txo.TXID, txo.N, txo.PaymentAddressID, txo.AccountID,
		txo.Type, txo.Spent, txo.Green, txo.Script, txo.AmountSat).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "create txo")
	}
	return id, nil
}

func (r *TXOPostgres) FindByID(id int64) (*models.TXO, error) {
	var txo models.TXO
	query := `SELECT ` + txoColumns + ` FROM txos WHERE id = $1`
	if err := r.db.Get(&txo, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &txo, nil
}

func (r *TXOPostgres) FindByTXID(txid string) ([]models.TXO, error) {
	var txos []models.TXO
	query := `SELECT ` + txoColumns + ` FROM txos WHERE txid = $1 ORDER BY n`
	err := r.db.Select(&txos, query, txid)
	return txos, err
}

func (r *TXOPostgres) FindByTXIDAndOffset(txid string, n int) (*models.TXO, error) {
	var txo models.TXO
	query := `SELECT ` + txoColumns + ` FROM txos WHERE txid = $1 AND n = $2`
	if err := r.db.Get(&txo, query, txid, n); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &txo, nil
}

func (r *TXOPostgres) FindByPaymentAddress(paymentAddressID int64, filter TXOFilter) ([]models.TXO, error) {
	conditions := []string{"payment_address_id = ?"}
	args := []interface{}{paymentAddressID}

	if len(filter.Types) > 0 {
		conditions = append(conditions, "type IN (?)")
		args = append(args, filter.Types)
	}
	if filter.Unspent != nil {
		conditions = append(conditions, "spent = ?")
		args = append(args, !*filter.Unspent)
	}
	if filter.Green != nil {
		conditions = append(conditions, "green = ?")
		args = append(args, *filter.Green)
	}

	query := `SELECT ` + txoColumns + ` FROM txos WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY id`
	query, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}

	var txos []models.TXO
	err = r.db.Select(&txos, r.db.Rebind(query), inArgs...)
	return txos, err
}

func (r *TXOPostgres) FindByAccount(accountID int64, unspent *bool) ([]models.TXO, error) {
	query := `SELECT ` + txoColumns + ` FROM txos WHERE account_id = $1`
	args := []interface{}{accountID}
	if unspent != nil {
		query += ` AND spent = $2`
		args = append(args, !*unspent)
	}
	query += ` ORDER BY id`

	var txos []models.TXO
	err := r.db.Select(&txos, query, args...)
	return txos, err
}

func buildTXOUpdateSet(update TXOUpdate) (string, []interface{}) {
	setValues := []string{}
	args := []interface{}{}

	appendSet := func(column string, value interface{}) {
		setValues = append(setValues, fmt.Sprintf("%s = $%d", column, len(args)+1))
		args = append(args, value)
	}

	if update.AccountID != nil {
		appendSet("account_id", *update.AccountID)
	}
	if update.Type != nil {
		appendSet("type", *update.Type)
	}
	if update.Spent != nil {
		appendSet("spent", *update.Spent)
	}
	if update.Green != nil {
		appendSet("green", *update.Green)
	}
	if update.AmountSat != nil {
		appendSet("amount", *update.AmountSat)
	}
	if update.Script != nil {
		appendSet("script", *update.Script)
	}
	setValues = append(setValues, "updated_at = NOW()")

	return strings.Join(setValues, ", "), args
}

func (r *TXOPostgres) Update(id int64, update TXOUpdate) error {
	set, args := buildTXOUpdateSet(update)
	query := fmt.Sprintf(`UPDATE txos SET %s WHERE id = $%d`, set, len(args)+1)
	args = append(args, id)
	_, err := r.db.Exec(query, args...)
	return errors.Wrap(err, "update txo")
}

// UpdateByTXOIdentifiers обновляет набор выходов по их идентификаторам "txid:n"
func (r *TXOPostgres) UpdateByTXOIdentifiers(identifiers []string, update TXOUpdate) error {
	if len(identifiers) == 0 {
		return nil
	}

	set, args := buildTXOUpdateSet(update)

	whereParts := []string{}
	for _, identifier := range identifiers {
		pieces := strings.SplitN(identifier, ":", 2)
		if len(pieces) != 2 {
			return fmt.Errorf("invalid txo identifier: %s", identifier)
		}
		whereParts = append(whereParts, fmt.Sprintf("(txid = $%d AND n = $%d)", len(args)+1, len(args)+2))
		args = append(args, pieces[0], pieces[1])
	}

	query := fmt.Sprintf(`UPDATE txos SET %s WHERE %s`, set, strings.Join(whereParts, " OR "))
	_, err := r.db.Exec(query, args...)
	return errors.Wrap(err, "update txos by identifiers")
}

// TransferAccounts переводит выход между аккаунтами; Spent-выход не переводится
func (r *TXOPostgres) TransferAccounts(txoID int64, fromAccountID int64, toAccountID int64, allowedTypes []models.TXOType) (bool, error) {
	if allowedTypes == nil {
		allowedTypes = []models.TXOType{models.TXOTypeUnconfirmed, models.TXOTypeConfirmed}
	}

	query, args, err := sqlx.In(
		`UPDATE txos SET account_id = ?, updated_at = NOW() WHERE id = ? AND account_id = ? AND type IN (?)`,
		toAccountID, txoID, fromAccountID, allowedTypes)
	if err != nil {
		return false, err
	}

	res, err := r.db.Exec(r.db.Rebind(query), args...)
	if err != nil {
		return false, errors.Wrap(err, "transfer txo")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *TXOPostgres) DeleteSpentOlderThan(horizon time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM txos WHERE spent = true AND updated_at < $1`, horizon)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *TXOPostgres) DeleteByAccountID(accountID int64) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM txos WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *TXOPostgres) DeleteByTXID(txid string) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM txos WHERE txid = $1`, txid)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
