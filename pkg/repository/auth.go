package repository

import (
	"github.com/jmoiron/sqlx"

	"custody_payments_back/models"
)

type AuthPostgres struct {
	db *sqlx.DB
}

func NewAuthPostgres(db *sqlx.DB) *AuthPostgres {
	return &AuthPostgres{db: db}
}

func (r *AuthPostgres) GetUserByID(id int64) (models.User, error) {
	var user models.User
	query := `SELECT id, username, apitoken, apisecretkey FROM users WHERE id = $1`
	err := r.db.Get(&user, query, id)
	return user, err
}

func (r *AuthPostgres) GetUserByAPIToken(token string) (models.User, error) {
	var user models.User
	query := `SELECT id, username, apitoken, apisecretkey FROM users WHERE apitoken = $1`
	err := r.db.Get(&user, query, token)
	return user, err
}

func (r *AuthPostgres) CreateUser(user models.User) (int64, error) {
	var id int64
	query := `
        INSERT INTO users (username, apitoken, apisecretkey)
        VALUES ($1, $2, $3)
        RETURNING id
    `
	err := r.db.QueryRow(
		query,
		user.Username,
		user.APIToken,
		user.APISecretKey,
	).Scan(&id)
	return id, err
}
