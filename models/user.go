package models

type User struct {
	ID           int64  `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	APIToken     string `json:"apitoken" db:"apitoken"`
	APISecretKey string `json:"-" db:"apisecretkey"`
}
