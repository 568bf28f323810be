/*
	Database user operations
*/
package database

import (
	"context"
	"strings"

	"github.com/noisersup/filestore-api/models"

	"github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

/*
	Registers new user
	!!! remember to provide the sha1 hex digest as passwordHash, never the plaintext !!!
*/
func (db *Database) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	user := models.User{
		Id:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
	}

	sqlFormula := "INSERT INTO users (id, email, password) VALUES ($1,$2,$3);"
	err := crdbpgx.ExecuteTx(ctx, db.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, sqlFormula, user.Id, user.Email, user.PasswordHash)
		return err
	})
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value") {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return &user, nil
}

func (db *Database) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u := models.User{}
	sqlFormula := "SELECT id, email, password FROM users WHERE email=$1;"
	err := db.pool.QueryRow(ctx, sqlFormula, email).Scan(&u.Id, &u.Email, &u.PasswordHash)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (db *Database) GetUserById(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u := models.User{}
	sqlFormula := "SELECT id, email, password FROM users WHERE id=$1;"
	err := db.pool.QueryRow(ctx, sqlFormula, id).Scan(&u.Id, &u.Email, &u.PasswordHash)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (db *Database) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := db.pool.QueryRow(ctx, "SELECT count(*) FROM users;").Scan(&n)
	return n, err
}
