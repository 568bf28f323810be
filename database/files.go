package database

import (
	"context"
	"time"

	"github.com/noisersup/filestore-api/models"

	"github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

const fileColumns = "id, user_id, name, kind, parent_id, is_public, local_path, created_at"

// Adds file entry to database.
// The parent reference is validated in the same transaction as the insert:
// it must either be the root sentinel or point at an existing folder.
func (db *Database) CreateFile(ctx context.Context, f *models.File) error {
	if f.Id == uuid.Nil {
		f.Id = uuid.New()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	return crdbpgx.ExecuteTx(ctx, db.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if !f.Parent.IsRoot() {
			var kind string
			err := tx.QueryRow(ctx, "SELECT kind FROM files WHERE id=$1;", f.Parent.Id()).Scan(&kind)
			if err != nil {
				if err == pgx.ErrNoRows {
					return ErrParentNotFound
				}
				return err
			}
			if kind != models.KindFolder {
				return ErrParentNotFolder
			}
		}

		sqlFormula := "INSERT INTO files (" + fileColumns + ") VALUES ($1,$2,$3,$4,$5,$6,$7,$8);"
		_, err := tx.Exec(ctx, sqlFormula,
			f.Id, f.UserId, f.Name, f.Kind, f.Parent.Id(), f.IsPublic, f.LocalPath, f.CreatedAt)
		return err
	})
}

// Get metadata of specified file from database
func (db *Database) GetFile(ctx context.Context, id uuid.UUID) (*models.File, error) {
	row := db.pool.QueryRow(ctx, "SELECT "+fileColumns+" FROM files WHERE id=$1;", id)
	return scanFile(row)
}

// Like GetFile but scoped to an owner, so a non-owner asking for somebody
// else's record gets ErrNotFound instead of a hint that it exists.
func (db *Database) GetUserFile(ctx context.Context, id, userId uuid.UUID) (*models.File, error) {
	row := db.pool.QueryRow(ctx, "SELECT "+fileColumns+" FROM files WHERE id=$1 AND user_id=$2;", id, userId)
	return scanFile(row)
}

// Flips the visibility flag of an owner's file and returns the updated
// record. Setting the flag to its current value is not an error.
func (db *Database) SetPublic(ctx context.Context, id, userId uuid.UUID, public bool) (*models.File, error) {
	sqlFormula := "UPDATE files SET is_public=$3 WHERE id=$1 AND user_id=$2 RETURNING " + fileColumns + ";"

	var f *models.File
	err := crdbpgx.ExecuteTx(ctx, db.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var scanErr error
		f, scanErr = scanFile(tx.QueryRow(ctx, sqlFormula, id, userId, public))
		return scanErr
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Lists one page of an owner's files under the given parent.
// No ORDER BY is applied: the page split follows storage order, which is
// not guaranteed stable across pages if the table mutates in between.
func (db *Database) ListFiles(ctx context.Context, userId uuid.UUID, parent models.ParentRef, page, pageSize int) ([]models.File, error) {
	sqlFormula := "SELECT " + fileColumns + " FROM files WHERE user_id=$1 AND parent_id=$2 OFFSET $3 LIMIT $4;"
	rows, err := db.pool.Query(ctx, sqlFormula, userId, parent.Id(), page*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

func (db *Database) CountFiles(ctx context.Context) (int64, error) {
	var n int64
	err := db.pool.QueryRow(ctx, "SELECT count(*) FROM files;").Scan(&n)
	return n, err
}

func scanFile(row pgx.Row) (*models.File, error) {
	f := models.File{}
	var parentId uuid.UUID
	err := row.Scan(&f.Id, &f.UserId, &f.Name, &f.Kind, &parentId, &f.IsPublic, &f.LocalPath, &f.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	f.Parent = models.FolderRef(parentId)
	return &f, nil
}
