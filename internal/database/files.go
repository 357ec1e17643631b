package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"lite-drive/internal/models"
)

var ErrDuplicateFilePath = errors.New("a file record already points to this path")

const fileColumns = `
	id, owner_id, filename, original_filename, file_path, preview_path,
	file_type, size_mb, mime_type, created_at`

func scanFile(row pgx.Row) (*models.File, error) {
	var file models.File
	err := row.Scan(
		&file.ID,
		&file.OwnerID,
		&file.Filename,
		&file.OriginalFilename,
		&file.Path,
		&file.PreviewPath,
		&file.FileType,
		&file.SizeMB,
		&file.MimeType,
		&file.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &file, nil
}

type CreateFileParams struct {
	ID               string
	OwnerID          int64
	Filename         string
	OriginalFilename string
	Path             string
	PreviewPath      *string
	FileType         string
	SizeMB           float64
	MimeType         string
}

func (q *Queries) CreateFile(ctx context.Context, arg CreateFileParams) (*models.File, error) {
	query := `
		INSERT INTO files (id, owner_id, filename, original_filename, file_path, preview_path, file_type, size_mb, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING` + fileColumns

	file, err := scanFile(q.db.QueryRow(ctx, query,
		arg.ID,
		arg.OwnerID,
		arg.Filename,
		arg.OriginalFilename,
		arg.Path,
		arg.PreviewPath,
		arg.FileType,
		arg.SizeMB,
		arg.MimeType,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateFilePath
		}
		return nil, err
	}
	return file, nil
}

func (q *Queries) FileExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM files WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// GetFile matches on both id and owner, so a foreign id looks exactly like a
// missing one.
func (q *Queries) GetFile(ctx context.Context, id string, ownerID int64) (*models.File, error) {
	query := `SELECT` + fileColumns + ` FROM files WHERE id = $1 AND owner_id = $2`
	return scanFile(q.db.QueryRow(ctx, query, id, ownerID))
}

func (q *Queries) ListFiles(ctx context.Context, ownerID int64, limit int, offset int) ([]models.File, error) {
	query := `SELECT` + fileColumns + `
		FROM files
		WHERE owner_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := q.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if files == nil {
		return []models.File{}, nil
	}

	return files, nil
}

func (q *Queries) DeleteFile(ctx context.Context, id string, ownerID int64) (bool, error) {
	res, err := q.db.Exec(ctx, `DELETE FROM files WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}
