package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-media-share/internal/model"
)

const mediaColumns = `id::text, owner_id::text, file_name, file_path, mime_type, size,
	allowed_user_ids::text[], created_at`

type MediaRepository struct {
	pool *pgxpool.Pool
}

func NewMediaRepository(pool *pgxpool.Pool) *MediaRepository {
	return &MediaRepository{pool: pool}
}

func scanMedia(row pgx.Row) (model.Media, error) {
	var m model.Media
	err := row.Scan(&m.ID, &m.OwnerID, &m.FileName, &m.FilePath, &m.MimeType, &m.Size,
		&m.AllowedUserIDs, &m.CreatedAt)
	if m.AllowedUserIDs == nil {
		m.AllowedUserIDs = []string{}
	}
	return m, err
}

func (r *MediaRepository) Create(ctx context.Context, m model.Media) error {
	allowed := m.AllowedUserIDs
	if allowed == nil {
		allowed = []string{}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO media (id, owner_id, file_name, file_path, mime_type, size, allowed_user_ids, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::uuid[], $8)`,
		m.ID, m.OwnerID, m.FileName, m.FilePath, m.MimeType, m.Size, allowed, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create media: %w", err)
	}
	return nil
}

func (r *MediaRepository) FindByID(ctx context.Context, id string) (model.Media, error) {
	m, err := scanMedia(r.pool.QueryRow(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE id = $1`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Media{}, model.ErrMediaNotFound
	}
	if err != nil {
		return model.Media{}, fmt.Errorf("find media by id: %w", err)
	}
	return m, nil
}

// FindAccessible lists media owned by userID or shared with it, newest first.
func (r *MediaRepository) FindAccessible(ctx context.Context, userID string) ([]model.Media, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+mediaColumns+` FROM media
		 WHERE owner_id = $1 OR $1::uuid = ANY(allowed_user_ids)
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("find accessible media: %w", err)
	}
	defer rows.Close()

	items := make([]model.Media, 0)
	for rows.Next() {
		m, scanErr := scanMedia(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan media: %w", scanErr)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// SetAllowedUsers replaces the grant list in a single statement.
func (r *MediaRepository) SetAllowedUsers(ctx context.Context, id string, userIDs []string) (model.Media, error) {
	if userIDs == nil {
		userIDs = []string{}
	}

	m, err := scanMedia(r.pool.QueryRow(ctx,
		`UPDATE media SET allowed_user_ids = $2::uuid[] WHERE id = $1
		 RETURNING `+mediaColumns, id, userIDs))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Media{}, model.ErrMediaNotFound
	}
	if err != nil {
		return model.Media{}, fmt.Errorf("set allowed users: %w", err)
	}
	return m, nil
}

func (r *MediaRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrMediaNotFound
	}
	return nil
}

// ReferencedPaths returns the subset of paths that some media record points at.
func (r *MediaRepository) ReferencedPaths(ctx context.Context, paths []string) (map[string]struct{}, error) {
	referenced := make(map[string]struct{}, len(paths))
	if len(paths) == 0 {
		return referenced, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT file_path FROM media WHERE file_path = ANY($1)`, paths)
	if err != nil {
		return nil, fmt.Errorf("find referenced paths: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		referenced[path] = struct{}{}
	}
	return referenced, rows.Err()
}
