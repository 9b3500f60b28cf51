package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/deptshare-api/internal/models"
)

const shareLinkColumns = `id, token, file_item_id, folder_id, share_type, created_by, created_at, expires_at, email, password_hash, max_downloads, download_count, is_active`

// shareLinkRow mirrors the share_links table where the target is split across two nullable columns.
type shareLinkRow struct {
	ID            string     `db:"id"`
	Token         string     `db:"token"`
	FileItemID    *string    `db:"file_item_id"`
	FolderID      *string    `db:"folder_id"`
	ShareType     string     `db:"share_type"`
	CreatedBy     string     `db:"created_by"`
	CreatedAt     time.Time  `db:"created_at"`
	ExpiresAt     *time.Time `db:"expires_at"`
	Email         *string    `db:"email"`
	PasswordHash  *string    `db:"password_hash"`
	MaxDownloads  *int       `db:"max_downloads"`
	DownloadCount int        `db:"download_count"`
	IsActive      bool       `db:"is_active"`
}

func (row shareLinkRow) toModel() (*models.ShareLink, error) {
	target, err := models.NewShareTarget(row.FileItemID, row.FolderID)
	if err != nil {
		return nil, fmt.Errorf("share link %s: %w", row.ID, err)
	}
	return &models.ShareLink{
		ID:            row.ID,
		Token:         row.Token,
		Target:        target,
		ShareType:     models.ShareType(row.ShareType),
		CreatedBy:     row.CreatedBy,
		CreatedAt:     row.CreatedAt,
		ExpiresAt:     row.ExpiresAt,
		Email:         row.Email,
		PasswordHash:  row.PasswordHash,
		MaxDownloads:  row.MaxDownloads,
		DownloadCount: row.DownloadCount,
		IsActive:      row.IsActive,
	}, nil
}

func shareLinkToRow(link *models.ShareLink) (shareLinkRow, error) {
	if err := link.Target.Validate(); err != nil {
		return shareLinkRow{}, err
	}
	row := shareLinkRow{
		ID:            link.ID,
		Token:         link.Token,
		ShareType:     string(link.ShareType),
		CreatedBy:     link.CreatedBy,
		CreatedAt:     link.CreatedAt,
		ExpiresAt:     link.ExpiresAt,
		Email:         link.Email,
		PasswordHash:  link.PasswordHash,
		MaxDownloads:  link.MaxDownloads,
		DownloadCount: link.DownloadCount,
		IsActive:      link.IsActive,
	}
	id := link.Target.ID
	if link.Target.IsFile() {
		row.FileItemID = &id
	} else {
		row.FolderID = &id
	}
	return row, nil
}

// ShareLinkRepository persists share links.
type ShareLinkRepository struct {
	db *sqlx.DB
}

// NewShareLinkRepository constructs the repository.
func NewShareLinkRepository(db *sqlx.DB) *ShareLinkRepository {
	return &ShareLinkRepository{db: db}
}

// Create inserts a link. The target must name exactly one file or folder.
func (r *ShareLinkRepository) Create(ctx context.Context, link *models.ShareLink) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	row, err := shareLinkToRow(link)
	if err != nil {
		return err
	}
	const query = `INSERT INTO share_links (` + shareLinkColumns + `)
	VALUES (:id, :token, :file_item_id, :folder_id, :share_type, :created_by, :created_at, :expires_at, :email, :password_hash, :max_downloads, :download_count, :is_active)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create share link: %w", err)
	}
	return nil
}

// FindByToken returns a link by its token.
func (r *ShareLinkRepository) FindByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	return r.findOne(ctx, `SELECT `+shareLinkColumns+` FROM share_links WHERE token = $1`, token)
}

// FindByID returns a link by id.
func (r *ShareLinkRepository) FindByID(ctx context.Context, id string) (*models.ShareLink, error) {
	return r.findOne(ctx, `SELECT `+shareLinkColumns+` FROM share_links WHERE id = $1`, id)
}

func (r *ShareLinkRepository) findOne(ctx context.Context, query string, arg interface{}) (*models.ShareLink, error) {
	var row shareLinkRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find share link: %w", err)
	}
	return row.toModel()
}

// ListByCreator returns links created by a user, newest first. An empty creator lists all links.
func (r *ShareLinkRepository) ListByCreator(ctx context.Context, creatorID string) ([]models.ShareLink, error) {
	query := `SELECT ` + shareLinkColumns + ` FROM share_links`
	var args []interface{}
	if creatorID != "" {
		query += ` WHERE created_by = $1`
		args = append(args, creatorID)
	}
	query += ` ORDER BY created_at DESC`
	var rows []shareLinkRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list share links: %w", err)
	}
	links := make([]models.ShareLink, 0, len(rows))
	for _, row := range rows {
		link, err := row.toModel()
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, nil
}

// IncrementDownloads consumes one download and returns the new count. The update only
// matches active links below their ceiling, so a lost race surfaces as sql.ErrNoRows.
func (r *ShareLinkRepository) IncrementDownloads(ctx context.Context, id string) (int, error) {
	const query = `UPDATE share_links SET download_count = download_count + 1
	WHERE id = $1 AND is_active = TRUE AND (max_downloads IS NULL OR download_count < max_downloads)
	RETURNING download_count`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("increment share downloads: %w", err)
	}
	return count, nil
}

// Deactivate turns off a single link.
func (r *ShareLinkRepository) Deactivate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE share_links SET is_active = FALSE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deactivate share link: %w", err)
	}
	return nil
}

// DeactivateForTarget turns off every active link pointing at the target and returns how many changed.
func (r *ShareLinkRepository) DeactivateForTarget(ctx context.Context, target models.ShareTarget) (int64, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}
	column := "folder_id"
	if target.IsFile() {
		column = "file_item_id"
	}
	res, err := r.db.ExecContext(ctx, `UPDATE share_links SET is_active = FALSE WHERE `+column+` = $1 AND is_active = TRUE`, target.ID)
	if err != nil {
		return 0, fmt.Errorf("deactivate target share links: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}
