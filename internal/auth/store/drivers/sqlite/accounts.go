package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/internal/auth/store"
)

const accountColumns = `id, country_code, phone_number, display_name, role, is_active, is_verified,
	last_login, refresh_token,
	media_key, media_url, media_original_name, media_mime_type, media_size, media_width, media_height, media_uploaded_at,
	created_at, updated_at`

// accountsRepo serves one variant. table is always domain.Variant.Collection()
// and is never taken from user input.
type accountsRepo struct {
	q       dbtx
	table   string
	variant domain.Variant
}

type accountRow struct {
	ID           string
	CountryCode  string
	PhoneNumber  string
	DisplayName  string
	Role         string
	IsActive     bool
	IsVerified   bool
	LastLogin    sql.NullInt64
	RefreshToken sql.NullString

	MediaKey          sql.NullString
	MediaURL          sql.NullString
	MediaOriginalName sql.NullString
	MediaMimeType     sql.NullString
	MediaSize         sql.NullInt64
	MediaWidth        sql.NullInt64
	MediaHeight       sql.NullInt64
	MediaUploadedAt   sql.NullInt64

	CreatedAt int64
	UpdatedAt int64
}

func scanAccount(row *sql.Row) (accountRow, error) {
	var r accountRow
	err := row.Scan(
		&r.ID, &r.CountryCode, &r.PhoneNumber, &r.DisplayName, &r.Role, &r.IsActive, &r.IsVerified,
		&r.LastLogin, &r.RefreshToken,
		&r.MediaKey, &r.MediaURL, &r.MediaOriginalName, &r.MediaMimeType, &r.MediaSize, &r.MediaWidth, &r.MediaHeight, &r.MediaUploadedAt,
		&r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

func (r *accountsRepo) mapAccount(row accountRow) domain.Account {
	a := domain.Account{
		ID:           row.ID,
		Variant:      r.variant,
		Identity:     domain.Identity{CountryCode: row.CountryCode, PhoneNumber: row.PhoneNumber},
		DisplayName:  row.DisplayName,
		Role:         domain.Role(row.Role),
		IsActive:     row.IsActive,
		IsVerified:   row.IsVerified,
		LastLogin:    mapNullMillisPtr(row.LastLogin),
		RefreshToken: mapNullString(row.RefreshToken),
		CreatedAt:    fromMillis(row.CreatedAt),
		UpdatedAt:    fromMillis(row.UpdatedAt),
	}
	if row.MediaKey.Valid {
		a.Media = &domain.Media{
			Key:          row.MediaKey.String,
			URL:          mapNullString(row.MediaURL),
			OriginalName: mapNullString(row.MediaOriginalName),
			MimeType:     mapNullString(row.MediaMimeType),
			Size:         row.MediaSize.Int64,
			Width:        int(row.MediaWidth.Int64),
			Height:       int(row.MediaHeight.Int64),
		}
		if row.MediaUploadedAt.Valid {
			a.Media.UploadedAt = fromMillis(row.MediaUploadedAt.Int64)
		}
	}
	return a
}

func (r *accountsRepo) get(ctx context.Context, where string, args ...any) (domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s`, accountColumns, r.table, where)
	row, err := scanAccount(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return r.mapAccount(row), nil
}

func (r *accountsRepo) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return r.get(ctx, `id = ?`, id)
}

func (r *accountsRepo) GetByIdentity(ctx context.Context, identity domain.Identity) (domain.Account, error) {
	return r.get(ctx, `country_code = ? AND phone_number = ?`, identity.CountryCode, identity.PhoneNumber)
}

func (r *accountsRepo) Create(ctx context.Context, a domain.Account) error {
	query := fmt.Sprintf(`INSERT INTO %s (
		id, country_code, phone_number, display_name, role, is_active, is_verified,
		last_login, refresh_token, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, r.table)

	_, err := r.q.ExecContext(ctx, query,
		a.ID, a.Identity.CountryCode, a.Identity.PhoneNumber, a.DisplayName, string(a.Role),
		a.IsActive, a.IsVerified,
		mapOptionalMillis(a.LastLogin), mapStringNull(a.RefreshToken),
		toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
	)
	if err != nil {
		return mapConstraint(err)
	}
	if a.Media != nil {
		return r.SetMedia(ctx, a.ID, a.Media, a.UpdatedAt)
	}
	return nil
}

// exec runs an update and reports store.ErrNotFound when it touched no row.
func (r *accountsRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, fmt.Sprintf(query, r.table), args...)
	if err != nil {
		return mapConstraint(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *accountsRepo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, `UPDATE %s SET last_login = ?, updated_at = ? WHERE id = ?`,
		toMillis(at), toMillis(at), id)
}

func (r *accountsRepo) SetRefreshToken(ctx context.Context, id, fingerprint string, at time.Time) error {
	return r.exec(ctx, `UPDATE %s SET refresh_token = ?, updated_at = ? WHERE id = ?`,
		mapStringNull(fingerprint), toMillis(at), id)
}

func (r *accountsRepo) RotateRefreshToken(ctx context.Context, id, current, next string, at time.Time) error {
	return r.exec(ctx, `UPDATE %s SET refresh_token = ?, updated_at = ? WHERE id = ? AND refresh_token = ?`,
		next, toMillis(at), id, current)
}

func (r *accountsRepo) ClearRefreshToken(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, `UPDATE %s SET refresh_token = NULL, updated_at = ? WHERE id = ?`,
		toMillis(at), id)
}

func (r *accountsRepo) UpdateIdentity(ctx context.Context, id string, identity domain.Identity, at time.Time) error {
	return r.exec(ctx, `UPDATE %s SET country_code = ?, phone_number = ?, updated_at = ? WHERE id = ?`,
		identity.CountryCode, identity.PhoneNumber, toMillis(at), id)
}

func (r *accountsRepo) SetActive(ctx context.Context, id string, active bool, at time.Time) (domain.Account, error) {
	query := fmt.Sprintf(`UPDATE %s SET is_active = ?, updated_at = ? WHERE id = ? RETURNING %s`,
		r.table, accountColumns)
	row, err := scanAccount(r.q.QueryRowContext(ctx, query, active, toMillis(at), id))
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return r.mapAccount(row), nil
}

func (r *accountsRepo) SetMedia(ctx context.Context, id string, m *domain.Media, at time.Time) error {
	if m == nil {
		return r.exec(ctx, `UPDATE %s SET
			media_key = NULL, media_url = NULL, media_original_name = NULL, media_mime_type = NULL,
			media_size = NULL, media_width = NULL, media_height = NULL, media_uploaded_at = NULL,
			updated_at = ?
			WHERE id = ?`, toMillis(at), id)
	}
	return r.exec(ctx, `UPDATE %s SET
		media_key = ?, media_url = ?, media_original_name = ?, media_mime_type = ?,
		media_size = ?, media_width = ?, media_height = ?, media_uploaded_at = ?,
		updated_at = ?
		WHERE id = ?`,
		m.Key, m.URL, m.OriginalName, m.MimeType,
		m.Size, m.Width, m.Height, toMillis(m.UploadedAt),
		toMillis(at), id)
}
