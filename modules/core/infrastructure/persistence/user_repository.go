package persistence

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crewplane/crewplane/modules/core/domain/aggregates/user"
	"github.com/crewplane/crewplane/modules/core/infrastructure/persistence/models"
	"github.com/crewplane/crewplane/pkg/composables"
)

const (
	userFindQuery = `
		SELECT id, tenant_id, email, display_name, status, is_system_admin, created_at, updated_at
		FROM users`
)

type UserRepository struct{}

func NewUserRepository() user.Repository {
	return &UserRepository{}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	tenantID, err := useTenantID(ctx)
	if err != nil {
		return user.User{}, err
	}

	return r.queryOne(ctx, userFindQuery+" WHERE tenant_id = $1 AND id = $2", tenantID.String(), id.String())
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	tenantID, err := useTenantID(ctx)
	if err != nil {
		return user.User{}, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	return r.queryOne(ctx, userFindQuery+" WHERE tenant_id = $1 AND email = $2", tenantID.String(), email)
}

func (r *UserRepository) Create(ctx context.Context, u user.User) (user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return user.User{}, err
	}

	query := `
		INSERT INTO users (id, tenant_id, email, display_name, status, is_system_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := tx.Exec(
		ctx,
		query,
		u.ID().String(),
		u.TenantID().String(),
		u.Email(),
		u.DisplayName(),
		string(u.Status()),
		u.IsSystemAdmin(),
		u.CreatedAt(),
		u.UpdatedAt(),
	); err != nil {
		return user.User{}, errors.Wrap(translateDBError(err), "failed to create user")
	}

	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, u user.User) error {
	tenantID, err := useTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET email = $1, display_name = $2, status = $3, is_system_admin = $4, updated_at = $5
		WHERE tenant_id = $6 AND id = $7
	`
	tag, err := tx.Exec(
		ctx,
		query,
		u.Email(),
		u.DisplayName(),
		string(u.Status()),
		u.IsSystemAdmin(),
		u.UpdatedAt(),
		tenantID.String(),
		u.ID().String(),
	)
	if err != nil {
		return errors.Wrap(translateDBError(err), "failed to update user")
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]user.User, error) {
	tenantID, err := useTenantID(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, userFindQuery+" WHERE tenant_id = $1 ORDER BY created_at", tenantID.String())
	if err != nil {
		return nil, errors.Wrap(translateDBError(err), "failed to list users")
	}
	defer rows.Close()

	var out []user.User
	for rows.Next() {
		var m models.User
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.Email,
			&m.DisplayName,
			&m.Status,
			&m.IsSystemAdmin,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan user row")
		}
		out = append(out, toDomainUser(&m))
	}
	return out, rows.Err()
}

func (r *UserRepository) queryOne(ctx context.Context, query string, args ...interface{}) (user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return user.User{}, errors.Wrap(err, "failed to get transaction")
	}

	var m models.User
	if err := tx.QueryRow(ctx, query, args...).Scan(
		&m.ID,
		&m.TenantID,
		&m.Email,
		&m.DisplayName,
		&m.Status,
		&m.IsSystemAdmin,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(translateDBError(err), "failed to query user")
	}

	return toDomainUser(&m), nil
}
