package persistence

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/crewplane/crewplane/modules/superadmin/domain/entities/impersonation"
	"github.com/crewplane/crewplane/modules/superadmin/infrastructure/persistence/models"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/mapping"
	"github.com/crewplane/crewplane/pkg/serrors"
)

const sessionFindQuery = `
	SELECT id, tenant_id, admin_user_id, impersonated_user_id, reason,
	       ip, user_agent, started_at, ended_at, end_reason
	FROM impersonation_sessions`

type SessionRepository struct{}

func NewSessionRepository() impersonation.Repository {
	return &SessionRepository{}
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (impersonation.Session, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return impersonation.Session{}, err
	}

	return r.queryOne(ctx, sessionFindQuery+" WHERE tenant_id = $1 AND id = $2", tenantID.String(), id.String())
}

func (r *SessionRepository) GetActiveByAdmin(ctx context.Context, adminUserID uuid.UUID) (impersonation.Session, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return impersonation.Session{}, err
	}

	query := sessionFindQuery + " WHERE tenant_id = $1 AND admin_user_id = $2 AND ended_at IS NULL"
	return r.queryOne(ctx, query, tenantID.String(), adminUserID.String())
}

func (r *SessionRepository) ListExpired(ctx context.Context, cutoff time.Time) ([]impersonation.Session, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	query := sessionFindQuery + " WHERE tenant_id = $1 AND ended_at IS NULL AND started_at <= $2 ORDER BY started_at"
	rows, err := tx.Query(ctx, query, tenantID.String(), cutoff)
	if err != nil {
		return nil, errors.Wrap(translateSuperadminError(err), "failed to list expired sessions")
	}
	defer rows.Close()

	var out []impersonation.Session
	for rows.Next() {
		m, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, toDomainSession(m))
	}
	return out, rows.Err()
}

// Create inserts the session row. The impersonation_sessions_active_idx
// partial unique index rejects a second open session for the same admin;
// 23505 surfaces as ErrSessionAlreadyActive.
func (r *SessionRepository) Create(ctx context.Context, s impersonation.Session) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO impersonation_sessions (
			id, tenant_id, admin_user_id, impersonated_user_id, reason,
			ip, user_agent, started_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := tx.Exec(
		ctx,
		query,
		s.ID().String(),
		s.TenantID().String(),
		s.AdminUserID().String(),
		s.ImpersonatedUserID().String(),
		s.Reason(),
		mapping.ValueToSQLNullString(s.IP()),
		mapping.ValueToSQLNullString(s.UserAgent()),
		s.StartedAt(),
	); err != nil {
		return errors.Wrap(translateSuperadminError(err), "failed to create impersonation session")
	}
	return nil
}

// End writes the terminal fields only while the stored row is still open.
// A session ended by a concurrent caller leaves zero rows affected and
// surfaces ErrAlreadyEnded.
func (r *SessionRepository) End(ctx context.Context, s impersonation.Session) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	var endReason interface{}
	if reason := s.EndReason(); reason != nil {
		endReason = string(*reason)
	}
	query := `
		UPDATE impersonation_sessions
		SET ended_at = $1, end_reason = $2
		WHERE tenant_id = $3 AND id = $4 AND ended_at IS NULL
	`
	tag, err := tx.Exec(ctx, query, mapping.PointerToSQLNullTime(s.EndedAt()), endReason, tenantID.String(), s.ID().String())
	if err != nil {
		return errors.Wrap(translateSuperadminError(err), "failed to end impersonation session")
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, s.ID()); err != nil {
			return err
		}
		return impersonation.ErrAlreadyEnded
	}
	return nil
}

func (r *SessionRepository) queryOne(ctx context.Context, query string, args ...interface{}) (impersonation.Session, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return impersonation.Session{}, errors.Wrap(err, "failed to get transaction")
	}

	m, err := scanSession(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return impersonation.Session{}, impersonation.ErrNotFound
		}
		return impersonation.Session{}, errors.Wrap(translateSuperadminError(err), "failed to query impersonation session")
	}
	return toDomainSession(m), nil
}

func scanSession(row pgx.Row) (*models.ImpersonationSession, error) {
	var m models.ImpersonationSession
	if err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.AdminUserID,
		&m.ImpersonatedUserID,
		&m.Reason,
		&m.IP,
		&m.UserAgent,
		&m.StartedAt,
		&m.EndedAt,
		&m.EndReason,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func translateSuperadminError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return impersonation.ErrSessionAlreadyActive
	}
	return serrors.MapContext(err)
}
