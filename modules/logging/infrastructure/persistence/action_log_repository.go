package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/ipsco/fleet/modules/logging/domain/entities/actionlog"
	"github.com/ipsco/fleet/modules/logging/infrastructure/persistence/models"
	"github.com/ipsco/fleet/pkg/composables"
	"github.com/ipsco/fleet/pkg/repo"
	"github.com/ipsco/fleet/pkg/routing"
)

// ActionLogRepository stores the audit trail in whichever store the router
// assigns to action logs, the secondary one by default.
type ActionLogRepository struct {
	router *routing.Router
}

func NewActionLogRepository(router *routing.Router) actionlog.Repository {
	return &ActionLogRepository{router: router}
}

func (r *ActionLogRepository) List(ctx context.Context, params *actionlog.FindParams) ([]*actionlog.ActionLog, error) {
	tx, err := composables.UseTx(ctx, r.router.ReadStore(routing.EntityActionLog))
	if err != nil {
		return nil, err
	}

	where, args := buildActionLogFilters(params)
	query := `
		SELECT id, actor_id, action, details, method, path, user_agent, ip, created_at
		FROM action_logs
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC
	`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query action logs")
	}
	defer rows.Close()

	var results []*actionlog.ActionLog
	for rows.Next() {
		var row models.ActionLog
		if err := rows.Scan(
			&row.ID,
			&row.ActorID,
			&row.Action,
			&row.Details,
			&row.Method,
			&row.Path,
			&row.UserAgent,
			&row.IP,
			&row.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan action log")
		}
		results = append(results, toDomainActionLog(&row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ActionLogRepository) Count(ctx context.Context, params *actionlog.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx, r.router.ReadStore(routing.EntityActionLog))
	if err != nil {
		return 0, err
	}
	where, args := buildActionLogFilters(params)

	var count int64
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM action_logs
		WHERE `+strings.Join(where, " AND "),
		args...,
	).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count action logs")
	}
	return count, nil
}

func (r *ActionLogRepository) Create(ctx context.Context, log *actionlog.ActionLog) error {
	tx, err := composables.UseTx(ctx, r.router.WriteStore(routing.EntityActionLog))
	if err != nil {
		return err
	}
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	dbRow := toDBActionLog(log)
	return tx.QueryRow(
		ctx,
		`INSERT INTO action_logs (id, actor_id, action, details, method, path, user_agent, ip, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		dbRow.ID,
		dbRow.ActorID,
		dbRow.Action,
		dbRow.Details,
		dbRow.Method,
		dbRow.Path,
		dbRow.UserAgent,
		dbRow.IP,
		dbRow.CreatedAt,
	).Scan(&log.CreatedAt)
}

func buildActionLogFilters(params *actionlog.FindParams) ([]string, []any) {
	where := []string{"TRUE"}
	var args []any
	argPos := 1
	if params == nil {
		return where, args
	}

	if params.ActorID != nil {
		where = append(where, fmt.Sprintf("actor_id = $%d", argPos))
		args = append(args, *params.ActorID)
		argPos++
	}
	if action := strings.TrimSpace(params.Action); action != "" {
		where = append(where, fmt.Sprintf("action ILIKE $%d", argPos))
		args = append(args, action+"%")
		argPos++
	}
	if params.From != nil && !params.From.IsZero() {
		where = append(where, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *params.From)
		argPos++
	}
	if params.To != nil && !params.To.IsZero() {
		where = append(where, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *params.To)
	}
	return where, args
}
