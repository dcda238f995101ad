package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ipsco/fleet/modules/establishment/domain/aggregates/establishment"
	"github.com/ipsco/fleet/pkg/composables"
	"github.com/ipsco/fleet/pkg/repo"
	"github.com/ipsco/fleet/pkg/routing"
)

const (
	// advisory lock key serializing structural changes of the forest
	treeLockKey = int64(0x4553544142) // "ESTAB"

	establishmentColumns = `id, name, type, code, parent_id, address, phone, email, responsible_id, active, created_at, updated_at`

	establishmentCodeKey = "establishments_code_key"
)

type EstablishmentRepository struct {
	router *routing.Router
}

func NewEstablishmentRepository(router *routing.Router) establishment.Repository {
	return &EstablishmentRepository{router: router}
}

func (r *EstablishmentRepository) readTx(ctx context.Context) (repo.Tx, error) {
	return composables.UseTx(ctx, r.router.ReadStore(routing.EntityEstablishment))
}

func (r *EstablishmentRepository) writeTx(ctx context.Context) (repo.Tx, error) {
	return composables.UseTx(ctx, r.router.WriteStore(routing.EntityEstablishment))
}

func scanEstablishments(rows pgx.Rows) ([]establishment.Establishment, error) {
	defer rows.Close()
	var out []establishment.Establishment
	for rows.Next() {
		var row establishmentRow
		if err := rows.Scan(
			&row.ID,
			&row.Name,
			&row.Type,
			&row.Code,
			&row.ParentID,
			&row.Address,
			&row.Phone,
			&row.Email,
			&row.ResponsibleID,
			&row.Active,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, gerrors.Wrap(err, "scan establishment")
		}
		out = append(out, toDomainEstablishment(row))
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(err, "iterate establishments")
	}
	return out, nil
}

func (r *EstablishmentRepository) queryOne(ctx context.Context, where string, arg any) (establishment.Establishment, bool, error) {
	tx, err := r.readTx(ctx)
	if err != nil {
		return establishment.Establishment{}, false, err
	}
	rows, err := tx.Query(ctx, `SELECT `+establishmentColumns+` FROM establishments WHERE `+where, arg)
	if err != nil {
		return establishment.Establishment{}, false, gerrors.Wrap(err, "query establishment")
	}
	list, err := scanEstablishments(rows)
	if err != nil {
		return establishment.Establishment{}, false, err
	}
	if len(list) == 0 {
		return establishment.Establishment{}, false, nil
	}
	return list[0], true, nil
}

func (r *EstablishmentRepository) GetByID(ctx context.Context, id uuid.UUID) (establishment.Establishment, error) {
	e, found, err := r.queryOne(ctx, "id = $1", pgUUIDFromUUID(id))
	if err != nil {
		return establishment.Establishment{}, err
	}
	if !found {
		return establishment.Establishment{}, establishment.NotFound(id)
	}
	return e, nil
}

func (r *EstablishmentRepository) GetByCode(ctx context.Context, code string) (establishment.Establishment, error) {
	e, found, err := r.queryOne(ctx, "code = $1", strings.TrimSpace(code))
	if err != nil {
		return establishment.Establishment{}, err
	}
	if !found {
		return establishment.Establishment{}, establishment.NotFound(uuid.Nil)
	}
	return e, nil
}

func (r *EstablishmentRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	tx, err := r.readTx(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM establishments WHERE id = $1)`, pgUUIDFromUUID(id)).Scan(&exists); err != nil {
		return false, gerrors.Wrap(err, "establishment exists")
	}
	return exists, nil
}

func (r *EstablishmentRepository) List(ctx context.Context, params *establishment.FindParams) ([]establishment.Establishment, error) {
	tx, err := r.readTx(ctx)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = &establishment.FindParams{}
	}

	where := []string{"TRUE"}
	var args []any
	if params.IDs != nil {
		args = append(args, pgUUIDs(params.IDs))
		where = append(where, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if params.ActiveOnly {
		where = append(where, "active")
	}
	query := `SELECT ` + establishmentColumns + ` FROM establishments WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY type, name, code ` +
		repo.FormatLimitOffset(params.Limit, params.Offset)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, gerrors.Wrap(err, "list establishments")
	}
	return scanEstablishments(rows)
}

func (r *EstablishmentRepository) ListChildren(ctx context.Context, parentIDs []uuid.UUID) ([]establishment.Establishment, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	tx, err := r.readTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx,
		`SELECT `+establishmentColumns+` FROM establishments WHERE parent_id = ANY($1) ORDER BY name, code`,
		pgUUIDs(parentIDs),
	)
	if err != nil {
		return nil, gerrors.Wrap(err, "list children")
	}
	return scanEstablishments(rows)
}

func (r *EstablishmentRepository) CountChildren(ctx context.Context, id uuid.UUID) (int, error) {
	tx, err := r.readTx(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM establishments WHERE parent_id = $1`, pgUUIDFromUUID(id)).Scan(&n); err != nil {
		return 0, gerrors.Wrap(err, "count children")
	}
	return n, nil
}

func (r *EstablishmentRepository) CodesWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	tx, err := r.readTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT code FROM establishments WHERE starts_with(code, $1)`, prefix)
	if err != nil {
		return nil, gerrors.Wrap(err, "list codes")
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, gerrors.Wrap(err, "scan code")
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (r *EstablishmentRepository) Create(ctx context.Context, e establishment.Establishment) (establishment.Establishment, error) {
	tx, err := r.writeTx(ctx)
	if err != nil {
		return establishment.Establishment{}, err
	}
	c := e.Contact()
	rows, err := tx.Query(ctx, `
		INSERT INTO establishments (id, name, type, code, parent_id, address, phone, email, responsible_id, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+establishmentColumns,
		pgUUIDFromUUID(e.ID()),
		e.Name(),
		string(e.Type()),
		e.Code(),
		pgUUIDFromPtr(e.ParentID()),
		c.Address,
		c.Phone,
		c.Email,
		pgUUIDFromPtr(e.ResponsibleID()),
		e.Active(),
	)
	if err != nil {
		return establishment.Establishment{}, mapWriteError(err, e)
	}
	list, err := scanEstablishments(rows)
	if err != nil {
		return establishment.Establishment{}, mapWriteError(err, e)
	}
	if len(list) == 0 {
		return establishment.Establishment{}, gerrors.New("insert establishment returned no row")
	}
	return list[0], nil
}

func (r *EstablishmentRepository) Update(ctx context.Context, e establishment.Establishment) (establishment.Establishment, error) {
	tx, err := r.writeTx(ctx)
	if err != nil {
		return establishment.Establishment{}, err
	}
	c := e.Contact()
	rows, err := tx.Query(ctx, `
		UPDATE establishments
		SET name = $2, type = $3, code = $4, address = $5, phone = $6, email = $7,
		    responsible_id = $8, active = $9, updated_at = $10
		WHERE id = $1
		RETURNING `+establishmentColumns,
		pgUUIDFromUUID(e.ID()),
		e.Name(),
		string(e.Type()),
		e.Code(),
		c.Address,
		c.Phone,
		c.Email,
		pgUUIDFromPtr(e.ResponsibleID()),
		e.Active(),
		time.Now().UTC(),
	)
	if err != nil {
		return establishment.Establishment{}, mapWriteError(err, e)
	}
	list, err := scanEstablishments(rows)
	if err != nil {
		return establishment.Establishment{}, mapWriteError(err, e)
	}
	if len(list) == 0 {
		return establishment.Establishment{}, establishment.NotFound(e.ID())
	}
	return list[0], nil
}

func (r *EstablishmentRepository) UpdateParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	tx, err := r.writeTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx,
		`UPDATE establishments SET parent_id = $2, updated_at = now() WHERE id = $1`,
		pgUUIDFromUUID(id), pgUUIDFromPtr(parentID),
	)
	if err != nil {
		return gerrors.Wrap(err, "update parent")
	}
	if tag.RowsAffected() == 0 {
		return establishment.NotFound(id)
	}
	return nil
}

func (r *EstablishmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.writeTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM establishments WHERE id = $1`, pgUUIDFromUUID(id))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return establishment.NewHasDependentsError(id, 0, 1)
		}
		return gerrors.Wrap(err, "delete establishment")
	}
	if tag.RowsAffected() == 0 {
		return establishment.NotFound(id)
	}
	return nil
}

func (r *EstablishmentRepository) LockTree(ctx context.Context) error {
	tx, err := r.writeTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, treeLockKey); err != nil {
		return gerrors.Wrap(err, "lock establishment tree")
	}
	return nil
}

func mapWriteError(err error, e establishment.Establishment) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return gerrors.Wrap(err, "write establishment")
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		if pgErr.ConstraintName == establishmentCodeKey {
			return establishment.NewDuplicateCodeError(e.Code())
		}
	case "23503": // foreign_key_violation
		if parent := e.ParentID(); parent != nil {
			return establishment.NotFound(*parent)
		}
	}
	return gerrors.Wrap(err, "write establishment")
}
