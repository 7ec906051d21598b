package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/formationpro/fichepresence/core"
	"github.com/formationpro/fichepresence/core/attendance"
)

const draftColumns = "id, session_id, sheet, created_at, updated_at"

type draftRow struct {
	ID        string         `db:"id"`
	SessionID null.String    `db:"session_id"`
	Sheet     types.JSONText `db:"sheet"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func newDraftRow(d attendance.Draft) (draftRow, error) {
	sheet, err := json.Marshal(d.Sheet)
	if err != nil {
		return draftRow{}, errors.Wrap(err, "encoding sheet")
	}
	return draftRow{
		ID:        d.ID,
		SessionID: null.NewString(d.SessionID, d.SessionID != ""),
		Sheet:     sheet,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}, nil
}

func (row draftRow) draft() (attendance.Draft, error) {
	d := attendance.Draft{
		ID:        row.ID,
		SessionID: row.SessionID.String,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	if err := row.Sheet.Unmarshal(&d.Sheet); err != nil {
		return attendance.Draft{}, errors.Wrap(err, "decoding sheet")
	}
	return d, nil
}

type draftRepository struct {
	db core.DBExecutor
}

var _ attendance.DraftRepository = (*draftRepository)(nil)

func NewDraftRepository(db core.DBExecutor) attendance.DraftRepository {
	return &draftRepository{db: db}
}

func (repo *draftRepository) CreateDraft(ctx context.Context, draft attendance.Draft) (attendance.Draft, error) {
	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	row, err := newDraftRow(draft)
	if err != nil {
		return attendance.Draft{}, err
	}

	q := "INSERT INTO attendance_drafts (" + draftColumns + ") " +
		"VALUES (:id, :session_id, :sheet, :created_at, :updated_at)"
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return attendance.Draft{}, errors.Wrap(err, "inserting draft")
	}
	return draft, nil
}

func (repo *draftRepository) GetDraft(ctx context.Context, id string) (attendance.Draft, error) {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.Draft{}, attendance.ErrDraftNotFound
	}

	var row draftRow
	q := repo.db.Rebind("SELECT " + draftColumns + " FROM attendance_drafts WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.Draft{}, attendance.ErrDraftNotFound
		}
		return attendance.Draft{}, errors.Wrap(err, "selecting draft")
	}
	return row.draft()
}

func (repo *draftRepository) UpdateDraft(ctx context.Context, draft attendance.Draft) (attendance.Draft, error) {
	if _, err := uuid.Parse(draft.ID); err != nil {
		return attendance.Draft{}, attendance.ErrDraftNotFound
	}
	row, err := newDraftRow(draft)
	if err != nil {
		return attendance.Draft{}, err
	}

	q := "UPDATE attendance_drafts SET session_id = :session_id, sheet = :sheet, updated_at = :updated_at " +
		"WHERE id = :id"
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return attendance.Draft{}, errors.Wrap(err, "updating draft")
	}
	if err = expectOneRow(res); err != nil {
		return attendance.Draft{}, err
	}
	return repo.GetDraft(ctx, draft.ID)
}

func (repo *draftRepository) DeleteDraft(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.ErrDraftNotFound
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM attendance_drafts WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting draft")
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return attendance.ErrDraftNotFound
	}
	return nil
}
