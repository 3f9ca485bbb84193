package samples

import (
	"context"
	"database/sql"
	"errors"

	"copper-backend/internal/risk"
	"copper-backend/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const recordColumns = `id, user_id, created_at, image_path, copper_concentration, risk_level, analysis_data,
  location, ph, hardness, solids, chloramines, sulfate, conductivity, organic_carbon, trihalomethanes, turbidity, drinkable`

// Create inserts rec in its own transaction and rolls back on any failure.
func (r *PGRepo) Create(ctx context.Context, rec Record) (id int64, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `
INSERT INTO analyses (user_id, created_at, image_path, copper_concentration, risk_level, analysis_data,
  location, ph, hardness, solids, chloramines, sulfate, conductivity, organic_carbon, trihalomethanes, turbidity, drinkable)
VALUES ($1, COALESCE($2, now()), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING id`
	q := rec.Quality
	err = tx.QueryRowContext(ctx, query,
		rec.UserID,
		nullableTime(rec),
		rec.ImagePath,
		rec.Concentration,
		string(rec.RiskLevel),
		nullableJSON(rec.Details),
		q.Location,
		q.PH,
		q.Hardness,
		q.Solids,
		q.Chloramines,
		q.Sulfate,
		q.Conductivity,
		q.OrganicCarbon,
		q.Trihalomethanes,
		q.Turbidity,
		q.Drinkable,
	).Scan(&id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return 0, &StorageError{Op: "create", Err: ErrOwnerNotFound}
		}
		return 0, storageErr("create", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, storageErr("commit", err)
	}
	return id, nil
}

func (r *PGRepo) ListByOwner(ctx context.Context, ownerID int64) ([]Record, error) {
	query := `
SELECT ` + recordColumns + `
FROM analyses
WHERE user_id = $1
ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (Record, error) {
	query := `
SELECT ` + recordColumns + `
FROM analyses
WHERE id = $1
LIMIT 1`
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var riskLevel string
	var details []byte
	var location sql.NullString
	var ph, hardness, solids, chloramines, sulfate, conductivity sql.NullFloat64
	var organicCarbon, trihalomethanes, turbidity sql.NullFloat64
	var drinkable sql.NullBool
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.CreatedAt,
		&rec.ImagePath,
		&rec.Concentration,
		&riskLevel,
		&details,
		&location,
		&ph,
		&hardness,
		&solids,
		&chloramines,
		&sulfate,
		&conductivity,
		&organicCarbon,
		&trihalomethanes,
		&turbidity,
		&drinkable,
	)
	if err != nil {
		return Record{}, err
	}
	rec.RiskLevel = risk.Level(riskLevel)
	if len(details) > 0 {
		rec.Details = details
	}
	if location.Valid {
		rec.Location = &location.String
	}
	rec.PH = floatPtr(ph)
	rec.Hardness = floatPtr(hardness)
	rec.Solids = floatPtr(solids)
	rec.Chloramines = floatPtr(chloramines)
	rec.Sulfate = floatPtr(sulfate)
	rec.Conductivity = floatPtr(conductivity)
	rec.OrganicCarbon = floatPtr(organicCarbon)
	rec.Trihalomethanes = floatPtr(trihalomethanes)
	rec.Turbidity = floatPtr(turbidity)
	if drinkable.Valid {
		rec.Drinkable = &drinkable.Bool
	}
	return rec, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nullableTime(rec Record) any {
	if rec.CreatedAt.IsZero() {
		return nil
	}
	return rec.CreatedAt
}
