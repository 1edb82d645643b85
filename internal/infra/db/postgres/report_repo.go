package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	domain "github.com/profjobell/studio-sub000/internal/domain/reports"
)

// ReportRepository is the Postgres counterpart of the mysql repository;
// structured payloads live in jsonb columns.
type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Save(ctx context.Context, rep *domain.AnalysisReport) error {
	const q = `
INSERT INTO analysis_reports
  (id, title, analysis_type, status, original_content, failure_reason, result_json, deep_dive_json, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  title=EXCLUDED.title, analysis_type=EXCLUDED.analysis_type, status=EXCLUDED.status,
  original_content=EXCLUDED.original_content, failure_reason=EXCLUDED.failure_reason,
  result_json=EXCLUDED.result_json, updated_at=EXCLUDED.updated_at;
`
	resultJSON, err := marshalNullable(rep.AnalysisResult)
	if err != nil {
		return err
	}
	deepDiveJSON, err := marshalNullable(rep.DeepDive)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q,
		rep.ID, rep.Title, rep.AnalysisType, rep.Status,
		rep.OriginalContent, rep.FailureReason,
		resultJSON, deepDiveJSON, rep.CreatedAt, rep.UpdatedAt,
	)
	return err
}

func (r *ReportRepository) Get(ctx context.Context, id domain.ReportID) (*domain.AnalysisReport, error) {
	const q = `
SELECT id, title, analysis_type, status, original_content, failure_reason, result_json, deep_dive_json, created_at, updated_at
FROM analysis_reports WHERE id=$1;
`
	return scanReport(r.db.QueryRowContext(ctx, q, id))
}

func (r *ReportRepository) Latest(ctx context.Context, limit int) ([]*domain.AnalysisReport, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, title, analysis_type, status, original_content, failure_reason, result_json, deep_dive_json, created_at, updated_at
FROM analysis_reports
ORDER BY created_at DESC, id DESC
LIMIT $1;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AnalysisReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *ReportRepository) Delete(ctx context.Context, id domain.ReportID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analysis_reports WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ReportRepository) SetDeepDive(ctx context.Context, id domain.ReportID, dd domain.DeepDive) error {
	payload, err := json.Marshal(dd)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE analysis_reports SET deep_dive_json=$1, updated_at=$2 WHERE id=$3;`,
		payload, dd.GeneratedAt, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*domain.AnalysisReport, error) {
	var rep domain.AnalysisReport
	var resultJSON, deepDiveJSON sql.NullString
	err := row.Scan(
		&rep.ID, &rep.Title, &rep.AnalysisType, &rep.Status,
		&rep.OriginalContent, &rep.FailureReason,
		&resultJSON, &deepDiveJSON, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if resultJSON.Valid && resultJSON.String != "" {
		rep.AnalysisResult = &domain.AnalysisResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), rep.AnalysisResult); err != nil {
			return nil, err
		}
	}
	if deepDiveJSON.Valid && deepDiveJSON.String != "" {
		rep.DeepDive = &domain.DeepDive{}
		if err := json.Unmarshal([]byte(deepDiveJSON.String), rep.DeepDive); err != nil {
			return nil, err
		}
	}
	return &rep, nil
}

func marshalNullable(v any) (any, error) {
	switch t := v.(type) {
	case *domain.AnalysisResult:
		if t == nil {
			return nil, nil
		}
	case *domain.DeepDive:
		if t == nil {
			return nil, nil
		}
	case *domain.TeachingResult:
		if t == nil {
			return nil, nil
		}
	case *domain.PodcastData:
		if t == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
