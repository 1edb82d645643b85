package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/profjobell/studio-sub000/internal/domain/reports"
)

// TeachingRepository persists teaching reports; the podcast sub-record lives
// in its own JSON column and is merged under a row lock so each stage write
// is one atomic record update.
type TeachingRepository struct {
	db *sql.DB
}

func NewTeachingRepository(db *sql.DB) *TeachingRepository {
	return &TeachingRepository{db: db}
}

func (r *TeachingRepository) SaveTeaching(ctx context.Context, rep *domain.TeachingAnalysisReport) error {
	const q = `
INSERT INTO teaching_reports
  (id, title, recipient, tone, output_format, status, original_content, failure_reason, result_json, podcast_json, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  title=VALUES(title), recipient=VALUES(recipient), tone=VALUES(tone),
  output_format=VALUES(output_format), status=VALUES(status),
  original_content=VALUES(original_content), failure_reason=VALUES(failure_reason),
  result_json=VALUES(result_json), updated_at=VALUES(updated_at);
`
	resultJSON, err := marshalNullable(rep.Result)
	if err != nil {
		return err
	}
	podcastJSON, err := marshalNullable(rep.Podcast)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q,
		rep.ID, rep.Title, rep.Recipient, rep.Tone, rep.OutputFormat,
		rep.Status, rep.OriginalContent, rep.FailureReason,
		resultJSON, podcastJSON, rep.CreatedAt, rep.UpdatedAt,
	)
	return err
}

func (r *TeachingRepository) GetTeaching(ctx context.Context, id domain.ReportID) (*domain.TeachingAnalysisReport, error) {
	const q = `
SELECT id, title, recipient, tone, output_format, status, original_content, failure_reason, result_json, podcast_json, created_at, updated_at
FROM teaching_reports WHERE id=?;
`
	return scanTeaching(r.db.QueryRowContext(ctx, q, id))
}

func (r *TeachingRepository) LatestTeaching(ctx context.Context, limit int) ([]*domain.TeachingAnalysisReport, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, title, recipient, tone, output_format, status, original_content, failure_reason, result_json, podcast_json, created_at, updated_at
FROM teaching_reports
ORDER BY created_at DESC, id DESC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.TeachingAnalysisReport
	for rows.Next() {
		rep, err := scanTeaching(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *TeachingRepository) DeleteTeaching(ctx context.Context, id domain.ReportID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM teaching_reports WHERE id=?;`, id)
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

// MergePodcast reads the current podcast column under FOR UPDATE, applies
// the patch, and writes the merged value back in the same transaction.
func (r *TeachingRepository) MergePodcast(ctx context.Context, id domain.ReportID, p domain.PodcastPatch) (*domain.PodcastData, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var podcastJSON sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT podcast_json FROM teaching_reports WHERE id=? FOR UPDATE;`, id,
	).Scan(&podcastJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var current *domain.PodcastData
	if podcastJSON.Valid && podcastJSON.String != "" {
		current = &domain.PodcastData{}
		if err := json.Unmarshal([]byte(podcastJSON.String), current); err != nil {
			return nil, fmt.Errorf("corrupt podcast record: %w", err)
		}
	}

	merged := domain.MergePodcast(current, p)
	payload, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE teaching_reports SET podcast_json=?, updated_at=? WHERE id=?;`,
		payload, merged.UpdatedAt, id,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return merged, nil
}

func scanTeaching(row rowScanner) (*domain.TeachingAnalysisReport, error) {
	var rep domain.TeachingAnalysisReport
	var resultJSON, podcastJSON sql.NullString
	err := row.Scan(
		&rep.ID, &rep.Title, &rep.Recipient, &rep.Tone, &rep.OutputFormat,
		&rep.Status, &rep.OriginalContent, &rep.FailureReason,
		&resultJSON, &podcastJSON, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if resultJSON.Valid && resultJSON.String != "" {
		rep.Result = &domain.TeachingResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), rep.Result); err != nil {
			return nil, err
		}
	}
	if podcastJSON.Valid && podcastJSON.String != "" {
		rep.Podcast = &domain.PodcastData{}
		if err := json.Unmarshal([]byte(podcastJSON.String), rep.Podcast); err != nil {
			return nil, err
		}
	}
	return &rep, nil
}
