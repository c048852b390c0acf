package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/newswire-hq/newswire/internal/news"
)

// JobStore persists fetch jobs in the fetch_jobs table. Job parameters are
// stored as a jsonb column so the retry path replays the original request
// exactly.
type JobStore struct {
	db    Querier
	clock news.Clock
}

// NewJobStore constructs a JobStore over the given querier.
func NewJobStore(db Querier, clock news.Clock) *JobStore {
	return &JobStore{db: db, clock: clock}
}

const jobColumns = "id, parameters, status, articles_fetched, error_message, started_at, completed_at, created_at"

// CreateJob inserts a new job row.
func (s *JobStore) CreateJob(ctx context.Context, job news.FetchJob) error {
	params, err := json.Marshal(job.Parameters)
	if err != nil {
		return fmt.Errorf("marshal job parameters: %w", err)
	}
	query, args, err := psql.Insert("fetch_jobs").
		Columns("id", "parameters", "status", "articles_fetched", "created_at").
		Values(job.ID, params, string(job.Status), job.ArticlesFetched, job.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert job: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob returns the job or a NotFoundError.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (news.FetchJob, error) {
	query, args, err := psql.Select(jobColumns).
		From("fetch_jobs").
		Where(sq.Eq{"id": jobID}).
		ToSql()
	if err != nil {
		return news.FetchJob{}, fmt.Errorf("build select job: %w", err)
	}
	job, err := scanJob(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return news.FetchJob{}, &news.NotFoundError{Kind: "job", ID: jobID}
	}
	if err != nil {
		return news.FetchJob{}, fmt.Errorf("select job: %w", err)
	}
	return job, nil
}

// UpdateJobStatus transitions the job in one statement. started_at is stamped
// only on the first move to running; completed_at on terminal transitions.
func (s *JobStore) UpdateJobStatus(ctx context.Context, jobID string, status news.JobStatus, errMsg string, articlesFetched int) error {
	now := s.clock.Now()
	builder := psql.Update("fetch_jobs").
		Set("status", string(status)).
		Set("articles_fetched", articlesFetched).
		Where(sq.Eq{"id": jobID})
	if errMsg != "" {
		builder = builder.Set("error_message", errMsg)
	} else {
		builder = builder.Set("error_message", nil)
	}
	if status == news.JobStatusRunning {
		builder = builder.Set("started_at", sq.Expr("COALESCE(started_at, ?)", now))
	}
	if status.Terminal() {
		builder = builder.Set("completed_at", now)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build update job: %w", err)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &news.NotFoundError{Kind: "job", ID: jobID}
	}
	return nil
}

// ResetJob returns a completed or failed job to pending with its run state
// cleared. The terminal-status guard is part of the statement so a job cannot
// be reset while its current run is still queued or executing; resetting a
// pending job would schedule the same job twice.
func (s *JobStore) ResetJob(ctx context.Context, jobID string) error {
	query, args, err := psql.Update("fetch_jobs").
		Set("status", string(news.JobStatusPending)).
		Set("articles_fetched", 0).
		Set("error_message", nil).
		Set("started_at", nil).
		Set("completed_at", nil).
		Where(sq.Eq{"id": jobID}).
		Where(sq.Eq{"status": []string{string(news.JobStatusCompleted), string(news.JobStatusFailed)}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build reset job: %w", err)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("reset job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		job, err := s.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		if !job.Status.Terminal() {
			return news.Conflictf("job %s is %s", jobID, job.Status)
		}
		return fmt.Errorf("reset job %s: no rows affected", jobID)
	}
	return nil
}

// DeleteJob removes a non-running job. As with ResetJob the guard is in the
// statement itself.
func (s *JobStore) DeleteJob(ctx context.Context, jobID string) error {
	query, args, err := psql.Delete("fetch_jobs").
		Where(sq.Eq{"id": jobID}).
		Where(sq.NotEq{"status": string(news.JobStatusRunning)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete job: %w", err)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.guardFailure(ctx, jobID, "delete")
	}
	return nil
}

// guardFailure distinguishes "row missing" from "row running" after the
// guarded delete matched nothing.
func (s *JobStore) guardFailure(ctx context.Context, jobID, op string) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == news.JobStatusRunning {
		return news.Conflictf("job %s is running", jobID)
	}
	return fmt.Errorf("%s job %s: no rows affected", op, jobID)
}

// ListJobs returns jobs newest first with the total count for the filter.
func (s *JobStore) ListJobs(ctx context.Context, filter news.JobFilter) ([]news.FetchJob, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	countBuilder := psql.Select("COUNT(*)").From("fetch_jobs")
	listBuilder := psql.Select(jobColumns).From("fetch_jobs")
	if filter.Status != nil {
		cond := sq.Eq{"status": string(*filter.Status)}
		countBuilder = countBuilder.Where(cond)
		listBuilder = listBuilder.Where(cond)
	}

	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count jobs: %w", err)
	}
	var total int
	if err := s.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	query, args, err := listBuilder.
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list jobs: %w", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]news.FetchJob, 0, limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, total, nil
}

func scanJob(row pgx.Row) (news.FetchJob, error) {
	var (
		job         news.FetchJob
		params      []byte
		status      string
		errMsg      *string
		startedAt   *time.Time
		completedAt *time.Time
	)
	if err := row.Scan(
		&job.ID,
		&params,
		&status,
		&job.ArticlesFetched,
		&errMsg,
		&startedAt,
		&completedAt,
		&job.CreatedAt,
	); err != nil {
		return news.FetchJob{}, err
	}
	if err := json.Unmarshal(params, &job.Parameters); err != nil {
		return news.FetchJob{}, fmt.Errorf("unmarshal job parameters: %w", err)
	}
	job.Status = news.JobStatus(status)
	job.ErrorMessage = errMsg
	job.StartedAt = startedAt
	job.CompletedAt = completedAt
	return job, nil
}
