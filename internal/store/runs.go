package store

import (
	"context"
	"database/sql"
	"time"

	"shorts-pipeline/internal/types"

	"github.com/pkg/errors"
)

// SaveRun records a run and its stage reports, replacing an earlier record
// with the same id
func (s *Store) SaveRun(ctx context.Context, run *types.RunState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin run transaction")
	}
	defer tx.Rollback()

	var completed interface{}
	if !run.CompletedAt.IsZero() {
		completed = run.CompletedAt.UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			run_id, topic, status, duration_sec, fact, script, audio_file,
			video_file, final_file, archive_url, error, started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Topic.Text, run.Status, int(run.Duration.Seconds()),
		run.Fact, run.Script, run.AudioFile, run.VideoFile, run.FinalFile,
		run.ArchiveURL, run.Error, run.StartedAt.UTC(), completed,
	)
	if err != nil {
		return errors.Wrap(err, "insert run")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM stages WHERE run_id = ?`, run.RunID); err != nil {
		return errors.Wrap(err, "clear stages")
	}
	for i, st := range run.Stages {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO stages (run_id, seq, stage, outcome, backend, error, elapsed_ms) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, i, st.Stage, st.Outcome, st.Backend, st.Error, st.Elapsed.Milliseconds())
		if err != nil {
			return errors.Wrap(err, "insert stage")
		}
	}
	return errors.Wrap(tx.Commit(), "commit run")
}

// RecentRuns returns up to limit runs, newest first, with their stages
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*types.RunState, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, topic, status, duration_sec, fact, script, audio_file,
		       video_file, final_file, archive_url, error, started_at, completed_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	var runs []*types.RunState
	for rows.Next() {
		var run types.RunState
		var secs int
		var completed sql.NullTime
		var fact, script, audio, video, final, archive, msg sql.NullString
		err := rows.Scan(&run.RunID, &run.Topic.Text, &run.Status, &secs,
			&fact, &script, &audio, &video, &final, &archive, &msg,
			&run.StartedAt, &completed)
		if err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		run.Duration = time.Duration(secs) * time.Second
		run.Fact, run.Script = fact.String, script.String
		run.AudioFile, run.VideoFile, run.FinalFile = audio.String, video.String, final.String
		run.ArchiveURL, run.Error = archive.String, msg.String
		if completed.Valid {
			run.CompletedAt = completed.Time
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate runs")
	}

	for _, run := range runs {
		if run.Stages, err = s.stages(ctx, run.RunID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *Store) stages(ctx context.Context, runID string) ([]types.StageReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, outcome, backend, error, elapsed_ms FROM stages WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "query stages")
	}
	defer rows.Close()

	var out []types.StageReport
	for rows.Next() {
		var (
			st      types.StageReport
			backend sql.NullString
			msg     sql.NullString
			ms      int64
		)
		if err := rows.Scan(&st.Stage, &st.Outcome, &backend, &msg, &ms); err != nil {
			return nil, errors.Wrap(err, "scan stage")
		}
		st.Backend, st.Error = backend.String, msg.String
		st.Elapsed = time.Duration(ms) * time.Millisecond
		out = append(out, st)
	}
	return out, errors.Wrap(rows.Err(), "iterate stages")
}

// Publication is one platform upload attempt
type Publication struct {
	VideoPath   string
	Platform    types.Platform
	Success     bool
	Error       string
	PublishedAt time.Time
}

// SavePublication records one platform upload attempt
func (s *Store) SavePublication(ctx context.Context, p Publication) error {
	if p.PublishedAt.IsZero() {
		p.PublishedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO publications (video_path, platform, success, error, published_at) VALUES (?, ?, ?, ?, ?)`,
		p.VideoPath, string(p.Platform), p.Success, p.Error, p.PublishedAt.UTC())
	return errors.Wrap(err, "insert publication")
}

// Publications lists upload attempts for one video, oldest first
func (s *Store) Publications(ctx context.Context, videoPath string) ([]Publication, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_path, platform, success, error, published_at FROM publications WHERE video_path = ? ORDER BY id`,
		videoPath)
	if err != nil {
		return nil, errors.Wrap(err, "query publications")
	}
	defer rows.Close()

	var out []Publication
	for rows.Next() {
		var (
			p        Publication
			platform string
			msg      sql.NullString
		)
		if err := rows.Scan(&p.VideoPath, &platform, &p.Success, &msg, &p.PublishedAt); err != nil {
			return nil, errors.Wrap(err, "scan publication")
		}
		p.Platform, p.Error = types.Platform(platform), msg.String
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "iterate publications")
}
