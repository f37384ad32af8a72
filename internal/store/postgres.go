package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"distillery/internal/types"
)

// PostgresStore persists everything through database/sql with the pgx
// driver. Conversation turns are stored as a JSON column; the rest is flat.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error

	projectCache *lru.Cache[string, types.Project]
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, types.Project](1024)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db, projectCache: cache}, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS projects (
				project_id TEXT PRIMARY KEY,
				project_name TEXT NOT NULL DEFAULT 'Project'
			)`,
			`CREATE TABLE IF NOT EXISTS multi_turn_configs (
				project_id TEXT PRIMARY KEY,
				system_prompt TEXT NOT NULL DEFAULT '',
				scenario TEXT NOT NULL DEFAULT '',
				rounds INT NOT NULL DEFAULT 0,
				role_a TEXT NOT NULL DEFAULT '',
				role_b TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS tags (
				tag_id TEXT PRIMARY KEY,
				project_id TEXT NOT NULL,
				label TEXT NOT NULL,
				parent_id TEXT NOT NULL DEFAULT '',
				path TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS tags_project_idx ON tags (project_id)`,
			`CREATE TABLE IF NOT EXISTS questions (
				question_id TEXT PRIMARY KEY,
				project_id TEXT NOT NULL,
				tag_id TEXT NOT NULL,
				tag_label TEXT NOT NULL DEFAULT '',
				text TEXT NOT NULL,
				answered BOOLEAN NOT NULL DEFAULT FALSE
			)`,
			`CREATE INDEX IF NOT EXISTS questions_project_idx ON questions (project_id)`,
			`CREATE TABLE IF NOT EXISTS datasets (
				question_id TEXT PRIMARY KEY,
				project_id TEXT NOT NULL,
				answer TEXT NOT NULL,
				model TEXT NOT NULL DEFAULT '',
				confirmed BOOLEAN NOT NULL DEFAULT FALSE
			)`,
			`CREATE TABLE IF NOT EXISTS conversations (
				question_id TEXT PRIMARY KEY,
				project_id TEXT NOT NULL,
				scenario TEXT NOT NULL DEFAULT '',
				role_a TEXT NOT NULL DEFAULT '',
				role_b TEXT NOT NULL DEFAULT '',
				rounds INT NOT NULL DEFAULT 0,
				turns JSONB NOT NULL DEFAULT '[]'
			)`,
		}
		for _, stmt := range stmts {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				s.schemaErr = err
				return
			}
		}
	})
	return s.schemaErr
}

func (s *PostgresStore) GetProject(ctx context.Context, projectID string) (types.Project, error) {
	if s.projectCache != nil {
		if p, ok := s.projectCache.Get(projectID); ok {
			return p, nil
		}
	}
	if err := s.ensureSchema(ctx); err != nil {
		return types.Project{}, err
	}
	var p types.Project
	err := s.db.QueryRowContext(ctx,
		`SELECT project_id, project_name FROM projects WHERE project_id = $1`, projectID,
	).Scan(&p.ID, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Project{}, ErrNotFound
	}
	if err != nil {
		return types.Project{}, err
	}
	if s.projectCache != nil {
		s.projectCache.Add(projectID, p)
	}
	return p, nil
}

func (s *PostgresStore) PutProject(ctx context.Context, p types.Project) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (project_id, project_name) VALUES ($1, $2)
		 ON CONFLICT (project_id) DO UPDATE SET project_name = EXCLUDED.project_name`,
		p.ID, p.Name)
	if err == nil && s.projectCache != nil {
		s.projectCache.Remove(p.ID)
	}
	return err
}

func (s *PostgresStore) GetMultiTurnConfig(ctx context.Context, projectID string) (types.MultiTurnConfig, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return types.MultiTurnConfig{}, err
	}
	var cfg types.MultiTurnConfig
	err := s.db.QueryRowContext(ctx,
		`SELECT system_prompt, scenario, rounds, role_a, role_b
		 FROM multi_turn_configs WHERE project_id = $1`, projectID,
	).Scan(&cfg.SystemPrompt, &cfg.Scenario, &cfg.Rounds, &cfg.RoleA, &cfg.RoleB)
	if errors.Is(err, sql.ErrNoRows) {
		return types.MultiTurnConfig{}, ErrNotFound
	}
	return cfg, err
}

func (s *PostgresStore) PutMultiTurnConfig(ctx context.Context, projectID string, cfg types.MultiTurnConfig) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO multi_turn_configs (project_id, system_prompt, scenario, rounds, role_a, role_b)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (project_id) DO UPDATE SET
			system_prompt = EXCLUDED.system_prompt,
			scenario = EXCLUDED.scenario,
			rounds = EXCLUDED.rounds,
			role_a = EXCLUDED.role_a,
			role_b = EXCLUDED.role_b`,
		projectID, cfg.SystemPrompt, cfg.Scenario, cfg.Rounds, cfg.RoleA, cfg.RoleB)
	return err
}

func (s *PostgresStore) ListTags(ctx context.Context, projectID string) ([]types.Tag, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag_id, label, parent_id, path FROM tags WHERE project_id = $1 ORDER BY tag_id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.Tag
	for rows.Next() {
		var t types.Tag
		if err := rows.Scan(&t.ID, &t.Label, &t.ParentID, &t.Path); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AddTags(ctx context.Context, projectID string, tags []types.Tag) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	for _, t := range tags {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO tags (tag_id, project_id, label, parent_id, path)
			 VALUES ($1, $2, $3, $4, $5) ON CONFLICT (tag_id) DO NOTHING`,
			t.ID, projectID, t.Label, t.ParentID, t.Path); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) ListQuestions(ctx context.Context, projectID string) ([]types.Question, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, tag_id, tag_label, text, answered
		 FROM questions WHERE project_id = $1 ORDER BY question_id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.Question
	for rows.Next() {
		var q types.Question
		if err := rows.Scan(&q.ID, &q.TagID, &q.TagLabel, &q.Text, &q.Answered); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AddQuestions(ctx context.Context, projectID string, questions []types.Question) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	for _, q := range questions {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO questions (question_id, project_id, tag_id, tag_label, text, answered)
			 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (question_id) DO NOTHING`,
			q.ID, projectID, q.TagID, q.TagLabel, q.Text, q.Answered); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) PutDataset(ctx context.Context, projectID string, rec types.DatasetRecord) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (question_id, project_id, answer, model, confirmed)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (question_id) DO UPDATE SET answer = EXCLUDED.answer, model = EXCLUDED.model`,
		rec.QuestionID, projectID, rec.Answer, rec.Model, rec.Confirmed); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE questions SET answered = TRUE WHERE question_id = $1`, rec.QuestionID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) ListDatasets(ctx context.Context, projectID string) ([]types.DatasetRecord, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, answer, model, confirmed FROM datasets WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.DatasetRecord
	for rows.Next() {
		var r types.DatasetRecord
		if err := rows.Scan(&r.QuestionID, &r.Answer, &r.Model, &r.Confirmed); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PutConversation(ctx context.Context, projectID string, conv types.MultiTurnConversation) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	turns, err := json.Marshal(conv.Turns)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (question_id, project_id, scenario, role_a, role_b, rounds, turns)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (question_id) DO NOTHING`,
		conv.QuestionID, projectID, conv.Scenario, conv.RoleA, conv.RoleB, conv.Rounds, turns)
	return err
}

func (s *PostgresStore) ListConversations(ctx context.Context, projectID string) ([]types.MultiTurnConversation, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, scenario, role_a, role_b, rounds, turns
		 FROM conversations WHERE project_id = $1 ORDER BY question_id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.MultiTurnConversation
	for rows.Next() {
		var (
			c     types.MultiTurnConversation
			turns []byte
		)
		if err := rows.Scan(&c.QuestionID, &c.Scenario, &c.RoleA, &c.RoleB, &c.Rounds, &turns); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(turns, &c.Turns); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListConversationQuestionIDs(ctx context.Context, projectID string) ([]string, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id FROM conversations WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// DB exposes the underlying handle so sibling repositories can share the
// same connection pool.
func (s *PostgresStore) DB() *sql.DB { return s.db }

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
