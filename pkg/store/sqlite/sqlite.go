// Package sqlite implements the identity, meeting and vector index stores
// on a single SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/syncwise-ai/syncwise/pkg/domain"
	"github.com/syncwise-ai/syncwise/pkg/store"
	"github.com/syncwise-ai/syncwise/pkg/vector"
)

// Store implements store.IdentityStore, store.MeetingStore and vector.Index
// using SQLite.
type Store struct {
	db *sql.DB
}

// Verify interface compliance at compile time.
var _ store.IdentityStore = (*Store)(nil)
var _ store.MeetingStore = (*Store)(nil)
var _ vector.Index = (*Store)(nil)

// New opens (or creates) a SQLite database at the given path and runs
// migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		project_id TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		github_repo TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS chat_tokens (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_token TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_tokens_user ON chat_tokens(user_id, session_token);

	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		service TEXT NOT NULL,
		key TEXT NOT NULL DEFAULT '',
		additional_data TEXT NOT NULL DEFAULT '{}'
	);
	CREATE INDEX IF NOT EXISTS idx_api_keys_project ON api_keys(project_id);

	CREATE TABLE IF NOT EXISTS meetings (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		meeting_id TEXT NOT NULL DEFAULT '',
		attendees TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		ended_at DATETIME,
		bot_id TEXT NOT NULL DEFAULT '',
		bot_state TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		tasks TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_meetings_user ON meetings(user_id, project_id);
	CREATE INDEX IF NOT EXISTS idx_meetings_bot ON meetings(bot_id);

	CREATE TABLE IF NOT EXISTS transcript_chunks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		meeting_id TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		embedding BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_meeting ON transcript_chunks(meeting_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// --- IdentityStore ---

func (s *Store) GetChatToken(ctx context.Context, userID, sessionToken string) (*domain.ChatToken, error) {
	ct := &domain.ChatToken{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, session_token FROM chat_tokens WHERE user_id = ? AND session_token = ?`,
		userID, sessionToken,
	).Scan(&ct.ID, &ct.UserID, &ct.SessionToken)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chat token for user %s: %w", userID, store.ErrNotFound)
	}
	return ct, err
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, project_id FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.ProjectID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	return u, err
}

func (s *Store) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	p := &domain.Project{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, user_id, github_repo FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.UserID, &p.GitHubRepo)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %s: %w", id, store.ErrNotFound)
	}
	return p, err
}

func (s *Store) ListAPIKeys(ctx context.Context, projectID string) ([]domain.APIKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, service, key, additional_data FROM api_keys WHERE project_id = ?`,
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.APIKey
	for rows.Next() {
		var k domain.APIKey
		var extra string
		if err := rows.Scan(&k.ID, &k.ProjectID, &k.Service, &k.Key, &extra); err != nil {
			return nil, err
		}
		if extra != "" {
			if err := json.Unmarshal([]byte(extra), &k.AdditionalData); err != nil {
				return nil, fmt.Errorf("decoding additional data for key %s: %w", k.ID, err)
			}
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// --- MeetingStore ---

func (s *Store) ListMeetings(ctx context.Context, userID, projectID string) ([]domain.Meeting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, user_id, project_id, meeting_id, attendees, created_at, ended_at, bot_id, bot_state, summary, tasks
		 FROM meetings WHERE user_id = ? AND project_id = ? ORDER BY created_at ASC`,
		userID, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []domain.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, *m)
	}
	return meetings, rows.Err()
}

func (s *Store) GetMeetingByBot(ctx context.Context, botID string) (*domain.Meeting, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, user_id, project_id, meeting_id, attendees, created_at, ended_at, bot_id, bot_state, summary, tasks
		 FROM meetings WHERE bot_id = ?`, botID)
	m, err := scanMeeting(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("meeting for bot %s: %w", botID, store.ErrNotFound)
	}
	return m, err
}

func (s *Store) SetBotState(ctx context.Context, meetingID, state string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE meetings SET bot_state = ? WHERE id = ?`, state, meetingID)
	return err
}

func (s *Store) SetMeetingOutcome(ctx context.Context, meetingID, summary string, tasks []domain.Task, endedAt time.Time) error {
	if summary != "" {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE meetings SET summary = ? WHERE id = ?`, summary, meetingID); err != nil {
			return err
		}
	}
	if tasks != nil {
		b, err := json.Marshal(tasks)
		if err != nil {
			return fmt.Errorf("encoding tasks: %w", err)
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE meetings SET tasks = ? WHERE id = ?`, string(b), meetingID); err != nil {
			return err
		}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE meetings SET ended_at = ? WHERE id = ?`, endedAt.UTC(), meetingID)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row scanner) (*domain.Meeting, error) {
	m := &domain.Meeting{}
	var attendees, tasks string
	var endedAt sql.NullTime
	err := row.Scan(&m.ID, &m.Name, &m.UserID, &m.ProjectID, &m.MeetingID,
		&attendees, &m.CreatedAt, &endedAt, &m.BotID, &m.BotState, &m.Summary, &tasks)
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t := endedAt.Time
		m.EndedAt = &t
	}
	if err := json.Unmarshal([]byte(attendees), &m.Attendees); err != nil {
		return nil, fmt.Errorf("decoding attendees for meeting %s: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(tasks), &m.Tasks); err != nil {
		return nil, fmt.Errorf("decoding tasks for meeting %s: %w", m.ID, err)
	}
	return m, nil
}

// --- Seed/admin helpers (used by provisioning and tests) ---

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, project_id) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.ProjectID)
	return err
}

func (s *Store) CreateProject(ctx context.Context, p *domain.Project) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, description, user_id, github_repo) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.UserID, p.GitHubRepo)
	return err
}

func (s *Store) SetUserProject(ctx context.Context, userID, projectID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET project_id = ? WHERE id = ?`, projectID, userID)
	return err
}

func (s *Store) CreateChatToken(ctx context.Context, ct *domain.ChatToken) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_tokens (id, user_id, session_token) VALUES (?, ?, ?)`,
		ct.ID, ct.UserID, ct.SessionToken)
	return err
}

func (s *Store) CreateAPIKey(ctx context.Context, k *domain.APIKey) error {
	extra := "{}"
	if k.AdditionalData != nil {
		b, err := json.Marshal(k.AdditionalData)
		if err != nil {
			return fmt.Errorf("encoding additional data: %w", err)
		}
		extra = string(b)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, project_id, service, key, additional_data) VALUES (?, ?, ?, ?, ?)`,
		k.ID, k.ProjectID, k.Service, k.Key, extra)
	return err
}

func (s *Store) CreateMeeting(ctx context.Context, m *domain.Meeting) error {
	attendees, err := json.Marshal(m.Attendees)
	if err != nil {
		return fmt.Errorf("encoding attendees: %w", err)
	}
	if m.Tasks == nil {
		m.Tasks = []domain.Task{}
	}
	tasks, err := json.Marshal(m.Tasks)
	if err != nil {
		return fmt.Errorf("encoding tasks: %w", err)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	var endedAt any
	if m.EndedAt != nil {
		endedAt = m.EndedAt.UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meetings (id, name, user_id, project_id, meeting_id, attendees, created_at, ended_at, bot_id, bot_state, summary, tasks)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.UserID, m.ProjectID, m.MeetingID, string(attendees),
		m.CreatedAt.UTC(), endedAt, m.BotID, m.BotState, m.Summary, string(tasks))
	return err
}

// --- vector.Index ---

func (s *Store) Upsert(ctx context.Context, chunks []vector.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning upsert tx: %w", err)
	}
	defer tx.Rollback()

	for _, c := range chunks {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO transcript_chunks (id, user_id, meeting_id, content, embedding)
			 VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.UserID, c.MeetingID, c.Content, vector.EncodeEmbedding(c.Embedding))
		if err != nil {
			return fmt.Errorf("upserting chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Search(ctx context.Context, embedding []float32, meetingID string, topK int) ([]vector.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, meeting_id, content, embedding FROM transcript_chunks WHERE meeting_id = ?`,
		meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type scored struct {
		chunk vector.Chunk
		score float64
	}
	var candidates []scored
	for rows.Next() {
		var c vector.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.UserID, &c.MeetingID, &c.Content, &blob); err != nil {
			return nil, err
		}
		c.Embedding = vector.DecodeEmbedding(blob)
		candidates = append(candidates, scored{chunk: c, score: vector.Cosine(embedding, c.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	out := make([]vector.Chunk, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.chunk)
	}
	return out, nil
}
