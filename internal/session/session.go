// Package session persists login tokens between CLI invocations in a
// SQLite database inside the data directory, one session per server URL.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/worksite/pkg/types"
)

// DBFileName is the database file created in the data directory.
const DBFileName = "sessions.db"

const createSessions = `CREATE TABLE IF NOT EXISTS sessions (
    server TEXT PRIMARY KEY,
    username TEXT NOT NULL,
    token TEXT NOT NULL,
    user_id INTEGER NOT NULL DEFAULT 0,
    role TEXT NOT NULL DEFAULT '',
    expires_at TEXT,
    created_at TEXT NOT NULL
);`

// Session is a stored login.
type Session struct {
	Server    string    `json:"server"`
	Username  string    `json:"username"`
	Token     string    `json:"-"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session token is past its expiry at now.
// Sessions without an expiry never expire.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// FromAuth builds a session for server from a login or registration
// result. Identity comes from the response, falling back to the token
// claims; the expiry always comes from the token.
func FromAuth(server string, res types.AuthResult, now time.Time) (Session, error) {
	claims, err := ParseToken(res.Token)
	if err != nil {
		return Session{}, err
	}

	s := Session{
		Server:    server,
		Username:  res.User.Username,
		Token:     res.Token,
		UserID:    res.User.ID,
		Role:      res.User.Role,
		ExpiresAt: claims.ExpiresAtTime(),
		CreatedAt: now.UTC(),
	}
	if s.Username == "" {
		s.Username = claims.Username
	}
	if s.UserID == 0 {
		s.UserID = claims.UserID
	}
	if s.Role == "" {
		s.Role = claims.Role
	}
	return s, nil
}

// Store reads and writes sessions.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the session database in dataDir.
func Open(dataDir string) (*Store, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, DBFileName))
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if _, err := db.Exec(createSessions); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (st *Store) Close() error {
	return st.db.Close()
}

// Save stores s, replacing any session for the same server.
func (st *Store) Save(ctx context.Context, s Session) error {
	if s.Server == "" {
		return errors.New("session server must not be empty")
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = st.now().UTC()
	}

	_, err := st.db.ExecContext(ctx,
		`INSERT INTO sessions (server, username, token, user_id, role, expires_at, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(server) DO UPDATE SET
           username = excluded.username,
           token = excluded.token,
           user_id = excluded.user_id,
           role = excluded.role,
           expires_at = excluded.expires_at,
           created_at = excluded.created_at`,
		s.Server, s.Username, s.Token, s.UserID, s.Role, formatTime(s.ExpiresAt), formatTime(s.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns the session for server. It returns types.ErrNoSession when
// there is none, and the session together with types.ErrExpired when its
// token has expired.
func (st *Store) Load(ctx context.Context, server string) (Session, error) {
	row := st.db.QueryRowContext(ctx,
		"SELECT server, username, token, user_id, role, expires_at, created_at FROM sessions WHERE server = ?",
		server,
	)
	s, err := hydrate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, types.ErrNoSession
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if s.Expired(st.now()) {
		return s, types.ErrExpired
	}
	return s, nil
}

// List returns every stored session ordered by server.
func (st *Store) List(ctx context.Context) ([]Session, error) {
	rows, err := st.db.QueryContext(ctx,
		"SELECT server, username, token, user_id, role, expires_at, created_at FROM sessions ORDER BY server",
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := hydrate(rows)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes the session for server. Deleting a missing session is
// not an error.
func (st *Store) Delete(ctx context.Context, server string) error {
	if _, err := st.db.ExecContext(ctx, "DELETE FROM sessions WHERE server = ?", server); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func hydrate(row scanner) (Session, error) {
	var (
		s                  Session
		expiresAt, created sql.NullString
	)
	if err := row.Scan(&s.Server, &s.Username, &s.Token, &s.UserID, &s.Role, &expiresAt, &created); err != nil {
		return Session{}, err
	}
	s.ExpiresAt = parseTime(expiresAt)
	s.CreatedAt = parseTime(created)
	return s, nil
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(v sql.NullString) time.Time {
	if !v.Valid || v.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
