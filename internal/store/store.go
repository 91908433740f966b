package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	core "github.com/mohammad-safakhou/axiom/internal/agent/core"
)

var storeTracer trace.Tracer = otel.Tracer("axiom/internal/store")

// ErrThreadNotFound is returned when a thread id does not exist.
var ErrThreadNotFound = errors.New("thread not found")

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// AnonymousUser owns threads created without an identity.
	AnonymousUser = "anonymous"

	titleMaxRunes   = 50
	previewMaxRunes = 100
	historyLimit    = 50
)

type Store struct {
	DB *sql.DB
}

// Thread is a conversation row.
type Thread struct {
	ID        int64
	UserID    string
	Title     string
	IsPublic  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one turn of a thread. Sources and Images are only set on assistant turns.
type Message struct {
	ID        int64               `json:"id"`
	ThreadID  int64               `json:"thread_id"`
	Role      string              `json:"role"`
	Content   string              `json:"content"`
	Sources   []core.SearchResult `json:"sources"`
	Images    []string            `json:"images"`
	CreatedAt time.Time           `json:"created_at"`
}

// ThreadSummary is a history list entry.
type ThreadSummary struct {
	ID      int64     `json:"id"`
	Title   string    `json:"title"`
	Date    time.Time `json:"date"`
	Preview string    `json:"preview"`
}

type sourcesDoc struct {
	Sources []core.SearchResult `json:"sources"`
	Images  []string            `json:"images"`
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

// SaveChat appends the exchange to rec.ThreadID, or opens a new thread titled after the query
// when no thread id is given. It returns the thread id.
func (s *Store) SaveChat(ctx context.Context, rec core.ChatRecord) (threadID int64, err error) {
	ctx, span := storeTracer.Start(ctx, "store.SaveChat")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	doc, err := json.Marshal(sourcesDoc{Sources: nonNilSources(rec.Sources), Images: nonNilStrings(rec.Images)})
	if err != nil {
		return 0, fmt.Errorf("encode sources: %w", err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if rec.ThreadID == nil {
		owner := strings.TrimSpace(rec.UserID)
		if owner == "" {
			owner = AnonymousUser
		}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO threads (user_id, title) VALUES ($1,$2) RETURNING id`,
			owner, truncateRunes(rec.Query, titleMaxRunes)).Scan(&threadID)
		if err != nil {
			return 0, fmt.Errorf("create thread: %w", err)
		}
	} else {
		threadID = *rec.ThreadID
		res, execErr := tx.ExecContext(ctx, `UPDATE threads SET updated_at=NOW() WHERE id=$1`, threadID)
		if execErr != nil {
			err = fmt.Errorf("touch thread: %w", execErr)
			return 0, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			err = ErrThreadNotFound
			return 0, err
		}
	}
	span.SetAttributes(attribute.Int64("thread.id", threadID))

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO messages (thread_id, role, content) VALUES ($1,$2,$3)`,
		threadID, RoleUser, rec.Query); err != nil {
		return 0, fmt.Errorf("save query: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO messages (thread_id, role, content, sources) VALUES ($1,$2,$3,$4)`,
		threadID, RoleAssistant, rec.Answer, doc); err != nil {
		return 0, fmt.Errorf("save answer: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return threadID, nil
}

// ListThreads returns the caller's most recently updated threads with a preview of the latest message.
func (s *Store) ListThreads(ctx context.Context, userID string) ([]ThreadSummary, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT t.id, t.title, t.updated_at, COALESCE(m.content, '')
FROM threads t
LEFT JOIN LATERAL (
  SELECT content FROM messages WHERE thread_id = t.id ORDER BY created_at DESC, id DESC LIMIT 1
) m ON TRUE
WHERE t.user_id=$1
ORDER BY t.updated_at DESC
LIMIT $2`, userID, historyLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ThreadSummary{}
	for rows.Next() {
		var ts ThreadSummary
		var content string
		if err := rows.Scan(&ts.ID, &ts.Title, &ts.Date, &content); err != nil {
			return nil, err
		}
		ts.Preview = truncateRunes(content, previewMaxRunes)
		if ts.Preview == "" {
			ts.Preview = "Empty thread"
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// GetThread loads a thread and its messages in chronological order.
func (s *Store) GetThread(ctx context.Context, id int64) (Thread, []Message, error) {
	var th Thread
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, user_id, title, is_public, created_at, updated_at FROM threads WHERE id=$1`, id).
		Scan(&th.ID, &th.UserID, &th.Title, &th.IsPublic, &th.CreatedAt, &th.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Thread{}, nil, ErrThreadNotFound
	}
	if err != nil {
		return Thread{}, nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, role, content, sources, created_at FROM messages WHERE thread_id=$1 ORDER BY created_at ASC, id ASC`, id)
	if err != nil {
		return Thread{}, nil, err
	}
	defer rows.Close()
	msgs := []Message{}
	for rows.Next() {
		m := Message{ThreadID: id}
		var raw []byte
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &raw, &m.CreatedAt); err != nil {
			return Thread{}, nil, err
		}
		m.Sources, m.Images = decodeSources(raw)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return Thread{}, nil, err
	}
	return th, msgs, nil
}

// ThreadOwner returns the owner of a thread.
func (s *Store) ThreadOwner(ctx context.Context, id int64) (string, error) {
	var owner string
	err := s.DB.QueryRowContext(ctx, `SELECT user_id FROM threads WHERE id=$1`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrThreadNotFound
	}
	return owner, err
}

// DeleteThread removes a thread; messages go with it.
func (s *Store) DeleteThread(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM threads WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrThreadNotFound
	}
	return nil
}

// decodeSources accepts both the object form and a bare array of sources.
func decodeSources(raw []byte) ([]core.SearchResult, []string) {
	sources, images := []core.SearchResult{}, []string{}
	if len(raw) == 0 {
		return sources, images
	}
	var doc sourcesDoc
	if err := json.Unmarshal(raw, &doc); err == nil {
		return nonNilSources(doc.Sources), nonNilStrings(doc.Images)
	}
	var list []core.SearchResult
	if err := json.Unmarshal(raw, &list); err == nil {
		return nonNilSources(list), images
	}
	return sources, images
}

func nonNilSources(in []core.SearchResult) []core.SearchResult {
	if in == nil {
		return []core.SearchResult{}
	}
	return in
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
