package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	core "github.com/mohammad-safakhou/axiom/internal/agent/core"
)

func TestSaveChatCreatesThread(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	rec := core.ChatRecord{
		UserID:  "user-1",
		Query:   "What is the capital of France and why did it become the capital over time?",
		Answer:  "Paris.",
		Sources: []core.SearchResult{{Title: "Paris", URL: "https://a", Content: "c"}},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO threads (user_id, title) VALUES ($1,$2) RETURNING id`)).
		WithArgs("user-1", "What is the capital of France and why did it becom").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO messages (thread_id, role, content) VALUES ($1,$2,$3)`)).
		WithArgs(int64(42), RoleUser, rec.Query).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO messages (thread_id, role, content, sources) VALUES ($1,$2,$3,$4)`)).
		WithArgs(int64(42), RoleAssistant, "Paris.", []byte(`{"sources":[{"title":"Paris","url":"https://a","content":"c"}],"images":[]}`)).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	id, err := st.SaveChat(context.Background(), rec)
	if err != nil {
		t.Fatalf("SaveChat: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected thread 42, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveChatAppendsToThread(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	thread := int64(7)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE threads SET updated_at=NOW() WHERE id=$1`)).
		WithArgs(thread).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO messages (thread_id, role, content) VALUES ($1,$2,$3)`)).
		WithArgs(thread, RoleUser, "follow up").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO messages (thread_id, role, content, sources) VALUES ($1,$2,$3,$4)`)).
		WithArgs(thread, RoleAssistant, "answer", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectCommit()

	id, err := st.SaveChat(context.Background(), core.ChatRecord{UserID: "u", ThreadID: &thread, Query: "follow up", Answer: "answer"})
	if err != nil {
		t.Fatalf("SaveChat: %v", err)
	}
	if id != thread {
		t.Fatalf("expected thread %d, got %d", thread, id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveChatUnknownThreadRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	thread := int64(99)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE threads SET updated_at=NOW() WHERE id=$1`)).
		WithArgs(thread).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if _, err := st.SaveChat(context.Background(), core.ChatRecord{ThreadID: &thread, Query: "q"}); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveChatAnonymousOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO threads (user_id, title) VALUES ($1,$2) RETURNING id`)).
		WithArgs(AnonymousUser, "q").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO messages (thread_id, role, content) VALUES ($1,$2,$3)`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if _, err := st.SaveChat(context.Background(), core.ChatRecord{Query: "q"}); err == nil {
		t.Fatalf("expected error when message insert fails")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetThreadDecodesSources(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, title, is_public, created_at, updated_at FROM threads WHERE id=$1`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "is_public", "created_at", "updated_at"}).
			AddRow(int64(5), "u", "Title", false, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, role, content, sources, created_at FROM messages WHERE thread_id=$1 ORDER BY created_at ASC, id ASC`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "content", "sources", "created_at"}).
			AddRow(int64(1), RoleUser, "q", nil, now).
			AddRow(int64(2), RoleAssistant, "a", []byte(`{"sources":[{"title":"T","url":"https://a","content":"c"}],"images":["i"]}`), now).
			AddRow(int64(3), RoleAssistant, "b", []byte(`[{"title":"Old","url":"https://old","content":""}]`), now))

	th, msgs, err := st.GetThread(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	if th.UserID != "u" || th.Title != "Title" {
		t.Fatalf("unexpected thread %+v", th)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if len(msgs[0].Sources) != 0 || msgs[0].Sources == nil {
		t.Fatalf("expected empty non-nil sources on user turn, got %#v", msgs[0].Sources)
	}
	want := []core.SearchResult{{Title: "T", URL: "https://a", Content: "c"}}
	if diff := cmp.Diff(want, msgs[1].Sources); diff != "" {
		t.Fatalf("unexpected sources (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"i"}, msgs[1].Images); diff != "" {
		t.Fatalf("unexpected images (-want +got):\n%s", diff)
	}
	if len(msgs[2].Sources) != 1 || msgs[2].Sources[0].URL != "https://old" {
		t.Fatalf("expected array-form sources to decode, got %+v", msgs[2].Sources)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetThreadNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, title, is_public, created_at, updated_at FROM threads WHERE id=$1`)).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "is_public", "created_at", "updated_at"}))

	if _, _, err := st.GetThread(context.Background(), 404); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
}

func TestListThreadsPreview(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	now := time.Now()
	long := ""
	for i := 0; i < 30; i++ {
		long += "abcde"
	}
	mock.ExpectQuery(`SELECT t.id, t.title, t.updated_at, COALESCE\(m.content, ''\)`).
		WithArgs("u", historyLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "updated_at", "content"}).
			AddRow(int64(2), "Recent", now, long).
			AddRow(int64(1), "Empty", now.Add(-time.Hour), ""))

	got, err := st.ListThreads(context.Background(), "u")
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 threads, got %d", len(got))
	}
	if len(got[0].Preview) != previewMaxRunes {
		t.Fatalf("expected preview truncated to %d, got %d", previewMaxRunes, len(got[0].Preview))
	}
	if got[1].Preview != "Empty thread" {
		t.Fatalf("expected placeholder preview, got %q", got[1].Preview)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteThread(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM threads WHERE id=$1`)).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM threads WHERE id=$1`)).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := st.DeleteThread(context.Background(), 3); err != nil {
		t.Fatalf("DeleteThread: %v", err)
	}
	if err := st.DeleteThread(context.Background(), 4); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
