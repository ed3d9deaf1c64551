package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeSession records transaction traffic without a database.
type fakeSession struct {
	begins    int
	closed    bool
	beginErr  error
	commitErr error
	root      *fakeTx
	log       []string

	// Per-statement behavior.
	queryRow func(sql string, args []any) pgx.Row
	exec     func(sql string, args []any) (pgconn.CommandTag, error)
}

func (s *fakeSession) Begin(ctx context.Context) (pgx.Tx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	s.begins++
	s.log = append(s.log, "BEGIN")
	s.root = &fakeTx{session: s}
	return s.root, nil
}

func (s *fakeSession) Close(ctx context.Context) error {
	s.closed = true
	s.log = append(s.log, "CLOSE")
	return nil
}

// fakeTx implements the pgx.Tx methods the repository calls.
// Unimplemented methods panic through the nil embedded interface.
type fakeTx struct {
	pgx.Tx
	session   *fakeSession
	savepoint bool
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) {
	t.session.log = append(t.session.log, "SAVEPOINT")
	return &fakeTx{session: t.session, savepoint: true}, nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.savepoint {
		t.session.log = append(t.session.log, "RELEASE")
		return nil
	}
	t.session.log = append(t.session.log, "COMMIT")
	return t.session.commitErr
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.savepoint {
		t.session.log = append(t.session.log, "ROLLBACK TO SAVEPOINT")
		return nil
	}
	t.session.log = append(t.session.log, "ROLLBACK")
	return nil
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	t.session.log = append(t.session.log, "QUERY")
	if t.session.queryRow != nil {
		return t.session.queryRow(sql, args)
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.session.log = append(t.session.log, "EXEC")
	if t.session.exec != nil {
		return t.session.exec(sql, args)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

// fakeRow scans a single int64 or returns err.
type fakeRow struct {
	id  int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != 1 {
		return errors.New("fakeRow scans exactly one value")
	}
	p, ok := dest[0].(*int64)
	if !ok {
		return errors.New("fakeRow scans into *int64")
	}
	*p = r.id
	return nil
}
