package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"unicode/utf8"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/studyflow/internal/db"
	apperrors "github.com/vytor/studyflow/internal/errors"
	"github.com/vytor/studyflow/internal/logger"
	"github.com/vytor/studyflow/internal/store"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// Store is a store.Store backed by the documents table. Writes are
// serialized by a mutex that also orders subscription delivery.
type Store struct {
	db  *sql.DB
	hub *store.Hub
	mu  sync.Mutex
}

var (
	_ store.Store    = (*Store)(nil)
	_ store.Appender = (*Store)(nil)
)

// New creates a Store on an already migrated database.
func New(sqlDB *sql.DB) *Store {
	return &Store{db: sqlDB, hub: store.NewHub()}
}

func pathEq(p store.Path) squirrel.Eq {
	return squirrel.Eq{"user_id": p.User, "collection": string(p.Collection), "doc_key": p.Key}
}

func keyPrefix(prefix string) squirrel.Sqlizer {
	if prefix == "" {
		return squirrel.Expr("1 = 1")
	}
	return squirrel.Expr("substr(doc_key, 1, ?) = ?", utf8.RuneCountInString(prefix), prefix)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getBody(ctx context.Context, q queryRower, p store.Path) (store.Document, error) {
	query, args, err := sqlBuilder.Select("body").From("documents").Where(pathEq(p)).ToSql()
	if err != nil {
		return nil, err
	}
	var body string
	err = q.QueryRowContext(ctx, query, args...).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return store.Document(body), nil
}

func putBody(ctx context.Context, tx *sql.Tx, p store.Path, doc store.Document) error {
	query, args, err := sqlBuilder.Insert("documents").
		Columns("user_id", "collection", "doc_key", "body").
		Values(p.User, string(p.Collection), p.Key, string(doc)).
		Suffix("ON CONFLICT (user_id, collection, doc_key) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP").
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func (s *Store) Get(ctx context.Context, p store.Path) (store.Document, error) {
	log := logger.FromContext(ctx).WithPrefix("store")
	log.Debug("get %s", p)

	doc, err := getBody(ctx, s.db, p)
	if err != nil {
		log.Error("failed to get %s: %v", p, err)
		return nil, apperrors.NewTransientStoreError("get", err)
	}
	return doc, nil
}

func (s *Store) Set(ctx context.Context, p store.Path, doc store.Document, merge bool) error {
	log := logger.FromContext(ctx).WithPrefix("store")
	log.Debug("set %s merge=%t", p, merge)

	s.mu.Lock()
	defer s.mu.Unlock()

	var written store.Document
	err := db.Tx(ctx, s.db, func(tx *sql.Tx) error {
		next := doc
		if merge {
			current, err := getBody(ctx, tx, p)
			if err != nil {
				return err
			}
			if next, err = store.Merge(current, doc); err != nil {
				return err
			}
		}
		written = next
		return putBody(ctx, tx, p, next)
	})
	if err != nil {
		log.Error("failed to set %s: %v", p, err)
		return apperrors.NewTransientStoreError("set", err)
	}
	s.hub.Publish(p, written)
	return nil
}

func (s *Store) Delete(ctx context.Context, p store.Path) error {
	log := logger.FromContext(ctx).WithPrefix("store")
	log.Debug("delete %s", p)

	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := sqlBuilder.Delete("documents").Where(pathEq(p)).ToSql()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to delete %s: %v", p, err)
		return apperrors.NewTransientStoreError("delete", err)
	}
	// Deleting an absent document is still acknowledged to subscribers.
	s.hub.Publish(p, nil)
	return nil
}

func (s *Store) List(ctx context.Context, user string, c store.Collection, prefix string) ([]store.Entry, error) {
	log := logger.FromContext(ctx).WithPrefix("store")
	log.Debug("list users/%s/%s prefix=%q", user, c, prefix)

	query, args, err := sqlBuilder.Select("doc_key", "body").From("documents").
		Where(squirrel.Eq{"user_id": user, "collection": string(c)}).
		Where(keyPrefix(prefix)).
		OrderBy("doc_key").
		ToSql()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list users/%s/%s: %v", user, c, err)
		return nil, apperrors.NewTransientStoreError("list", err)
	}
	defer rows.Close()

	var out []store.Entry
	for rows.Next() {
		var key, body string
		if err := rows.Scan(&key, &body); err != nil {
			log.Error("failed to scan document row: %v", err)
			return nil, apperrors.NewTransientStoreError("list", err)
		}
		out = append(out, store.Entry{
			Path: store.Path{User: user, Collection: c, Key: key},
			Doc:  store.Document(body),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewTransientStoreError("list", err)
	}
	log.Debug("listed %d documents", len(out))
	return out, nil
}

func (s *Store) DeletePrefix(ctx context.Context, user string, c store.Collection, prefix string) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("store")
	log.Debug("delete users/%s/%s prefix=%q", user, c, prefix)

	s.mu.Lock()
	defer s.mu.Unlock()

	where := squirrel.And{squirrel.Eq{"user_id": user, "collection": string(c)}, keyPrefix(prefix)}
	var keys []string
	err := db.Tx(ctx, s.db, func(tx *sql.Tx) error {
		query, args, err := sqlBuilder.Select("doc_key").From("documents").Where(where).ToSql()
		if err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				rows.Close()
				return err
			}
			keys = append(keys, k)
		}
		if err := rows.Close(); err != nil {
			return err
		}

		query, args, err = sqlBuilder.Delete("documents").Where(where).ToSql()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		log.Error("failed to delete by prefix: %v", err)
		return 0, apperrors.NewTransientStoreError("delete", err)
	}
	for _, k := range keys {
		s.hub.Publish(store.Path{User: user, Collection: c, Key: k}, nil)
	}
	log.Debug("deleted %d documents", len(keys))
	return len(keys), nil
}

// AtomicAppend appends entry to the array field of p inside one immediate
// transaction, creating the document from seed when it does not exist.
func (s *Store) AtomicAppend(ctx context.Context, p store.Path, field string, entry any, seed store.Document) error {
	log := logger.FromContext(ctx).WithPrefix("store")
	log.Debug("append %s.%s", p, field)

	s.mu.Lock()
	defer s.mu.Unlock()

	var written store.Document
	err := db.Tx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := getBody(ctx, tx, p)
		if err != nil {
			return err
		}
		if written, err = store.AppendField(current, seed, field, entry); err != nil {
			return err
		}
		return putBody(ctx, tx, p, written)
	})
	if err != nil {
		log.Error("failed to append to %s: %v", p, err)
		return apperrors.NewTransientStoreError("append", err)
	}
	s.hub.Publish(p, written)
	return nil
}

// Subscribe delivers the current value of p and then every committed change.
func (s *Store) Subscribe(ctx context.Context, p store.Path, fn func(store.Document)) (store.Unsubscribe, error) {
	log := logger.FromContext(ctx).WithPrefix("store")
	log.Debug("subscribe %s", p)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := getBody(ctx, s.db, p)
	if err != nil {
		log.Error("failed to read %s for subscription: %v", p, err)
		return nil, apperrors.NewTransientStoreError("subscribe", err)
	}
	return s.hub.Add(ctx, p, current, fn), nil
}

// Subscribers reports how many live subscriptions watch p.
func (s *Store) Subscribers(p store.Path) int {
	return s.hub.Count(p)
}
