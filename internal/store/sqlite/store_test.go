package sqlite_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/vytor/studyflow/internal/errors"
	"github.com/vytor/studyflow/internal/store"
	"github.com/vytor/studyflow/internal/store/sqlite"
	"github.com/vytor/studyflow/internal/testutil"
)

type StoreSuite struct {
	suite.Suite
	db    *sql.DB
	store *sqlite.Store
}

func (s *StoreSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.store = sqlite.New(s.db)
}

func (s *StoreSuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func path(user string, c store.Collection, key string) store.Path {
	return store.Path{User: user, Collection: c, Key: key}
}

func (s *StoreSuite) decode(doc store.Document) map[string]any {
	var m map[string]any
	s.Require().NoError(json.Unmarshal(doc, &m))
	return m
}

func (s *StoreSuite) TestGet_Absent() {
	doc, err := s.store.Get(context.Background(), path("u1", store.Items, "ANA_1"))
	s.Require().NoError(err)
	s.Assert().Nil(doc)
}

func (s *StoreSuite) TestSet_ReplaceAndMerge() {
	ctx := context.Background()
	p := path("u1", store.Items, "ANA_1")

	s.Require().NoError(s.store.Set(ctx, p, store.Document(`{"stage":1,"title":"Bones"}`), false))
	s.Require().NoError(s.store.Set(ctx, p, store.Document(`{"stage":2}`), true))

	doc, err := s.store.Get(ctx, p)
	s.Require().NoError(err)
	got := s.decode(doc)
	s.Assert().Equal(float64(2), got["stage"])
	s.Assert().Equal("Bones", got["title"])

	s.Require().NoError(s.store.Set(ctx, p, store.Document(`{"stage":3}`), false))
	doc, err = s.store.Get(ctx, p)
	s.Require().NoError(err)
	s.Assert().NotContains(s.decode(doc), "title", "replace must drop unmentioned fields")
}

func (s *StoreSuite) TestUserScope() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, path("u1", store.Items, "ANA_1"), store.Document(`{"stage":1}`), false))

	doc, err := s.store.Get(ctx, path("u2", store.Items, "ANA_1"))
	s.Require().NoError(err)
	s.Assert().Nil(doc)

	entries, err := s.store.List(ctx, "u2", store.Items, "")
	s.Require().NoError(err)
	s.Assert().Empty(entries)
}

func (s *StoreSuite) TestDelete_Idempotent() {
	ctx := context.Background()
	p := path("u1", store.Sessions, "study")
	s.Require().NoError(s.store.Set(ctx, p, store.Document(`{"type":"study"}`), false))

	s.Require().NoError(s.store.Delete(ctx, p))
	s.Require().NoError(s.store.Delete(ctx, p))

	doc, err := s.store.Get(ctx, p)
	s.Require().NoError(err)
	s.Assert().Nil(doc)
}

func (s *StoreSuite) TestList_PrefixIsLiteral() {
	ctx := context.Background()
	for _, key := range []string{"ANA_1", "ANA_2", "ANAX1", "BIO_1", "ANA_10"} {
		s.Require().NoError(s.store.Set(ctx, path("u1", store.Items, key), store.Document(`{}`), false))
	}

	entries, err := s.store.List(ctx, "u1", store.Items, "ANA_")
	s.Require().NoError(err)

	var keys []string
	for _, e := range entries {
		keys = append(keys, e.Path.Key)
	}
	// "_" is a LIKE wildcard; ANAX1 must not match.
	s.Assert().Equal([]string{"ANA_1", "ANA_10", "ANA_2"}, keys)
}

func (s *StoreSuite) TestDeletePrefix() {
	ctx := context.Background()
	for _, key := range []string{"ANA_1", "ANA_2", "BIO_1"} {
		s.Require().NoError(s.store.Set(ctx, path("u1", store.Items, key), store.Document(`{}`), false))
	}
	s.Require().NoError(s.store.Set(ctx, path("u2", store.Items, "ANA_1"), store.Document(`{}`), false))

	n, err := s.store.DeletePrefix(ctx, "u1", store.Items, "ANA_")
	s.Require().NoError(err)
	s.Assert().Equal(2, n)

	left, err := s.store.List(ctx, "u1", store.Items, "")
	s.Require().NoError(err)
	s.Require().Len(left, 1)
	s.Assert().Equal("BIO_1", left[0].Path.Key)

	other, err := s.store.List(ctx, "u2", store.Items, "")
	s.Require().NoError(err)
	s.Assert().Len(other, 1)
}

func (s *StoreSuite) TestAtomicAppend_CreatesThenAppends() {
	ctx := context.Background()
	p := path("u1", store.Achievements, "2025-05-10")
	seed := store.Document(`{"date":"2025-05-10"}`)

	s.Require().NoError(s.store.AtomicAppend(ctx, p, "items", map[string]any{"id": "a"}, seed))
	s.Require().NoError(s.store.AtomicAppend(ctx, p, "items", map[string]any{"id": "b"}, seed))

	doc, err := s.store.Get(ctx, p)
	s.Require().NoError(err)
	var got struct {
		Date  string `json:"date"`
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	s.Require().NoError(doc.Decode(&got))
	s.Assert().Equal("2025-05-10", got.Date)
	s.Require().Len(got.Items, 2)
	s.Assert().Equal("a", got.Items[0].ID)
	s.Assert().Equal("b", got.Items[1].ID)
}

func (s *StoreSuite) TestAtomicAppend_ConcurrentWritersKeepEveryEntry() {
	ctx := context.Background()
	p := path("u1", store.Achievements, "2025-05-10")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Assert().NoError(s.store.AtomicAppend(ctx, p, "items", map[string]any{"id": fmt.Sprint(i)}, nil))
		}(i)
	}
	wg.Wait()

	doc, err := s.store.Get(ctx, p)
	s.Require().NoError(err)
	var got struct {
		Items []map[string]any `json:"items"`
	}
	s.Require().NoError(doc.Decode(&got))
	s.Assert().Len(got.Items, 20)
}

func (s *StoreSuite) TestSubscribe_InitialThenChanges() {
	ctx := context.Background()
	p := path("u1", store.Sessions, "study")
	s.Require().NoError(s.store.Set(ctx, p, store.Document(`{"n":1}`), false))

	var rec testutil.Recorder[store.Document]
	unsubscribe, err := s.store.Subscribe(ctx, p, rec.Record)
	s.Require().NoError(err)
	defer unsubscribe()

	s.Require().Eventually(func() bool { return len(rec.Values()) == 1 }, time.Second, 5*time.Millisecond)
	s.Assert().JSONEq(`{"n":1}`, string(rec.Values()[0]))

	s.Require().NoError(s.store.Set(ctx, p, store.Document(`{"n":2}`), false))
	s.Require().Eventually(func() bool {
		last, ok := rec.Last()
		return ok && string(last) == `{"n":2}`
	}, time.Second, 5*time.Millisecond)

	s.Require().NoError(s.store.Delete(ctx, p))
	s.Require().Eventually(func() bool {
		last, ok := rec.Last()
		return ok && last == nil
	}, time.Second, 5*time.Millisecond)
}

func (s *StoreSuite) TestSubscribe_DeleteOfAbsentDocumentIsDelivered() {
	ctx := context.Background()
	p := path("u1", store.Sessions, "study")

	var calls atomic.Int32
	unsubscribe, err := s.store.Subscribe(ctx, p, func(doc store.Document) {
		if doc == nil {
			calls.Add(1)
		}
	})
	s.Require().NoError(err)
	defer unsubscribe()

	s.Require().Eventually(func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Require().NoError(s.store.Delete(ctx, p))
	s.Require().Eventually(func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func (s *StoreSuite) TestSubscribe_LatestValueWins() {
	ctx := context.Background()
	p := path("u1", store.Sessions, "study")

	var rec testutil.Recorder[store.Document]
	unsubscribe, err := s.store.Subscribe(ctx, p, rec.Record)
	s.Require().NoError(err)
	defer unsubscribe()

	for i := 1; i <= 25; i++ {
		s.Require().NoError(s.store.Set(ctx, p, store.Document(fmt.Sprintf(`{"n":%d}`, i)), false))
	}

	s.Require().Eventually(func() bool {
		last, ok := rec.Last()
		return ok && string(last) == `{"n":25}`
	}, time.Second, 5*time.Millisecond)

	prev := 0
	for _, v := range rec.Values() {
		if v == nil {
			continue
		}
		var got struct{ N int }
		s.Require().NoError(json.Unmarshal(v, &got))
		s.Assert().Greater(got.N, prev, "values must arrive in commit order")
		prev = got.N
	}
}

func (s *StoreSuite) TestSubscribe_UnsubscribeAndContext() {
	p := path("u1", store.Sessions, "study")

	unsubscribe, err := s.store.Subscribe(context.Background(), p, func(store.Document) {})
	s.Require().NoError(err)
	s.Assert().Equal(1, s.store.Subscribers(p))
	unsubscribe()
	unsubscribe()
	s.Assert().Equal(0, s.store.Subscribers(p))

	ctx, cancel := context.WithCancel(context.Background())
	_, err = s.store.Subscribe(ctx, p, func(store.Document) {})
	s.Require().NoError(err)
	cancel()
	s.Assert().Eventually(func() bool { return s.store.Subscribers(p) == 0 }, time.Second, 5*time.Millisecond)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func TestStore_DriverFailuresAreTransient(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	s := sqlite.New(sqlDB)
	ctx := context.Background()
	p := path("u1", store.Items, "ANA_1")

	mock.ExpectQuery("SELECT body FROM documents").WillReturnError(fmt.Errorf("disk I/O error"))
	_, err = s.Get(ctx, p)
	assert.True(t, apperrors.IsTransient(err), "%v", err)

	mock.ExpectBegin().WillReturnError(fmt.Errorf("database is locked"))
	err = s.Set(ctx, p, store.Document(`{}`), false)
	assert.True(t, apperrors.IsTransient(err), "%v", err)

	mock.ExpectExec("DELETE FROM documents").WillReturnError(fmt.Errorf("database is locked"))
	err = s.Delete(ctx, p)
	assert.True(t, apperrors.IsTransient(err), "%v", err)

	mock.ExpectQuery("SELECT doc_key, body FROM documents").WillReturnError(fmt.Errorf("disk I/O error"))
	_, err = s.List(ctx, "u1", store.Items, "")
	assert.True(t, apperrors.IsTransient(err), "%v", err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
