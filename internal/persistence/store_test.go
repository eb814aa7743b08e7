package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"cargotrack/pkg/platform/sentinel"
)

// storeContract runs the same save/load expectations against every backend.
func storeContract(s *suite.Suite, newStore func() Store) {
	ctx := context.Background()

	s.Run("load before save is not found", func() {
		_, err := newStore().Load(ctx)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("save then load", func() {
		store := newStore()
		s.Require().NoError(store.Save(ctx, sampleSnapshot()))

		got, err := store.Load(ctx)
		s.Require().NoError(err)
		s.Equal(sampleSnapshot().Items, got.Items)
		s.Len(got.Containers, 2)
		s.False(got.SavedAt.IsZero())
	})

	s.Run("save overwrites", func() {
		store := newStore()
		s.Require().NoError(store.Save(ctx, sampleSnapshot()))
		s.Require().NoError(store.Save(ctx, &Snapshot{}))

		got, err := store.Load(ctx)
		s.Require().NoError(err)
		s.Empty(got.Items)
		s.Empty(got.Containers)
	})
}

type FileStoreSuite struct {
	suite.Suite
	dir string
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, new(FileStoreSuite))
}

func (s *FileStoreSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *FileStoreSuite) TestContract() {
	n := 0
	storeContract(&s.Suite, func() Store {
		n++
		return NewFileStore(filepath.Join(s.dir, "state"+string(rune('a'+n))+".json"), nil)
	})
}

func (s *FileStoreSuite) TestCBORFile() {
	store := NewFileStore(filepath.Join(s.dir, "state.cbor"), CBORCodec{})
	s.Require().NoError(store.Save(context.Background(), sampleSnapshot()))

	got, err := store.Load(context.Background())
	s.Require().NoError(err)
	s.Len(got.Items, 2)
}

func (s *FileStoreSuite) TestNoTempFilesLeft() {
	path := filepath.Join(s.dir, "server_state.json")
	store := NewFileStore(path, nil)
	s.Require().NoError(store.Save(context.Background(), sampleSnapshot()))

	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Len(entries, 1)
	s.Equal("server_state.json", entries[0].Name())
}

func (s *FileStoreSuite) TestSaveIntoMissingDirectoryFails() {
	store := NewFileStore(filepath.Join(s.dir, "missing", "state.json"), nil)
	s.Error(store.Save(context.Background(), sampleSnapshot()))
}

func (s *FileStoreSuite) TestCorruptFile() {
	path := filepath.Join(s.dir, "server_state.json")
	s.Require().NoError(os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path, nil).Load(context.Background())

	s.Error(err)
	s.NotErrorIs(err, sentinel.ErrNotFound)
}

type RedisStoreSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *redis.Client
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	s.client = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
}

func (s *RedisStoreSuite) TearDownTest() {
	_ = s.client.Close()
}

func (s *RedisStoreSuite) TestContract() {
	storeContract(&s.Suite, func() Store {
		s.mr.FlushAll()
		return NewRedisStore(s.client, "", CBORCodec{})
	})
}

func (s *RedisStoreSuite) TestCodecMismatch() {
	ctx := context.Background()
	s.Require().NoError(NewRedisStore(s.client, "k", JSONCodec{}).Save(ctx, sampleSnapshot()))

	_, err := NewRedisStore(s.client, "k", CBORCodec{}).Load(ctx)

	s.ErrorContains(err, "encoded as json")
}

func (s *RedisStoreSuite) TestServerDown() {
	s.mr.Close()
	_, err := NewRedisStore(s.client, "", nil).Load(context.Background())
	s.Error(err)
	s.NotErrorIs(err, sentinel.ErrNotFound)
}

type SQLiteStoreSuite struct {
	suite.Suite
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, new(SQLiteStoreSuite))
}

func (s *SQLiteStoreSuite) newStore(name string) Store {
	ctx := context.Background()
	db, err := Open(ctx, DialectSQLite, "file:"+filepath.Join(s.T().TempDir(), "cargo.db"))
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = db.Close() })
	store := NewSQLStore(db, DialectSQLite, name, nil)
	s.Require().NoError(store.InitSchema(ctx))
	s.Require().NoError(store.InitSchema(ctx), "schema creation is idempotent")
	return store
}

func (s *SQLiteStoreSuite) TestContract() {
	storeContract(&s.Suite, func() Store { return s.newStore("") })
}

func (s *SQLiteStoreSuite) TestNamedSnapshotsAreIndependent() {
	ctx := context.Background()
	db, err := Open(ctx, DialectSQLite, ":memory:")
	s.Require().NoError(err)
	defer db.Close()

	a := NewSQLStore(db, DialectSQLite, "a", nil)
	b := NewSQLStore(db, DialectSQLite, "b", nil)
	s.Require().NoError(a.InitSchema(ctx))
	s.Require().NoError(a.Save(ctx, sampleSnapshot()))

	_, err = b.Load(ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
