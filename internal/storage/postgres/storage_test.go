package postgres

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/comicguess/internal/storage"
	"github.com/mcoot/comicguess/internal/storage/storagetest"
)

// The suite needs a disposable database; every test truncates all tables.
const dsnEnv = "COMICGUESS_TEST_DATABASE_URL"

type StorageSuite struct {
	storagetest.Suite
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}

	cfg := DefaultConfig()
	cfg.DSN = dsn
	store, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	s := &StorageSuite{storage: store}
	s.NewStorage = func() storage.Storage {
		err := store.db.Exec("TRUNCATE players, registered_players, characters, puzzles, guesses, progress").Error
		s.Require().NoError(err)
		return store
	}
	suite.Run(t, s)
}
