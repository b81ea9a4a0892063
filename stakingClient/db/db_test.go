package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/easystake/stakingClient/store"
)

func TestDB_OpenModes(t *testing.T) {
	t.Run("in-memory alias", func(t *testing.T) {
		db, err := OpenInMemoryDB(true)
		require.NoError(t, err)
		require.NotNil(t, db)

		runSampleInsertSelectTest(t, db)
		assert.NoError(t, db.Close())
	})

	t.Run("file-based DB", func(t *testing.T) {
		dir := t.TempDir()
		dbName := "test.db"

		db, err := OpenFileDB(dir, dbName, true)
		require.NoError(t, err)
		require.NotNil(t, db)

		assert.FileExists(t, filepath.Join(dir, dbName))

		runSampleInsertSelectTest(t, db)

		assert.NoError(t, db.Close())

		t.Run("close twice", func(t *testing.T) {
			assert.NoError(t, db.Close())
			assert.ErrorIs(t, db.Ping(), ErrClosed)
		})
	})

	t.Run("empty filename uses default", func(t *testing.T) {
		dir := t.TempDir()

		db, err := OpenFileDB(dir, "", true)
		require.NoError(t, err)
		defer db.Close()

		assert.Equal(t, filepath.Join(dir, DefaultFileName), db.Path())
		assert.FileExists(t, db.Path())
		assert.NoError(t, db.Ping())
	})

	t.Run("file pragmas", func(t *testing.T) {
		db, err := OpenFileDB(t.TempDir(), DefaultFileName, false)
		require.NoError(t, err)
		defer db.Close()

		var journal string
		require.NoError(t, db.Client().Raw("PRAGMA journal_mode").Scan(&journal).Error)
		assert.Equal(t, "wal", journal)

		var synchronous int
		require.NoError(t, db.Client().Raw("PRAGMA synchronous").Scan(&synchronous).Error)
		assert.Equal(t, 1, synchronous, "NORMAL")

		var timeout int
		require.NoError(t, db.Client().Raw("PRAGMA busy_timeout").Scan(&timeout).Error)
		assert.Equal(t, 5000, timeout)
	})

	t.Run("in-memory path", func(t *testing.T) {
		db, err := OpenInMemoryDB(false)
		require.NoError(t, err)
		defer db.Close()
		assert.Equal(t, InMemorySQLiteDSN, db.Path())
	})

	t.Run("nested directory is created", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data", "nested")

		db, err := OpenFileDB(dir, DefaultFileName, true)
		require.NoError(t, err)
		defer db.Close()

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("unique account/key", func(t *testing.T) {
		db, err := OpenInMemoryDB(true)
		require.NoError(t, err)
		defer db.Close()

		first := store.MetaEntry{Account: "acc", Key: "stakingConsts", ChainName: "Polkadot"}
		require.NoError(t, db.Client().Create(&first).Error)

		dup := store.MetaEntry{Account: "acc", Key: "stakingConsts", ChainName: "Kusama"}
		assert.Error(t, db.Client().Create(&dup).Error)
	})
}

func runSampleInsertSelectTest(t *testing.T, db *DB) {
	entry := store.MetaEntry{
		Account:   "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY",
		Key:       "validatorsInfo",
		ChainName: "Westend",
		MetaData:  []byte(`{"currentEraIndex":10}`),
		Hash:      42,
		Version:   1,
	}

	err := db.Client().Create(&entry).Error
	require.NoError(t, err)

	var result store.MetaEntry
	err = db.Client().First(&result).Error
	require.NoError(t, err)
	assert.Equal(t, "Westend", result.ChainName)
	assert.Equal(t, int64(42), result.Hash)
	assert.JSONEq(t, `{"currentEraIndex":10}`, string(result.MetaData))
}
