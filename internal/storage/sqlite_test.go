package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatewire/config"
)

func TestNew_MemoryHasNoConnection(t *testing.T) {
	s, err := New(context.Background(), config.StorageConfig{Type: TypeMemory})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Type: "dynamo"})
	assert.ErrorContains(t, err, "unknown storage type")
}

func TestSQLiteConcurrentWrites(t *testing.T) {
	s, err := New(context.Background(), config.StorageConfig{
		Type:   TypeSQLite,
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "nested", "test.db")},
	})
	require.NoError(t, err)
	defer s.Close()

	db := s.(*SQLite).DB
	_, err = db.Exec(`CREATE TABLE invocations_probe (id TEXT PRIMARY KEY, data TEXT)`)
	require.NoError(t, err)

	const goroutines, perGoroutine = 8, 25
	var wg sync.WaitGroup
	errs := make(chan error, goroutines*perGoroutine)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				if _, err := db.Exec(`INSERT INTO invocations_probe (id, data) VALUES (?, ?)`, fmt.Sprintf("%d-%d", id, j), "x"); err != nil {
					errs <- err
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent write error: %v", err)
	}

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM invocations_probe`).Scan(&count))
	assert.Equal(t, goroutines*perGoroutine, count)
}
