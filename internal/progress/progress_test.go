package progress

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/vismem/internal/model"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "vismem", "progress.json"), nil)
}

func TestLoadMissingIsEmpty(t *testing.T) {
	st := newStore(t)
	records, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAppendCreatesLog(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	rec := model.NewProgressRecord(time.Date(2024, 5, 1, 9, 30, 12, 0, time.Local), 3, 5)

	require.NoError(t, st.Append(ctx, rec))

	records, err := st.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Timestamp.Equal(rec.Timestamp))
	assert.Equal(t, "3/5", records[0].Score)
}

func TestAppendWritesCompatibleDocument(t *testing.T) {
	st := newStore(t)
	rec := model.NewProgressRecord(time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local), 2, 4)
	require.NoError(t, st.Append(context.Background(), rec))

	data, err := os.ReadFile(st.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"progressi":[{"time-stamp":"01/05/24 09:30","score":"2/4"}]}`, string(data))
}

func TestLoadSortsNewestFirstStable(t *testing.T) {
	st := newStore(t)
	doc := `{"progressi": [
		{"time-stamp": "01/02/24 10:00", "score": "1/3"},
		{"time-stamp": "03/02/24 08:15", "score": "2/3"},
		{"time-stamp": "01/02/24 10:00", "score": "3/3"},
		{"time-stamp": "28/12/23 23:59", "score": "0/3"}
	]}`
	require.NoError(t, os.MkdirAll(filepath.Dir(st.Path()), 0o755))
	require.NoError(t, os.WriteFile(st.Path(), []byte(doc), 0o644))

	ctx := context.Background()
	records, err := st.Load(ctx)
	require.NoError(t, err)
	scores := make([]string, len(records))
	for i, r := range records {
		scores[i] = r.Score
	}
	assert.Equal(t, []string{"2/3", "1/3", "3/3", "0/3"}, scores)

	again, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, again)
}

func TestAppendRefusesCorruptLog(t *testing.T) {
	st := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(st.Path()), 0o755))
	require.NoError(t, os.WriteFile(st.Path(), []byte(`{"progressi": [`), 0o644))

	err := st.Append(context.Background(), model.NewProgressRecord(time.Now(), 1, 1))
	var pe *model.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "parse", pe.Op)

	data, err := os.ReadFile(st.Path())
	require.NoError(t, err)
	assert.Equal(t, `{"progressi": [`, string(data))
}

func TestLoadRejectsBadTimestamp(t *testing.T) {
	st := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(st.Path()), 0o755))
	require.NoError(t, os.WriteFile(st.Path(), []byte(`{"progressi":[{"time-stamp":"yesterday","score":"1/1"}]}`), 0o644))

	_, err := st.Load(context.Background())
	var pe *model.PersistenceError
	require.True(t, errors.As(err, &pe))
}

func TestLoadEmptyDocument(t *testing.T) {
	st := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(st.Path()), 0o755))
	require.NoError(t, os.WriteFile(st.Path(), []byte(`{}`), 0o644))

	records, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestConcurrentAppendsKeepEveryRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	ctx := context.Background()
	const writers = 8

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Separate Store values open separate lock handles, like separate processes.
			st := New(path, nil)
			errs <- st.Append(ctx, model.ProgressRecord{Timestamp: time.Now(), Score: fmt.Sprintf("%d/8", i)})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	records, err := New(path, nil).Load(ctx)
	require.NoError(t, err)
	assert.Len(t, records, writers)
}
