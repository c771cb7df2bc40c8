package failurelog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFailureAppendsLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "failed.txt")
	log := New(path)
	ctx := context.Background()

	require.NoError(t, log.RecordFailure(ctx, "bob"))
	require.NoError(t, log.RecordFailure(ctx, "bob"))
	require.NoError(t, log.RecordFailure(ctx, "carol"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "bob\nbob\ncarol\n", string(raw))

	n, err := log.Count()
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestRecordFailurePreservesExistingContent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "failed.txt")
	require.NoError(t, os.WriteFile(path, []byte("from-last-run\n"), 0o644))

	log := New(path)
	require.NoError(t, log.RecordFailure(context.Background(), "dave"))

	names, err := log.Usernames()
	require.NoError(t, err)
	require.Equal(t, []string{"from-last-run", "dave"}, names)
}

func TestRecordFailureConcurrentWriters(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "failed.txt")
	log := New(path)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, log.RecordFailure(context.Background(), fmt.Sprintf("user%d", i)))
		}(i)
	}
	wg.Wait()

	names, err := log.Usernames()
	require.NoError(t, err)
	require.Len(t, names, 50)
}

func TestUsernamesMissingFile(t *testing.T) {
	t.Parallel()

	names, err := New(filepath.Join(t.TempDir(), "absent.txt")).Usernames()
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestRecordFailureRejectsEmpty(t *testing.T) {
	t.Parallel()

	require.Error(t, New(filepath.Join(t.TempDir(), "f.txt")).RecordFailure(context.Background(), " "))
	require.Equal(t, DefaultPath, New("").Path())
}

func TestRecordFailureUnwritableDirectory(t *testing.T) {
	t.Parallel()

	err := New(filepath.Join(t.TempDir(), "missing", "failed.txt")).RecordFailure(context.Background(), "bob")
	require.ErrorContains(t, err, "open failure log")
}
