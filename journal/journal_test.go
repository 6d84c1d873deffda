package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	j, err := Open(Options{})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, j)
	assert.NoError(t, j.RecordRun(RunRecord{}))
	assert.NoError(t, j.RecordOrder(OrderRecord{}))
	assert.NoError(t, j.Close())

	j, err = Open(Options{Type: "csv", RunsFile: filepath.Join(dir, "r.csv"), OrdersFile: filepath.Join(dir, "o.csv")})
	require.NoError(t, err)
	assert.IsType(t, &CSV{}, j)
	assert.NoError(t, j.Close())

	j, err = Open(Options{Type: "sqlite", DBPath: filepath.Join(dir, "j.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, j)
	assert.NoError(t, j.Close())

	_, err = Open(Options{Type: "postgres"})
	assert.ErrorContains(t, err, "unknown journal type")
}
