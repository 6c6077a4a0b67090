package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/export"
)

func TestDeliverWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	d, err := New(dir)
	require.NoError(t, err)

	ref, err := d.Deliver(context.Background(), export.Document{
		Filename: "../expenses-2024-03-15.csv",
		Body:     []byte("Date,Category,Amount,Description"),
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "expenses-2024-03-15.csv"), ref)

	got, err := os.ReadFile(ref)
	require.NoError(t, err)
	assert.Equal(t, "Date,Category,Amount,Description", string(got))
}

func TestDeliverRejectsEmptyName(t *testing.T) {
	d, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = d.Deliver(context.Background(), export.Document{Filename: "  "})
	assert.Error(t, err)
}

func TestDeliverHonoursCancellation(t *testing.T) {
	d, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Deliver(ctx, export.Document{Filename: "a.csv"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
