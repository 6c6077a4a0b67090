package destination

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/export"
)

type stub string

func (s stub) Name() string { return string(s) }

func (s stub) Deliver(context.Context, export.Document) (string, error) {
	return string(s) + ":ok", nil
}

func TestSetGet(t *testing.T) {
	set := NewSet("local", stub("local"), stub("memory"))

	d, err := set.Get("")
	require.NoError(t, err)
	assert.Equal(t, "local", d.Name())

	d, err = set.Get(" memory ")
	require.NoError(t, err)
	assert.Equal(t, "memory", d.Name())

	_, err = set.Get("ftp")
	assert.ErrorIs(t, err, ErrUnknownDestination)

	assert.Equal(t, []string{"local", "memory"}, set.Names())
	assert.Equal(t, "local", set.Default())
}
