package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRotator_RotatesWhenFull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.log")
	r, err := newLogRotator(path, 32)
	require.NoError(t, err)

	first := strings.Repeat("a", 20) + "\n"
	second := strings.Repeat("b", 20) + "\n"
	_, err = r.Write([]byte(first))
	require.NoError(t, err)
	_, err = r.Write([]byte(second))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	backup, err := os.ReadFile(path + ".old")
	require.NoError(t, err)

	assert.Equal(t, second, string(current))
	assert.Equal(t, first, string(backup))
}

func TestLogRotator_WriteAfterClose(t *testing.T) {
	r, err := NewLogRotator(filepath.Join(t.TempDir(), "x.log"), 1)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}
