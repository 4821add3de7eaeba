package filex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesNested(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "a", "b")

	got, err := EnsureDir(target)
	require.NoError(t, err)
	require.Equal(t, target, got)

	fi, err := os.Stat(target)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

func TestEnsureDir_Idempotent(t *testing.T) {
	target := filepath.Join(t.TempDir(), "data")
	_, err := EnsureDir(target)
	require.NoError(t, err)
	_, err = EnsureDir(target)
	require.NoError(t, err)
}

func TestEnsureDir_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := EnsureDir("~/.foodcrm")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".foodcrm"), got)
}

func TestEnsureDir_FileInTheWay(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := EnsureDir(filepath.Join(blocker, "sub"))
	require.Error(t, err)
}
