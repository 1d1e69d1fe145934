package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRoundTrip(t *testing.T) {
	conn, err := Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	settings := NewSettings(conn)

	t.Run("missing key", func(t *testing.T) {
		v, ok, err := settings.Get("target")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, "", v)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, settings.Put("target", "4.5"))

		v, ok, err := settings.Get("target")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "4.5", v)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, settings.Put("target", "6"))

		v, ok, err := settings.Get("target")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "6", v)
	})
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	conn, err := Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, NewSettings(conn).Put("hasTarget", "true"))
	require.NoError(t, ApplyMigrations(conn))

	all, err := GetAllSettings(conn)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"hasTarget": "true"}, all)
}

func TestSettingsCLI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "brewfridge.db")

	err := SetSettingsCLI(path, map[string]string{
		"target":          "4",
		"hasTarget":       "true",
		"actuatorEnabled": "false",
	})
	require.NoError(t, err)

	out, err := DumpSettingsCLI(path)
	require.NoError(t, err)
	assert.Equal(t, "actuatorEnabled = false\nhasTarget = true\ntarget = 4\n", out)
}
