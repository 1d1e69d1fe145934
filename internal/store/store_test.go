package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/brewfridge/db"
	"github.com/thatsimonsguy/brewfridge/internal/model"
)

func TestLoadDefaultsWhenEmpty(t *testing.T) {
	st := New(NewMemory())

	pc, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultPersistedConfig(), pc)
	assert.True(t, pc.ActuatorEnabled)
}

func TestSaveAndReload(t *testing.T) {
	mem := NewMemory()
	st := New(mem)

	require.NoError(t, st.SaveTarget(true, 4.5))
	require.NoError(t, st.SaveActuatorEnabled(false))
	require.NoError(t, st.SaveRestartID("cmd-42"))

	pc, err := New(mem).Load()
	require.NoError(t, err)
	assert.Equal(t, model.PersistedConfig{
		HasTarget:            true,
		Target:               4.5,
		ActuatorEnabled:      false,
		LastRestartCommandID: "cmd-42",
	}, pc)
}

func TestLoadRejectsCorruptValue(t *testing.T) {
	mem := NewMemory()
	mem.Values[KeyTarget] = "cold"

	_, err := New(mem).Load()
	assert.Error(t, err)
}

func TestStoreOverSQLite(t *testing.T) {
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	st := New(db.NewSettings(conn))
	require.NoError(t, st.SaveTarget(false, 0))
	require.NoError(t, st.SaveActuatorEnabled(true))

	pc, err := st.Load()
	require.NoError(t, err)
	assert.False(t, pc.HasTarget)
	assert.True(t, pc.ActuatorEnabled)
	assert.Equal(t, "", pc.LastRestartCommandID)
}
