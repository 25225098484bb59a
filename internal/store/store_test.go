package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchd/internal/machine"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "switchd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadLastActiveFreshInstall(t *testing.T) {
	s := openTestStore(t)

	m, ok, err := s.LoadLastActive()
	require.NoError(t, err)
	assert.False(t, ok, "fresh store must report no prior state")
	assert.Equal(t, machine.Unknown, m)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveLastActive(machine.Work, time.Now()))

	m, ok, err := s.LoadLastActive()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, machine.Work, m)

	// Overwrite keeps a single record.
	require.NoError(t, s.SaveLastActive(machine.Home, time.Now()))
	m, ok, err = s.LoadLastActive()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, machine.Home, m)
}

func TestLoadSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switchd.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveLastActive(machine.Work, time.Now()))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	m, ok, err := s.LoadLastActive()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, machine.Work, m)
}

func TestCorruptRecordReadsAsUnknown(t *testing.T) {
	s := openTestStore(t)
	_, err := s.db.Exec(`INSERT INTO ownership (id, last_active, updated_ns) VALUES (1, 'garbage', 0)`)
	require.NoError(t, err)

	m, ok, err := s.LoadLastActive()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, machine.Unknown, m)
}

func TestSwitchHistory(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().Add(-time.Minute)
	for i, m := range []machine.Identity{machine.Home, machine.Work, machine.Home} {
		input := machine.HDMI1
		if m == machine.Work {
			input = machine.HDMI2
		}
		_, err := s.RecordSwitch(&SwitchEntry{
			TimestampNs:  base.Add(time.Duration(i) * time.Second).UnixNano(),
			Machine:      m,
			Input:        input,
			Origin:       "automatic",
			Attempts:     1,
			MonitorIndex: 0,
		})
		require.NoError(t, err)
	}

	entries, err := s.History(10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first.
	assert.Equal(t, machine.Home, entries[0].Machine)
	assert.Equal(t, machine.Work, entries[1].Machine)
	assert.True(t, entries[0].TimestampNs > entries[1].TimestampNs)

	limited, err := s.History(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestHistoryEmpty(t *testing.T) {
	s := openTestStore(t)
	entries, err := s.History(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
