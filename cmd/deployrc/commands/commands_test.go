package commands_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/deployrc/cmd/deployrc/commands"
	"github.com/walteh/deployrc/pkg/config"
	"github.com/walteh/deployrc/pkg/history"
	"github.com/walteh/deployrc/pkg/operation"
	"github.com/walteh/deployrc/pkg/status"
	"github.com/walteh/deployrc/pkg/testutils"
	"gitlab.com/tozd/go/errors"
)

func TestPreviewRowsKeepMappingOrder(t *testing.T) {
	profile := config.Profile{Name: "live", Root: "/srv/dayz"}
	res := &operation.Resolution{
		Enabled: 3,
		Operations: []operation.Operation{
			{Index: 0, Mapping: "bbp", Local: "BBP_Settings.json", RemotePath: "config/BBP_Settings.json", RemoteFullPath: "/srv/dayz/config/BBP_Settings.json", Backup: true},
			{Index: 2, Mapping: "types", Local: "types.xml", RemotePath: "db/types.xml", RemoteFullPath: "/srv/dayz/db/types.xml"},
		},
		Findings: []operation.Finding{
			{Index: 1, Mapping: "loot", Local: "loot.json", Remote: "config/loot.json", Reason: status.ReasonMissingLocalFile},
		},
	}

	rows := commands.PreviewRows(res, profile)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"bbp", "loot", "types"}, []string{rows[0].Mapping, rows[1].Mapping, rows[2].Mapping})
	assert.Equal(t, commands.StateOK, rows[0].State)
	assert.True(t, rows[0].Backup)
	assert.Equal(t, commands.StateMissing, rows[1].State)
	assert.Equal(t, "/srv/dayz/config/loot.json", rows[1].RemoteFull)
	assert.Equal(t, commands.StateOK, rows[2].State)
}

func TestCheckAll(t *testing.T) {
	server := testutils.NewMemoryServer()
	server.Fail(testutils.OpConnect, "down", errors.New("connection refused"))

	profiles := []config.Profile{{Name: "live"}, {Name: "down"}, {Name: "test"}}
	results := commands.CheckAll(context.Background(), server, profiles)

	require.Len(t, results, 3)
	for i, want := range []string{"live", "down", "test"} {
		assert.Equal(t, want, results[i].Profile, "results keep profile order")
	}
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "/", results[0].Dir)
	assert.ErrorContains(t, results[1].Err, "connection refused")
	assert.NoError(t, results[2].Err)
	assert.Zero(t, server.OpenSessions(), "every test session is closed")
}

func TestCheckCurrentDirFailure(t *testing.T) {
	server := testutils.NewMemoryServer()
	server.Fail(testutils.OpCwd, "", errors.New("550 not allowed"))

	res := commands.Check(context.Background(), server, config.Profile{Name: "live"})

	assert.ErrorContains(t, res.Err, "550 not allowed")
	assert.Zero(t, server.OpenSessions())
}

func TestHistoryRows(t *testing.T) {
	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)
	runs := []history.Run{
		{RunID: "a", Profile: "live", Preset: "raid_on", StartedAt: started, Succeeded: 2},
		{RunID: "b", Profile: "live", Preset: "raid_on", StartedAt: started, Succeeded: 1, Failed: 1},
		{RunID: "c", Profile: "live", Preset: "raid_off", StartedAt: started, Message: "connecting: refused"},
		{RunID: "d", Profile: "test", Preset: "raid_off", StartedAt: started, DryRun: true, Skipped: 3},
	}

	rows := commands.HistoryRows(runs)

	require.Len(t, rows, 5)
	assert.Equal(t, "RESULT", rows[0][7])
	assert.Equal(t, []string{"2025-01-02 03:04:05", "a", "live", "raid_on", "2", "0", "0", "ok"}, rows[1])
	assert.Equal(t, "failed", rows[2][7])
	assert.Equal(t, "aborted: connecting: refused", rows[3][7])
	assert.Equal(t, "dry-run", rows[4][7])
}

func TestProfileRowsMarkActive(t *testing.T) {
	cfg := &config.Config{
		ActiveProfile: "test",
		Profiles: []config.Profile{
			{Name: "live", Host: "10.0.0.1", Port: 21, Protocol: config.ProtocolFTP, Root: "/srv"},
			{Name: "test", Host: "10.0.0.2", Port: 22, Protocol: config.ProtocolSFTP, Root: "/home/dayz", Credentials: config.Credentials{Username: "dayz"}},
		},
	}

	rows := commands.ProfileRows(cfg)

	require.Len(t, rows, 3)
	assert.Equal(t, "", rows[1][5])
	assert.Equal(t, []string{"test", "10.0.0.2:22", "sftp", "/home/dayz", "dayz", "(active)"}, rows[2])
}
