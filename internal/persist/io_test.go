package persist_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paneruntime/workbench/internal/ids"
	"github.com/paneruntime/workbench/internal/paneaction"
	"github.com/paneruntime/workbench/internal/persist"
)

func sampleState() persist.WorkspaceState {
	tabID := ids.NewTabID()
	paneID := ids.NewPaneID()
	state := persist.NewWorkspaceState()
	state.ActiveTabID = &tabID
	state.Tabs = []persist.TabState{
		{
			ID:           tabID,
			Tree:         paneaction.NewLeaf(paneID).ToDTO(),
			ActivePaneID: paneID,
		},
	}
	state.Bindings = []persist.BindingState{
		{PaneID: paneID, WorktreeID: ids.NewWorktreeID(), RepoID: ids.NewRepoID(), RootPath: "/tmp/wt"},
	}
	return state
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "workspace.json")

	state := sampleState()
	require.NoError(t, persist.Save(path, state))

	loaded, err := persist.Load(path)
	require.NoError(t, err)
	assert.Equal(t, persist.CurrentSchemaVersion, loaded.SchemaVersion)
	require.Len(t, loaded.Tabs, 1)
	assert.Equal(t, state.Tabs[0].ID, loaded.Tabs[0].ID)
	assert.Equal(t, state.Tabs[0].ActivePaneID, loaded.Tabs[0].ActivePaneID)
	require.Len(t, loaded.Bindings, 1)
	assert.Equal(t, state.Bindings[0].RootPath, loaded.Bindings[0].RootPath)
}

func TestLoadMissingFileReturnsFreshState(t *testing.T) {
	dir := t.TempDir()
	state, err := persist.Load(filepath.Join(dir, "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, persist.NewWorkspaceState(), state)
}

func TestLoadDiscardsSchemaVersionOne(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version":1,"tabs":[{"id":"not-even-parsed"}]}`), 0o600))

	state, err := persist.Load(path)
	require.NoError(t, err)
	assert.Equal(t, persist.NewWorkspaceState(), state)
}

func TestLoadFailsSafeOnUnknownFutureSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "future.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version":99}`), 0o600))

	_, err := persist.Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, persist.ErrUnsupportedSchemaVersion)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))

	_, err := persist.Load(path)
	require.Error(t, err)
}

func TestSaveWritesExactSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workspace.json")

	state := sampleState()
	state.SchemaVersion = 0 // caller need not set it; Save stamps it
	require.NoError(t, persist.Save(path, state))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var onWire map[string]any
	require.NoError(t, json.Unmarshal(raw, &onWire))
	assert.Equal(t, float64(persist.CurrentSchemaVersion), onWire["schema_version"])
}

func TestSplitTreeDTORoundTripsThroughSplit(t *testing.T) {
	left := ids.NewPaneID()
	right := ids.NewPaneID()
	splitID := ids.NewSplitID()
	tree := paneaction.NewSplit(splitID, paneaction.Horizontal, 0.4, paneaction.NewLeaf(left), paneaction.NewLeaf(right))

	dto := tree.ToDTO()
	data, err := json.Marshal(dto)
	require.NoError(t, err)

	var decoded paneaction.SplitTreeDTO
	require.NoError(t, json.Unmarshal(data, &decoded))

	rebuilt := paneaction.SplitTreeFromDTO(decoded)
	require.NotNil(t, rebuilt)
	assert.ElementsMatch(t, tree.Leaves(), rebuilt.Leaves())
	assert.Equal(t, tree.SplitID(), rebuilt.SplitID())
	assert.InDelta(t, tree.Ratio(), rebuilt.Ratio(), 0.0001)
}
