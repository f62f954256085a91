package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// simulateJSON simulates the breakfast plan into db and decodes the summary.
func simulateJSON(t *testing.T, db string) SimulateResult {
	t.Helper()
	out, _, err := execute(t, "--db", db, "--format", "json", "simulate", breakfastPlan)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   SimulateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestSimulateText(t *testing.T) {
	out, _, err := execute(t, "--db", tempDB(t), "simulate", breakfastPlan)
	require.NoError(t, err)
	assert.Contains(t, out, `✓ Simulated plan "breakfast"`)
	assert.Contains(t, out, "dataset:")
	assert.Contains(t, out, "activities: ")
}

func TestSimulateStoresOncePerRevision(t *testing.T) {
	db := tempDB(t)

	first := simulateJSON(t, db)
	assert.False(t, first.Cached)
	assert.Equal(t, "breakfast", first.Plan)
	assert.NotEmpty(t, first.DatasetID)
	assert.Len(t, first.ResultsHash, 64)

	second := simulateJSON(t, db)
	assert.True(t, second.Cached)
	assert.Equal(t, first.DatasetID, second.DatasetID)
	assert.Equal(t, first.ResultsHash, second.ResultsHash)

	out, _, err := execute(t, "--db", db, "simulate", breakfastPlan)
	require.NoError(t, err)
	assert.Contains(t, out, `✓ Found stored results for plan "breakfast"`)
}

func TestSimulateNoStore(t *testing.T) {
	db := tempDB(t)
	out, _, err := execute(t, "--db", db, "simulate", "--no-store", breakfastPlan)
	require.NoError(t, err)
	assert.Contains(t, out, `✓ Simulated plan "breakfast"`)
	assert.NoFileExists(t, db)
}

func TestSimulateInvalidPlan(t *testing.T) {
	db := tempDB(t)
	out, _, err := execute(t, "--db", db, "simulate", writePlan(t, duplicateIDPlan))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `✗ Plan "dupes" is invalid`)
	assert.NoFileExists(t, db)
}

func TestSimulateAbortedRun(t *testing.T) {
	path := writePlan(t, `plan: {
	name:       "conflict"
	start_time: "2030-01-01T00:00:00Z"
	duration:   "10s"
	activities: [
		{id: "a", type: "ChangeProducer", start: "1s", arguments: {producer: "Dole"}},
		{id: "b", type: "ChangeProducer", start: "1s", arguments: {producer: "Chiquita"}},
	]
}
`)
	out, _, err := execute(t, "--db", tempDB(t), "simulate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
	assert.Contains(t, out, "NON_COMMUTATIVE_EFFECT")
}

func TestResultsText(t *testing.T) {
	db := tempDB(t)
	sim := simulateJSON(t, db)

	out, _, err := execute(t, "--db", db, "results", sim.DatasetID)
	require.NoError(t, err)
	assert.Contains(t, out, "Dataset "+sim.DatasetID)
	assert.Contains(t, out, "plan:     breakfast")
	assert.Contains(t, out, "Resources (final value):")
	assert.Contains(t, out, "fruit")
	assert.Contains(t, out, "Activities:")
	assert.Contains(t, out, "GrowBanana")
	assert.NotContains(t, out, "Trace:")
}

func TestResultsTraceAndVerify(t *testing.T) {
	db := tempDB(t)
	sim := simulateJSON(t, db)

	out, _, err := execute(t, "--db", db, "results", sim.DatasetID, "--trace", "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "Trace:")
	assert.Contains(t, out, "start grow (GrowBanana)")
	assert.Contains(t, out, "end   peel")
	assert.Contains(t, out, "✓ Re-simulation reproduced the stored digest")
}

func TestResultsJSON(t *testing.T) {
	db := tempDB(t)
	sim := simulateJSON(t, db)

	out, _, err := execute(t, "--db", db, "--format", "json", "results", sim.DatasetID, "--verify")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ResultsOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, sim.DatasetID, resp.Data.DatasetID)
	assert.Equal(t, sim.ResultsHash, resp.Data.ResultsHash)
	assert.NotEmpty(t, resp.Data.EngineVersion)
	assert.NotEmpty(t, resp.Data.Results)
	require.NotNil(t, resp.Data.Verified)
	assert.True(t, *resp.Data.Verified)
}

func TestResultsUnknownDataset(t *testing.T) {
	out, _, err := execute(t, "--db", tempDB(t), "results", "no-such-dataset")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestResultsDelete(t *testing.T) {
	db := tempDB(t)
	sim := simulateJSON(t, db)

	out, _, err := execute(t, "--db", db, "results", sim.DatasetID, "--delete")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Deleted dataset "+sim.DatasetID)

	_, _, err = execute(t, "--db", db, "results", sim.DatasetID)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	// The plan revision is simulated again once its dataset is gone.
	again := simulateJSON(t, db)
	assert.False(t, again.Cached)
	assert.NotEqual(t, sim.DatasetID, again.DatasetID)
	assert.Equal(t, sim.ResultsHash, again.ResultsHash)
}

func TestResultsDeleteExcludesVerify(t *testing.T) {
	_, _, err := execute(t, "--db", tempDB(t), "results", "x", "--delete", "--verify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestPlansEmpty(t *testing.T) {
	out, _, err := execute(t, "--db", tempDB(t), "plans")
	require.NoError(t, err)
	assert.Contains(t, out, "No plans stored.")
}

func TestPlansListing(t *testing.T) {
	db := tempDB(t)
	sim := simulateJSON(t, db)

	out, _, err := execute(t, "--db", db, "plans")
	require.NoError(t, err)
	assert.Contains(t, out, "breakfast")
	assert.Contains(t, out, "banananation")
	assert.Contains(t, out, "4 activities")

	out, _, err = execute(t, "--db", db, "plans", "breakfast")
	require.NoError(t, err)
	assert.Contains(t, out, "Plan breakfast (revision "+shortHash(sim.Revision)+")")
	assert.Contains(t, out, "* "+sim.DatasetID)
}

func TestPlansJSON(t *testing.T) {
	db := tempDB(t)
	sim := simulateJSON(t, db)

	out, _, err := execute(t, "--db", db, "--format", "json", "plans", "breakfast")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   PlanListing `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Datasets, 1)
	assert.Equal(t, sim.DatasetID, resp.Data.Datasets[0].ID)
	assert.Equal(t, sim.Revision, resp.Data.Datasets[0].PlanRevision)
}

func TestPlansUnknownPlan(t *testing.T) {
	out, _, err := execute(t, "--db", tempDB(t), "plans", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortHash("0123456789abcdef"))
	assert.Equal(t, "abc", shortHash("abc"))
}
