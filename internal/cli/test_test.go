package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenarioFile writes a scenario rendering reachable from the
// reachability program into dir and returns its path.
func writeScenarioFile(t *testing.T, dir, name, expect string) string {
	t.Helper()
	program, err := filepath.Abs(reachabilityDir)
	require.NoError(t, err)

	src := fmt.Sprintf(`name: %s
description: "generated"
program: %s
render: reachable
expect:
%s
`, name, program, expect)
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestTest_MissingArgs(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTest_Testdata(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, out, "\u2713 reachability\n")
	assert.Contains(t, out, "\u2713 unreachable\n")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "\u2713 All scenarios passed")
}

func TestTest_JSON(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), scenariosDir)
	require.NoError(t, err)

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Passed)
	require.Len(t, result.Scenarios, 2)
	assert.Equal(t, "reachability", result.Scenarios[0].Name)
	assert.Equal(t, 5, result.Scenarios[0].Rows)
}

func TestTest_Filter(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--filter", "un*")
	require.NoError(t, err)
	assert.Contains(t, out, "unreachable")
	assert.NotContains(t, out, "\u2713 reachability")
	assert.Contains(t, out, "1 total")
}

func TestTest_SingleFile(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(scenariosDir, "reachability.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTest_FailingExpectation(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "wrong", "  contains: [[7]]")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "\u2717 wrong\n")
	assert.Contains(t, out, "Actual: missing (7)")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
}

func TestTest_FailingJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "wrong", "  count: 2")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var result TestResult
	resp := decodeResponse(t, out, &result)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Scenarios, 1)
	assert.NotEmpty(t, result.Scenarios[0].Errors)
}

func TestTest_UpdateWritesGolden(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "reach", "  count: 5")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "\u2713 reach (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "reach.golden"))
	require.NoError(t, err)
	assert.Equal(t, `{"relation":"reachable","rows":[[1],[2],[3],[4],[5]],"scenario":"reach"}`, string(golden))

	// A second run compares against the written file.
	_, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
}

func TestTest_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "reach", "  count: 5")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "reach.golden"),
		[]byte(`{"relation":"reachable","rows":[[1]],"scenario":"reach"}`), 0644))

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "rows do not match golden file")
}

func TestTest_InvalidScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\n"), 0644))

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "\u2717 broken.yaml")
	assert.Contains(t, out, "description is required")
}

func TestTest_MissingPath(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E005", resp.Error.Code)
}

func TestTest_EmptyDirectory(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "b", "golden", "c.golden"), goldenFilePath(filepath.Join("a", "b", "c.yaml")))
}
