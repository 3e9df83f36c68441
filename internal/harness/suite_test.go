package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindScenarios_Directory(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios", "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join("testdata", "scenarios", "even_odd.yaml"),
		filepath.Join("testdata", "scenarios", "reachability.yaml"),
		filepath.Join("testdata", "scenarios", "reachability_extra_facts.yaml"),
	}, files)
}

func TestFindScenarios_Filter(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios", "reach*")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = FindScenarios("testdata/scenarios", "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestFindScenarios_SingleFile(t *testing.T) {
	path := filepath.Join("testdata", "scenarios", "even_odd.yaml")
	files, err := FindScenarios(path, "ignored")
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestFindScenarios_SkipsGoldenAndOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "x.yaml"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), nil, 0644))

	files, err := FindScenarios(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yml")}, files)
}

func TestFindScenarios_NotFound(t *testing.T) {
	_, err := FindScenarios("testdata/missing", "")
	require.Error(t, err)

	var nf *ScenarioNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "testdata/missing", nf.Path)
}

func TestRunFiles(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("name: [\n"), 0644))

	outcomes := RunFiles([]string{
		filepath.Join("testdata", "scenarios", "reachability.yaml"),
		broken,
	})
	require.Len(t, outcomes, 2)

	assert.True(t, outcomes[0].Pass())
	assert.Equal(t, "reachability", outcomes[0].Name())
	require.NotNil(t, outcomes[0].Result)

	assert.False(t, outcomes[1].Pass())
	assert.Equal(t, "broken.yaml", outcomes[1].Name())
	assert.Nil(t, outcomes[1].Result)
	require.Error(t, outcomes[1].Err)
}
