package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"decay-inputs/internal/boundary/boundarytest"
	"decay-inputs/internal/config"
	"decay-inputs/internal/output"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRules = `
TS:
  exclude: [C]
  bundle:
    smaller: ADM3_PCODE
    larger: ADM2_PCODE
    codes: [P1]
`

// A | B | C | D in a row; A and B belong to P1
func setup(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Config{
		DataDir:    root,
		Country:    "TS",
		ShapeFile:  "regions.shp",
		IDCol:      "ADM3_PCODE",
		CaseGeoCol: "ADM2_PCODE",
		CasesFile:  "ci.csv",
		CountCol:   "Current Infections",
		RulesFile:  filepath.Join(root, "rules.yaml"),
		Bundle:     true,
	}
	require.NoError(t, os.MkdirAll(cfg.InputsDir(), 0o755))
	rows := append(boundarytest.ThreeInARow(), boundarytest.Row{Polygon: boundarytest.Square(3, 0, 1), ADM3: "D", ADM2: "P3"})
	boundarytest.WriteShapefile(t, cfg.InputsDir(), cfg.ShapeFile, rows...)
	require.NoError(t, os.WriteFile(cfg.RulesFile, []byte(testRules), 0o644))
	csv := "ADM2_PCODE,District,Current Infections\nP1,North,4\nP2,South,0\n"
	require.NoError(t, os.WriteFile(cfg.CasesPath(), []byte(csv), 0o644))
	return cfg
}

func readAdjacency(t *testing.T, dir, variant string) map[string][]string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, output.AdjacencyName(variant)))
	require.NoError(t, err)
	var m map[string][]string
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestRunWritesAllVariants(t *testing.T) {
	cfg := setup(t)
	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	dir := cfg.IntermediateDir()

	var names []string
	for _, v := range res.Variants {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"full", "cut", "full_bundled", "cut_bundled"}, names)

	assert.Equal(t, map[string][]string{
		"A": {"B"}, "B": {"A", "C"}, "C": {"B", "D"}, "D": {"C"},
	}, readAdjacency(t, dir, "full"))
	assert.Equal(t, map[string][]string{
		"A": {"B"}, "B": {"A"},
	}, readAdjacency(t, dir, "cut"))
	assert.Equal(t, map[string][]string{
		"P1": {"C"}, "C": {"D", "P1"}, "D": {"C"},
	}, readAdjacency(t, dir, "full_bundled"))
	assert.Empty(t, readAdjacency(t, dir, "cut_bundled"))

	b, err := os.ReadFile(filepath.Join(dir, "ids_cut.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ADM3_PCODE":{"0":"A","1":"B","3":"D"},"ADM2_PCODE":{"0":"P1","1":"P1","3":"P3"}}`, string(b))

	b, err = os.ReadFile(filepath.Join(dir, "ids_full_bundled.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ADM3_PCODE":{"0":"P1","1":"P1","2":"C","3":"D"},"ADM2_PCODE":{"0":"P1","1":"P1","2":"P2","3":"P3"}}`, string(b))

	b, err = os.ReadFile(res.CasesPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ADM2_PCODE":{"0":"P1","1":"P2"},"Current Infections":{"0":4,"1":0}}`, string(b))

	var man output.Manifest
	b, err = os.ReadFile(res.ManifestPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &man))
	assert.Equal(t, "TS", man.Country)
	assert.Len(t, man.Files, 9)
}

func TestRunExcludedNeverInCutOutputs(t *testing.T) {
	cfg := setup(t)
	_, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	for _, v := range []string{"cut", "cut_bundled"} {
		m := readAdjacency(t, cfg.IntermediateDir(), v)
		_, ok := m["C"]
		assert.False(t, ok, v)
		for _, ns := range m {
			assert.NotContains(t, ns, "C", v)
		}
	}
}

func TestRunWithoutBundleAndWithMerge(t *testing.T) {
	cfg := setup(t)
	cfg.Bundle = false
	cfg.MergeCases = true
	cfg.MetricsTextfile = filepath.Join(t.TempDir(), "decay.prom")

	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, res.Variants, 2)

	b, err := os.ReadFile(res.Variants[0].MergedPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"ADM3_PCODE":{"0":"A","1":"B","2":"C","3":"D"},
		"ADM2_PCODE":{"0":"P1","1":"P1","2":"P2","3":"P3"},
		"Current Infections":{"0":4,"1":4,"2":0,"3":null}}`, string(b))

	prom, err := os.ReadFile(cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "decay_inputs_last_run_success 1")
}

func TestRunMergeOnRegionColumn(t *testing.T) {
	cfg := setup(t)
	cfg.Bundle = false
	cfg.MergeCases = true
	cfg.MergeCol = "ADM3_PCODE"
	csv := "ADM2_PCODE,Current Infections\nA,2\nC,5\n"
	require.NoError(t, os.WriteFile(cfg.CasesPath(), []byte(csv), 0o644))

	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	b, err := os.ReadFile(res.Variants[0].MergedPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"ADM3_PCODE":{"0":"A","1":"B","2":"C","3":"D"},
		"ADM2_PCODE":{"0":"P1","1":"P1","2":"P2","3":"P3"},
		"Current Infections":{"0":2,"1":null,"2":5,"3":null}}`, string(b))
}

func TestRunMergeColumnMissing(t *testing.T) {
	cfg := setup(t)
	cfg.MergeCases = true
	cfg.MergeCol = "ADM1_PCODE"
	_, err := Run(context.Background(), cfg)
	assert.ErrorContains(t, err, "ADM1_PCODE")
}

func TestRunSkipsCasesWhenUnset(t *testing.T) {
	cfg := setup(t)
	cfg.CasesFile = ""
	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, res.CasesPath)
	_, err = os.Stat(filepath.Join(cfg.IntermediateDir(), output.CasesName))
	assert.True(t, os.IsNotExist(err))
}

func TestRunErrors(t *testing.T) {
	cfg := setup(t)
	cfg.ShapeFile = "missing.shp"
	_, err := Run(context.Background(), cfg)
	assert.Error(t, err)

	cfg = setup(t)
	cfg.CountCol = "Deaths"
	_, err = Run(context.Background(), cfg)
	assert.ErrorContains(t, err, "Deaths")

	cfg = setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, cfg)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Run(context.Background(), config.Config{})
	assert.ErrorContains(t, err, "config")
}

func TestUniqueColumns(t *testing.T) {
	assert.Equal(t, []string{"ADM3_PCODE"}, uniqueColumns("ADM3_PCODE", "ADM3_PCODE"))
	assert.Equal(t, []string{"ADM3_PCODE", "ADM2_PCODE"}, uniqueColumns("ADM3_PCODE", "", "ADM2_PCODE", "ADM3_PCODE"))
}
