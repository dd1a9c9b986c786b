package boundary_test

import (
	"os"
	"path/filepath"
	"testing"

	"decay-inputs/internal/boundary"
	"decay-inputs/internal/boundary/boundarytest"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadShapefile(t *testing.T) {
	dir := t.TempDir()
	p := boundarytest.WriteShapefile(t, dir, "squares.shp", boundarytest.ThreeInARow()...)

	tbl, err := boundary.Load(p, "ADM3_PCODE", "ADM2_PCODE")
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, "full", tbl.Name)
	assert.Equal(t, []string{"A", "B", "C"}, tbl.Values("ADM3_PCODE"))
	assert.Equal(t, []string{"P1", "P1", "P2"}, tbl.Values("ADM2_PCODE"))
	for i, r := range tbl.Regions {
		assert.Equal(t, i, r.Index)
		assert.InDelta(t, 1.0, r.Area(), 1e-9)
	}
}

func TestLoadShapefileMissingColumn(t *testing.T) {
	dir := t.TempDir()
	p := boundarytest.WriteShapefile(t, dir, "squares.shp", boundarytest.ThreeInARow()...)

	_, err := boundary.Load(p, "ADM1_PCODE")
	require.Error(t, err)
	assert.ErrorIs(t, err, boundary.ErrMissingColumn)
}

func TestLoadEmptyShapefileMissingColumn(t *testing.T) {
	p := boundarytest.WriteShapefile(t, t.TempDir(), "empty.shp")

	tbl, err := boundary.Load(p, "ADM3_PCODE")
	require.NoError(t, err)
	assert.Zero(t, tbl.Len())

	_, err = boundary.Load(p, "NOPE")
	assert.ErrorIs(t, err, boundary.ErrMissingColumn)
}

func TestLoadShapefileColumnCaseInsensitive(t *testing.T) {
	p := boundarytest.WriteShapefile(t, t.TempDir(), "squares.shp", boundarytest.ThreeInARow()...)

	tbl, err := boundary.Load(p, "adm3_pcode")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, tbl.Values("adm3_pcode"))
}

const wgs84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

func TestLoadShapefileWithPRJ(t *testing.T) {
	dir := t.TempDir()
	p := boundarytest.WriteShapefile(t, dir, "squares.shp", boundarytest.ThreeInARow()...)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "squares.prj"), []byte(wgs84PRJ), 0o644))

	tbl, err := boundary.Load(p, "ADM3_PCODE")
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())

	b := tbl.Regions[1].Bounds()
	assert.InDelta(t, 1.0, b.Min.X, 1e-6)
	assert.InDelta(t, 0.0, b.Min.Y, 1e-6)
	assert.InDelta(t, 2.0, b.Max.X, 1e-6)
	assert.InDelta(t, 1.0, b.Max.Y, 1e-6)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := boundary.Load(filepath.Join(t.TempDir(), "absent.shp"), "ADM3_PCODE")
	assert.Error(t, err)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	_, err := boundary.Load("regions.kml", "ADM3_PCODE")
	assert.ErrorContains(t, err, "unsupported file type")
}

const featureCollection = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature",
     "properties": {"ADM3_PCODE": "A", "ADM2_PCODE": "P1", "pop": 12},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
    {"type": "Feature",
     "properties": {"ADM3_PCODE": "B", "ADM2_PCODE": 7},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[1,0],[2,0],[2,1],[1,1],[1,0]]], [[[5,5],[6,5],[6,6],[5,6],[5,5]]]]}}
  ]
}`

func TestLoadGeoJSON(t *testing.T) {
	p := filepath.Join(t.TempDir(), "regions.geojson")
	require.NoError(t, os.WriteFile(p, []byte(featureCollection), 0o644))

	tbl, err := boundary.Load(p, "ADM3_PCODE", "ADM2_PCODE")
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"P1", "7"}, tbl.Values("ADM2_PCODE"))

	_, ok := tbl.Regions[0].Polygonal.(geom.Polygon)
	assert.True(t, ok)
	mp, ok := tbl.Regions[1].Polygonal.(geom.MultiPolygon)
	require.True(t, ok)
	assert.Len(t, mp, 2)
}

func TestLoadGeoJSONRejectsPoints(t *testing.T) {
	p := filepath.Join(t.TempDir(), "pt.geojson")
	body := `{"type":"Feature","properties":{"ADM3_PCODE":"A"},"geometry":{"type":"Point","coordinates":[0,0]}}`
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))

	_, err := boundary.Load(p, "ADM3_PCODE")
	assert.ErrorContains(t, err, "polygons")
}

func TestCloneIsIndependent(t *testing.T) {
	tbl := boundarytest.Table(boundarytest.ThreeInARow()...)
	c := tbl.Clone("copy")
	c.Regions[0].Attrs["ADM3_PCODE"] = "Z"

	assert.Equal(t, "A", tbl.Regions[0].ID("ADM3_PCODE"))
	assert.Equal(t, "copy", c.Name)
	assert.Equal(t, tbl.Regions[0].Index, c.Regions[0].Index)
}

func TestRequireColumns(t *testing.T) {
	tbl := boundarytest.Table(boundarytest.ThreeInARow()...)
	require.NoError(t, tbl.RequireColumns("ADM3_PCODE", "ADM2_PCODE"))
	assert.ErrorIs(t, tbl.RequireColumns("ADM1_PCODE"), boundary.ErrMissingColumn)
}
