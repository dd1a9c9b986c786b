// 包 boundary：加载行政区边界（Shapefile / GeoJSON）为内存表，供变体构建与邻接计算使用
package boundary

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"decay-inputs/internal/logger"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
)

// 统一输出坐标系：经纬度
const longLat = "+proj=longlat +units=degrees"

// 文档注释：按扩展名加载边界文件
// 约束：.shp 走 Shapefile 解码；.geojson/.json 走 GeoJSON；cols 为需要保留的标识列，任一缺失即报错。
func Load(path string, cols ...string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return LoadShapefile(path, cols...)
	case ".geojson", ".json":
		return LoadGeoJSON(path, cols...)
	}
	return nil, fmt.Errorf("boundary: unsupported file type %q", filepath.Ext(path))
}

// 文档注释：读取 Shapefile（.shp + .dbf，可选 .prj）
// 约束：存在 .prj 时统一转换到经纬度；缺失或无法解析时保留原坐标并记录警告。
// 非面要素直接报错，不做静默丢弃。
func LoadShapefile(path string, cols ...string) (*Table, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("boundary: open %s: %w", path, err)
	}
	defer dec.Close()

	if err := checkFields(dec, cols); err != nil {
		return nil, fmt.Errorf("boundary: %s: %w", path, err)
	}
	trans := shapeTransform(dec, path)

	t := &Table{Name: "full", Columns: append([]string(nil), cols...)}
	for row := 0; ; row++ {
		g, fields, more := dec.DecodeRowFields(cols...)
		if !more {
			break
		}
		attrs := make(map[string]string, len(cols))
		for _, c := range cols {
			s, ok := fields[c]
			if !ok {
				return nil, fmt.Errorf("boundary: %s: %w %q", path, ErrMissingColumn, c)
			}
			attrs[c] = cleanField(s)
		}
		if g == nil {
			return nil, fmt.Errorf("boundary: %s row %d: empty geometry", path, row)
		}
		if trans != nil {
			if g, err = g.Transform(trans); err != nil {
				return nil, fmt.Errorf("boundary: %s row %d: transform: %w", path, row, err)
			}
		}
		pg, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("boundary: %s row %d: shapes need to be polygons, got %T", path, row, g)
		}
		t.Regions = append(t.Regions, &Region{Index: row, Attrs: attrs, Polygonal: pg})
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("boundary: decode %s: %w", path, err)
	}
	logger.L().Debug("shape_loaded", "path", path, "rows", t.Len())
	return t, nil
}

// 文档注释：在解码任何记录前按 DBF 表头校验列
// 约束：列名比较不区分大小写，与解码器的字段匹配方式一致；空表同样报缺列。
func checkFields(dec *shp.Decoder, cols []string) error {
	have := make(map[string]bool)
	for _, f := range dec.Fields() {
		have[strings.ToLower(cleanField(string(f.Name[:])))] = true
	}
	for _, c := range cols {
		if !have[strings.ToLower(c)] {
			return fmt.Errorf("%w %q", ErrMissingColumn, c)
		}
	}
	return nil
}

func shapeTransform(dec *shp.Decoder, path string) proj.Transformer {
	src, err := dec.SR()
	if err != nil {
		logger.L().Warn("shape_prj_missing", "path", path, "err", err)
		return nil
	}
	dst, err := proj.Parse(longLat)
	if err != nil {
		logger.L().Warn("shape_proj_parse_error", "err", err)
		return nil
	}
	trans, err := src.NewTransform(dst)
	if err != nil {
		logger.L().Warn("shape_transform_error", "path", path, "err", err)
		return nil
	}
	return trans
}

// DBF 字段为定长，右侧补空格或 NUL
func cleanField(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}

// 文档注释：读取 GeoJSON FeatureCollection / Feature
// 约束：几何仅支持 Polygon/MultiPolygon；坐标按 [lon, lat] 读取，不做投影。
func LoadGeoJSON(path string, cols ...string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("boundary: read %s: %w", path, err)
	}
	var gj map[string]any
	if err := json.Unmarshal(b, &gj); err != nil {
		return nil, fmt.Errorf("boundary: parse %s: %w", path, err)
	}
	var feats []map[string]any
	switch strings.ToLower(getStr(gj, "type")) {
	case "featurecollection":
		arr, _ := gj["features"].([]any)
		for _, it := range arr {
			if f, ok := it.(map[string]any); ok {
				feats = append(feats, f)
			}
		}
	case "feature":
		feats = append(feats, gj)
	default:
		return nil, fmt.Errorf("boundary: %s: unsupported GeoJSON type %q", path, getStr(gj, "type"))
	}

	t := &Table{Name: "full", Columns: append([]string(nil), cols...)}
	for i, f := range feats {
		props, _ := f["properties"].(map[string]any)
		attrs := make(map[string]string, len(cols))
		for _, c := range cols {
			v, ok := props[c]
			if !ok {
				return nil, fmt.Errorf("boundary: %s feature %d: %w %q", path, i, ErrMissingColumn, c)
			}
			attrs[c] = propString(v)
		}
		g, _ := f["geometry"].(map[string]any)
		pg, err := polygonalFromGeometry(g)
		if err != nil {
			return nil, fmt.Errorf("boundary: %s feature %d: %w", path, i, err)
		}
		t.Regions = append(t.Regions, &Region{Index: i, Attrs: attrs, Polygonal: pg})
	}
	logger.L().Debug("geojson_loaded", "path", path, "rows", t.Len())
	return t, nil
}

func polygonalFromGeometry(g map[string]any) (geom.Polygonal, error) {
	coords, _ := g["coordinates"].([]any)
	switch gt := strings.ToLower(getStr(g, "type")); gt {
	case "polygon":
		return parseRings(coords), nil
	case "multipolygon":
		var mp geom.MultiPolygon
		for _, part := range coords {
			rings, _ := part.([]any)
			mp = append(mp, parseRings(rings))
		}
		return mp, nil
	default:
		return nil, fmt.Errorf("shapes need to be polygons, got %q", gt)
	}
}

func parseRings(rings []any) geom.Polygon {
	var poly geom.Polygon
	for _, ring := range rings {
		arr, ok := ring.([]any)
		if !ok {
			continue
		}
		var path geom.Path
		for _, p := range arr {
			if vv, ok := p.([]any); ok && len(vv) >= 2 {
				path = append(path, geom.Point{X: toFloat(vv[0]), Y: toFloat(vv[1])})
			}
		}
		poly = append(poly, path)
	}
	return poly
}

func propString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func getStr(m map[string]any, k string) string {
	if v, ok := m[k].(string); ok {
		return v
	}
	return ""
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	default:
		return 0
	}
}
