// 包 boundarytest：为测试构造小型合成边界表与 Shapefile
package boundarytest

import (
	"path/filepath"
	"testing"

	"decay-inputs/internal/boundary"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
)

// Row：一个合成区域，shp 标签对应 DBF 列名
type Row struct {
	geom.Polygon
	ADM3 string `shp:"ADM3_PCODE"`
	ADM2 string `shp:"ADM2_PCODE"`
}

// Square：左下角为 (x, y) 的闭合正方形
func Square(x, y, size float64) geom.Polygon {
	return geom.Polygon{{
		{X: x, Y: y},
		{X: x, Y: y + size},
		{X: x + size, Y: y + size},
		{X: x + size, Y: y},
		{X: x, Y: y},
	}}
}

// Table：构造含 ADM3_PCODE、ADM2_PCODE 两列的内存表，行序号即 Index
func Table(rows ...Row) *boundary.Table {
	t := &boundary.Table{Name: "full", Columns: []string{"ADM3_PCODE", "ADM2_PCODE"}}
	for i, r := range rows {
		t.Regions = append(t.Regions, &boundary.Region{
			Index:     i,
			Attrs:     map[string]string{"ADM3_PCODE": r.ADM3, "ADM2_PCODE": r.ADM2},
			Polygonal: r.Polygon,
		})
	}
	return t
}

// ThreeInARow：三个并排单位正方形 A | B | C，A 与 B 同属 P1
func ThreeInARow() []Row {
	return []Row{
		{Polygon: Square(0, 0, 1), ADM3: "A", ADM2: "P1"},
		{Polygon: Square(1, 0, 1), ADM3: "B", ADM2: "P1"},
		{Polygon: Square(2, 0, 1), ADM3: "C", ADM2: "P2"},
	}
}

// 文档注释：将 rows 写入 dir/name 并返回 .shp 路径
// 约束：不写 .prj；rows 为空时生成只有表头的空文件。
func WriteShapefile(t testing.TB, dir, name string, rows ...Row) string {
	t.Helper()
	p := filepath.Join(dir, name)
	e, err := shp.NewEncoder(p, Row{})
	if err != nil {
		t.Fatalf("new encoder: %v", err)
	}
	for _, r := range rows {
		if err := e.Encode(r); err != nil {
			t.Fatalf("encode %s: %v", r.ADM3, err)
		}
	}
	e.Close()
	return p
}
