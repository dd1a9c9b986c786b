package boundary

import (
	"errors"
	"fmt"

	"github.com/ctessum/geom"
)

// ErrMissingColumn：请求的标识列在数据源中不存在
var ErrMissingColumn = errors.New("missing column")

// 文档注释：行政区记录
// Index 为该行在源文件中的序号，过滤后保持不变（输出 JSON 以其作为行键）。
// Attrs 只保存加载时请求的标识列；几何只读，克隆时共享。
type Region struct {
	Index int
	Attrs map[string]string
	geom.Polygonal
}

// ID：读取标识列的值
func (r *Region) ID(col string) string { return r.Attrs[col] }

// Table：一个数据变体（full / cut / *_bundled），行顺序与源文件一致
type Table struct {
	Name    string
	Columns []string
	Regions []*Region
}

// Len：行数
func (t *Table) Len() int { return len(t.Regions) }

// HasColumn：判断列是否已加载
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// RequireColumns：任一列缺失时返回包装 ErrMissingColumn 的错误
func (t *Table) RequireColumns(cols ...string) error {
	for _, c := range cols {
		if !t.HasColumn(c) {
			return fmt.Errorf("table %s: %w %q", t.Name, ErrMissingColumn, c)
		}
	}
	return nil
}

// Values：按行序返回某列的全部取值
func (t *Table) Values(col string) []string {
	out := make([]string, len(t.Regions))
	for i, r := range t.Regions {
		out[i] = r.ID(col)
	}
	return out
}

// Clone：深拷贝属性并以新名称返回；几何对象共享
func (t *Table) Clone(name string) *Table {
	c := &Table{Name: name, Columns: append([]string(nil), t.Columns...)}
	c.Regions = make([]*Region, len(t.Regions))
	for i, r := range t.Regions {
		attrs := make(map[string]string, len(r.Attrs))
		for k, v := range r.Attrs {
			attrs[k] = v
		}
		c.Regions[i] = &Region{Index: r.Index, Attrs: attrs, Polygonal: r.Polygonal}
	}
	return c
}

// Filter：保留 keep 返回 true 的行，区域指针共享
func (t *Table) Filter(name string, keep func(*Region) bool) *Table {
	c := &Table{Name: name, Columns: append([]string(nil), t.Columns...)}
	for _, r := range t.Regions {
		if keep(r) {
			c.Regions = append(c.Regions, r)
		}
	}
	return c
}
