// 包 adjacency：由行政区几何计算邻接关系（空间自连接 → 去自身 → 去重 → 按左侧标识分组）
package adjacency

import (
	"fmt"
	"sort"

	"decay-inputs/internal/boundary"
	"decay-inputs/internal/logger"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// Map：区域标识 -> 相邻区域标识列表（已排序、去重、不含自身）
// 没有任何邻居的区域不出现在结果中。
type Map map[string][]string

// R-Tree 查询框外扩量，保证仅边界接触的区域也会成为候选
const searchPad = 1e-7

// 文档注释：计算表内区域的邻接关系
// 背景：等价于对表做 intersects 空间自连接；合并后的变体中同一标识可能对应多行，
// 左右标识相同的配对一律丢弃，同一对标识只记录一次。
// 异常：标识列缺失或存在空标识时返回错误。
func Find(t *boundary.Table, idCol string) (Map, error) {
	if err := t.RequireColumns(idCol); err != nil {
		return nil, err
	}
	tree := rtree.NewTree(25, 50)
	for _, r := range t.Regions {
		if r.ID(idCol) == "" {
			return nil, fmt.Errorf("adjacency: table %s row %d: empty %s", t.Name, r.Index, idCol)
		}
		tree.Insert(r)
	}

	out := make(Map)
	seen := make(map[[2]string]struct{})
	for _, r := range t.Regions {
		left := r.ID(idCol)
		for _, c := range tree.SearchIntersect(padded(r.Bounds())) {
			o := c.(*boundary.Region)
			right := o.ID(idCol)
			if right == left {
				continue
			}
			key := [2]string{left, right}
			if _, ok := seen[key]; ok {
				continue
			}
			if !Intersects(r, o) {
				continue
			}
			seen[key] = struct{}{}
			out[left] = append(out[left], right)
		}
	}
	for k := range out {
		sort.Strings(out[k])
	}
	logger.L().Debug("adjacency_done", "table", t.Name, "regions", t.Len(), "pairs", Pairs(out))
	return out, nil
}

func padded(b *geom.Bounds) *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: b.Min.X - searchPad, Y: b.Min.Y - searchPad},
		Max: geom.Point{X: b.Max.X + searchPad, Y: b.Max.Y + searchPad},
	}
}

// Pairs：有向邻接对的数量
func Pairs(m Map) int {
	n := 0
	for _, v := range m {
		n += len(v)
	}
	return n
}

// Keys：按字典序返回所有左侧标识
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
