// 包 variant：按排除列表与合并规则派生数据变体（full / cut / full_bundled / cut_bundled）
package variant

import (
	"decay-inputs/internal/boundary"
	"decay-inputs/internal/logger"
	"decay-inputs/internal/rules"
)

// 变体名称，同时作为输出文件名的一部分
const (
	Full        = "full"
	Cut         = "cut"
	BundledTail = "_bundled"
)

// Exclude：剔除 col 取值在 codes 中的行，返回新表；源表不变
func Exclude(t *boundary.Table, col string, codes []string, name string) (*boundary.Table, error) {
	if err := t.RequireColumns(col); err != nil {
		return nil, err
	}
	drop := toSet(codes)
	out := t.Filter(name, func(r *boundary.Region) bool {
		_, hit := drop[r.ID(col)]
		return !hit
	})
	logger.L().Debug("variant_exclude", "from", t.Name, "to", name, "dropped", t.Len()-out.Len())
	return out, nil
}

// 文档注释：合并小区域到上级编码
// 约束：在克隆上修改，Larger 列取值在 Codes 中的行，其 Smaller 列被覆盖为 Larger 列的值；其余行不变。
func Bundle(t *boundary.Table, b rules.Bundle, name string) (*boundary.Table, error) {
	if err := t.RequireColumns(b.Smaller, b.Larger); err != nil {
		return nil, err
	}
	hit := toSet(b.Codes)
	out := t.Clone(name)
	n := 0
	for _, r := range out.Regions {
		big := r.Attrs[b.Larger]
		if _, ok := hit[big]; ok {
			r.Attrs[b.Smaller] = big
			n++
		}
	}
	logger.L().Debug("variant_bundle", "from", t.Name, "to", name, "rows", n)
	return out, nil
}

// 文档注释：构建全部变体，顺序为 full, cut[, full_bundled, cut_bundled]
// 约束：full 原样返回（重命名为 full）；bundled 为 false 或合并规则为空时只返回前两个。
func Build(full *boundary.Table, idCol string, r rules.Rules, bundled bool) ([]*boundary.Table, error) {
	full.Name = Full
	cut, err := Exclude(full, idCol, r.Exclude, Cut)
	if err != nil {
		return nil, err
	}
	out := []*boundary.Table{full, cut}
	if !bundled || r.Bundle.Empty() {
		return out, nil
	}
	for _, src := range []*boundary.Table{full, cut} {
		b, err := Bundle(src, r.Bundle, src.Name+BundledTail)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func toSet(codes []string) map[string]struct{} {
	s := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}
