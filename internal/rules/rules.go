// 包 rules：按国家维护区域排除列表与合并（bundle）规则；内置默认值，可由 YAML 文件覆盖
package rules

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bundle：将较小行政层级的编码替换为所属上级编码
// Smaller/Larger 为列名，Codes 为需要合并的上级编码列表
type Bundle struct {
	Smaller string   `yaml:"smaller"`
	Larger  string   `yaml:"larger"`
	Codes   []string `yaml:"codes"`
}

// Empty：未配置列名或编码时视为无合并规则
func (b Bundle) Empty() bool {
	return b.Smaller == "" || b.Larger == "" || len(b.Codes) == 0
}

// Rules：单个国家的规则
type Rules struct {
	Exclude []string `yaml:"exclude"`
	Bundle  Bundle   `yaml:"bundle"`
}

// Set：国家代码 -> 规则
type Set map[string]Rules

// Defaults：马拉维数据集的排除与城市合并规则
func Defaults() Set {
	return Set{
		"MW": {
			Exclude: []string{
				"MW20115", "MW30399", "MW30904", "MW30299", "MW20511",
				"MW30199", "MW31009", "MW31305", "MW30807", "MW31110",
				"MW20207", "MW10106", "MW10206", "MW10410", "MW10511",
				"MW10411",
			},
			Bundle: Bundle{
				Smaller: "ADM3_PCODE",
				Larger:  "ADM2_PCODE",
				Codes:   []string{"MW210", "MW315", "MW314", "MW107"},
			},
		},
	}
}

// For：返回国家规则；未知国家返回空规则（不排除、不合并）
func (s Set) For(country string) Rules {
	return s[strings.ToUpper(country)]
}

// Parse：解析 YAML 规则，顶层键为国家代码
func Parse(b []byte) (Set, error) {
	var raw map[string]Rules
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	out := make(Set, len(raw))
	for k, r := range raw {
		if r.Bundle.Smaller != "" && r.Bundle.Smaller == r.Bundle.Larger {
			return nil, fmt.Errorf("rules %s: bundle smaller and larger column are both %q", k, r.Bundle.Smaller)
		}
		out[strings.ToUpper(k)] = r
	}
	return out, nil
}

// LoadFile：读取 YAML 规则文件，并覆盖到内置默认值之上
// 约束：按国家整体覆盖，不做字段级合并；path 为空时直接返回默认值
func LoadFile(path string) (Set, error) {
	s := Defaults()
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	override, err := Parse(b)
	if err != nil {
		return nil, err
	}
	for k, r := range override {
		s[k] = r
	}
	return s, nil
}
