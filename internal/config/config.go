// 包 config：集中读取批处理运行参数（.env + 环境变量），命令行标志在入口处覆盖
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config：一次 build-inputs 运行所需的全部参数
type Config struct {
	DataDir    string // 国家输入根目录，默认 country_inputs
	Country    string
	ShapeFile  string // 相对 InputsDir 的边界文件名（.shp / .geojson）
	IDCol      string // 唯一标识区域的列，如 ADM3_PCODE
	CaseGeoCol string // 病例表中的地理列，如 ADM2_PCODE
	CasesFile  string // 相对 InputsDir 的病例文件名（.csv / .xlsx），为空时跳过
	CountCol   string
	RulesFile  string // 可选 YAML 规则文件，覆盖内置排除/合并字典
	Bundle     bool
	MergeCases bool
	MergeCol   string // 合并时区域表一侧的连接列，为空时取 CaseGeoCol

	MetricsTextfile string
}

// 默认值沿用马拉维（MW）数据集的约定
const (
	DefaultDataDir    = "country_inputs"
	DefaultCountry    = "MW"
	DefaultShapeFile  = "mwi_admbnda_adm3_nso_20181016.shp"
	DefaultIDCol      = "ADM3_PCODE"
	DefaultCaseGeoCol = "ADM2_PCODE"
	DefaultCasesFile  = "CurrentInfectionLocation_30April20 - Copy.csv"
	DefaultCountCol   = "Current Infections"
)

// LoadDotEnv：依次尝试加载 .env 文件，缺失时静默跳过
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// FromEnv：从环境变量构造配置，未设置的项使用默认值
func FromEnv() Config {
	c := Config{
		DataDir:         envOr("DATA_DIR", DefaultDataDir),
		Country:         envOr("COUNTRY", DefaultCountry),
		ShapeFile:       envOr("SHAPE_FILE", DefaultShapeFile),
		IDCol:           envOr("ID_COL", DefaultIDCol),
		CaseGeoCol:      envOr("CASE_GEO_COL", DefaultCaseGeoCol),
		CasesFile:       envOr("CASES_FILE", DefaultCasesFile),
		CountCol:        envOr("COUNT_COL", DefaultCountCol),
		RulesFile:       os.Getenv("RULES_FILE"),
		MergeCol:        strings.TrimSpace(os.Getenv("MERGE_COL")),
		Bundle:          true,
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
	}
	if v := os.Getenv("BUNDLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Bundle = b
		}
	}
	if v := os.Getenv("MERGE_CASES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.MergeCases = b
		}
	}
	return c
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// InputsDir：<data>/<country>/inputs
func (c Config) InputsDir() string {
	return filepath.Join(c.DataDir, c.Country, "inputs")
}

// IntermediateDir：<data>/<country>/intermediate_data，所有 JSON 输出写入此处
func (c Config) IntermediateDir() string {
	return filepath.Join(c.DataDir, c.Country, "intermediate_data")
}

// ShapePath：边界文件路径；绝对路径原样返回
func (c Config) ShapePath() string {
	return c.resolve(c.ShapeFile)
}

// CasesPath：病例文件路径；未配置时返回空串
func (c Config) CasesPath() string {
	if c.CasesFile == "" {
		return ""
	}
	return c.resolve(c.CasesFile)
}

func (c Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.InputsDir(), name)
}

// MergeColumn：病例合并时区域表一侧的连接列
func (c Config) MergeColumn() string {
	if c.MergeCol != "" {
		return c.MergeCol
	}
	return c.CaseGeoCol
}

// Validate：检查必填项
func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data dir is empty"))
	}
	if c.Country == "" {
		errs = append(errs, errors.New("country is empty"))
	}
	if c.ShapeFile == "" {
		errs = append(errs, errors.New("shape file is empty"))
	}
	if c.IDCol == "" {
		errs = append(errs, errors.New("id column is empty"))
	}
	if c.CasesFile != "" && (c.CaseGeoCol == "" || c.CountCol == "") {
		errs = append(errs, errors.New("cases file set but geo/count column is empty"))
	}
	return errors.Join(errs...)
}
