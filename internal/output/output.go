// 包 output：将变体标识、邻接表与病例数写为仿真程序读取的 JSON 文件
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"decay-inputs/internal/adjacency"
	"decay-inputs/internal/boundary"
	"decay-inputs/internal/cases"
	"decay-inputs/internal/logger"
	"decay-inputs/internal/metrics"
)

// 文件名约定：ids_<variant>.json、<variant>.json、CI.json、CI_<variant>.json
func IDsName(variant string) string { return "ids_" + variant + ".json" }
func AdjacencyName(variant string) string { return variant + ".json" }
func MergedName(variant string) string { return "CI_" + variant + ".json" }

const CasesName = "CI.json"

// Row：按列顺序排列的一行值，Index 为输出行键
type Row struct {
	Index  int
	Values []any
}

// 文档注释：按列方向（columns orient）编码表格
// 格式：{"COL": {"<index>": value, ...}, ...}；列与行均保持传入顺序，行键为源行序号。
func EncodeColumns(columns []string, rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for ci, col := range columns {
		if ci > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, col); err != nil {
			return nil, err
		}
		buf.WriteString(":{")
		for ri, r := range rows {
			if len(r.Values) != len(columns) {
				return nil, fmt.Errorf("output: row %d has %d values, want %d", r.Index, len(r.Values), len(columns))
			}
			if ri > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Quote(strconv.Itoa(r.Index)))
			buf.WriteByte(':')
			if err := writeJSON(&buf, r.Values[ci]); err != nil {
				return nil, err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// IDRows：取出表中指定列，行键沿用 Region.Index
func IDRows(t *boundary.Table, columns []string) ([]Row, error) {
	if err := t.RequireColumns(columns...); err != nil {
		return nil, err
	}
	rows := make([]Row, len(t.Regions))
	for i, r := range t.Regions {
		vals := make([]any, len(columns))
		for j, c := range columns {
			vals[j] = r.ID(c)
		}
		rows[i] = Row{Index: r.Index, Values: vals}
	}
	return rows, nil
}

// WriteIDs：写 ids_<variant>.json
func WriteIDs(dir string, t *boundary.Table, columns []string) (string, error) {
	rows, err := IDRows(t, columns)
	if err != nil {
		return "", err
	}
	b, err := EncodeColumns(columns, rows)
	if err != nil {
		return "", err
	}
	return write(dir, IDsName(t.Name), b)
}

// WriteAdjacency：写 <variant>.json，键为区域标识，值为相邻标识列表
func WriteAdjacency(dir, variant string, m adjacency.Map) (string, error) {
	if m == nil {
		m = adjacency.Map{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return write(dir, AdjacencyName(variant), b)
}

// WriteCases：写 CI.json，只含地理列与计数列
func WriteCases(dir string, ct *cases.Table) (string, error) {
	rows := make([]Row, len(ct.Records))
	for i, r := range ct.Records {
		rows[i] = Row{Index: r.Index, Values: []any{r.GeoID, r.Count}}
	}
	b, err := EncodeColumns(ct.Columns(), rows)
	if err != nil {
		return "", err
	}
	return write(dir, CasesName, b)
}

// WriteMerged：写 CI_<variant>.json，列为标识列加计数列，行键重新从 0 编号
func WriteMerged(dir, variant string, idCols []string, countCol string, merged []cases.Merged) (string, error) {
	columns := append(append([]string(nil), idCols...), countCol)
	rows := make([]Row, len(merged))
	for i, m := range merged {
		vals := make([]any, 0, len(columns))
		for _, c := range idCols {
			vals = append(vals, m.Region.ID(c))
		}
		vals = append(vals, m.Count)
		rows[i] = Row{Index: i, Values: vals}
	}
	b, err := EncodeColumns(columns, rows)
	if err != nil {
		return "", err
	}
	return write(dir, MergedName(variant), b)
}

// 文档注释：原子写文件（临时文件 + rename）
// 约束：目录不存在时创建；失败时清理临时文件，不留下半截 JSON。
func write(dir, name string, b []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("output: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("output: create %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("output: chmod %s: %w", path, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("output: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("output: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("output: rename %s: %w", path, err)
	}
	metrics.FilesWritten.Inc()
	logger.L().Debug("file_written", "path", path, "bytes", len(b))
	return path, nil
}
