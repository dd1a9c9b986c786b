// 包 cases：读取病例数（Current Infections）表，只保留地理标识列与计数列
package cases

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"decay-inputs/internal/boundary"
	"decay-inputs/internal/logger"

	"github.com/xuri/excelize/v2"
)

// Record：一行病例数；Count 为 nil 表示单元格为空
type Record struct {
	Index int
	GeoID string
	Count *float64
}

// Table：病例表，列固定为 GeoColumn 与 CountColumn
type Table struct {
	GeoColumn   string
	CountColumn string
	Records     []Record
}

// Columns：输出列顺序
func (t *Table) Columns() []string { return []string{t.GeoColumn, t.CountColumn} }

// 文档注释：按扩展名读取病例文件
// 约束：.csv 与 .xlsx（取第一个工作表）；首行为表头；列缺失、计数无法解析时报错并指明行号。
func Load(path, geoCol, countCol string) (*Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	t, err := fromRows(rows, geoCol, countCol)
	if err != nil {
		return nil, fmt.Errorf("cases: %s: %w", path, err)
	}
	logger.L().Debug("cases_loaded", "path", path, "rows", len(t.Records))
	return t, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cases: open %s: %w", path, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cases: read %s: %w", path, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("cases: open %s: %w", path, err)
	}
	defer f.Close()
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("cases: %s: no sheets found", path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("cases: %s: reading rows: %w", path, err)
	}
	return rows, nil
}

func fromRows(rows [][]string, geoCol, countCol string) (*Table, error) {
	if len(rows) == 0 {
		return nil, errors.New("empty file, header row required")
	}
	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	gi, ci := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case geoCol:
			gi = i
		case countCol:
			ci = i
		}
	}
	if gi < 0 {
		return nil, fmt.Errorf("%w %q", boundary.ErrMissingColumn, geoCol)
	}
	if ci < 0 {
		return nil, fmt.Errorf("%w %q", boundary.ErrMissingColumn, countCol)
	}

	t := &Table{GeoColumn: geoCol, CountColumn: countCol}
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec := Record{Index: len(t.Records), GeoID: strings.TrimSpace(cell(row, gi))}
		if s := strings.TrimSpace(cell(row, ci)); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				// 表头为第 1 行
				return nil, fmt.Errorf("row %d: %s %q: %w", i+2, countCol, s, err)
			}
			rec.Count = &v
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Merged：区域与病例数左连接后的一行
type Merged struct {
	Region *boundary.Region
	Count  *float64
}

// 文档注释：将病例数左连接到区域表
// 约束：以区域的 joinCol 取值匹配病例表 GeoID；一对多时按病例表顺序展开，未匹配的区域 Count 为 nil。
func Merge(ids *boundary.Table, joinCol string, ct *Table) ([]Merged, error) {
	if err := ids.RequireColumns(joinCol); err != nil {
		return nil, err
	}
	byGeo := make(map[string][]*float64)
	for _, r := range ct.Records {
		byGeo[r.GeoID] = append(byGeo[r.GeoID], r.Count)
	}
	var out []Merged
	for _, r := range ids.Regions {
		counts, ok := byGeo[r.ID(joinCol)]
		if !ok {
			out = append(out, Merged{Region: r})
			continue
		}
		for _, c := range counts {
			out = append(out, Merged{Region: r, Count: c})
		}
	}
	return out, nil
}
