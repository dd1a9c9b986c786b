// 包 pipeline：串联一次完整的输入准备流程（边界 → 变体 → 邻接 → 病例数 → 清单）
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"decay-inputs/internal/adjacency"
	"decay-inputs/internal/boundary"
	"decay-inputs/internal/cases"
	"decay-inputs/internal/config"
	"decay-inputs/internal/logger"
	"decay-inputs/internal/metrics"
	"decay-inputs/internal/output"
	"decay-inputs/internal/rules"
	"decay-inputs/internal/variant"
)

// VariantResult：单个变体的输出摘要
type VariantResult struct {
	Name          string
	Rows          int
	Pairs         int
	IDsPath       string
	AdjacencyPath string
	MergedPath    string
}

// Result：一次运行的输出摘要
type Result struct {
	Variants     []VariantResult
	CasesPath    string
	ManifestPath string
}

// 文档注释：执行一次完整运行
// 约束：单线程顺序执行；变体之间检查 ctx 取消；任一步失败立即返回，已写出的文件保留。
// 运行结束（无论成败）时若配置了 METRICS_TEXTFILE 则写出指标。
func Run(ctx context.Context, cfg config.Config) (res *Result, err error) {
	l := logger.L()
	started := time.Now()
	defer func() {
		if err != nil {
			metrics.LastRunSuccess.Set(0)
		} else {
			metrics.LastRunSuccess.Set(1)
		}
		metrics.ObserveStage("total", started)
		if werr := metrics.WriteTextfile(cfg.MetricsTextfile); werr != nil {
			l.Warn("metrics_textfile_error", "path", cfg.MetricsTextfile, "err", werr)
		}
	}()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	set, err := rules.LoadFile(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	r := set.For(cfg.Country)
	l.Info("rules_loaded", "country", cfg.Country, "excluded", len(r.Exclude), "bundle_codes", len(r.Bundle.Codes))

	idCols := uniqueColumns(cfg.IDCol, cfg.CaseGeoCol)
	loadCols := append([]string(nil), idCols...)
	if cfg.Bundle && !r.Bundle.Empty() {
		loadCols = append(loadCols, r.Bundle.Smaller, r.Bundle.Larger)
	}
	if cfg.MergeCases && cfg.CasesFile != "" {
		loadCols = append(loadCols, cfg.MergeColumn())
	}
	loadCols = uniqueColumns(loadCols...)

	t0 := time.Now()
	full, err := boundary.Load(cfg.ShapePath(), loadCols...)
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage("load", t0)
	metrics.RegionsLoaded.Set(float64(full.Len()))
	l.Info("shape_loaded", "path", cfg.ShapePath(), "regions", full.Len())

	variants, err := variant.Build(full, cfg.IDCol, r, cfg.Bundle)
	if err != nil {
		return nil, err
	}

	dir := cfg.IntermediateDir()
	man := output.NewManifest(cfg.Country, started)
	man.ShapeFile = cfg.ShapeFile
	man.IDColumn = cfg.IDCol
	res = &Result{}
	for _, v := range variants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vr, err := writeVariant(dir, v, cfg.IDCol, idCols, man)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", v.Name, err)
		}
		res.Variants = append(res.Variants, vr)
		l.Info("variant_done", "variant", v.Name, "rows", vr.Rows, "pairs", vr.Pairs)
	}

	if p := cfg.CasesPath(); p != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t1 := time.Now()
		ct, err := cases.Load(p, cfg.CaseGeoCol, cfg.CountCol)
		if err != nil {
			return nil, err
		}
		if res.CasesPath, err = output.WriteCases(dir, ct); err != nil {
			return nil, err
		}
		man.CasesFile = cfg.CasesFile
		man.Add(filepath.Base(res.CasesPath), "cases", "", len(ct.Records))
		metrics.CaseRecords.Set(float64(len(ct.Records)))
		l.Info("cases_done", "path", res.CasesPath, "rows", len(ct.Records))

		if cfg.MergeCases {
			for i, v := range variants {
				merged, err := cases.Merge(v, cfg.MergeColumn(), ct)
				if err != nil {
					return nil, err
				}
				mp, err := output.WriteMerged(dir, v.Name, idCols, cfg.CountCol, merged)
				if err != nil {
					return nil, err
				}
				res.Variants[i].MergedPath = mp
				man.Add(filepath.Base(mp), "merged", v.Name, len(merged))
			}
		}
		metrics.ObserveStage("cases", t1)
	}

	man.FinishedAt = time.Now().UTC()
	if res.ManifestPath, err = output.WriteManifest(dir, man); err != nil {
		return nil, err
	}
	l.Info("run_done", "run_id", man.RunID, "dir", dir, "files", len(man.Files), "duration_ms", time.Since(started).Milliseconds())
	return res, nil
}

func writeVariant(dir string, v *boundary.Table, idCol string, idCols []string, man *output.Manifest) (VariantResult, error) {
	vr := VariantResult{Name: v.Name, Rows: v.Len()}
	metrics.VariantRegions.WithLabelValues(v.Name).Set(float64(v.Len()))

	var err error
	if vr.IDsPath, err = output.WriteIDs(dir, v, idCols); err != nil {
		return vr, err
	}
	man.Add(filepath.Base(vr.IDsPath), "ids", v.Name, v.Len())

	t0 := time.Now()
	m, err := adjacency.Find(v, idCol)
	if err != nil {
		return vr, err
	}
	metrics.ObserveStage("adjacency", t0)
	vr.Pairs = adjacency.Pairs(m)
	metrics.AdjacencyPairs.WithLabelValues(v.Name).Set(float64(vr.Pairs))

	if vr.AdjacencyPath, err = output.WriteAdjacency(dir, v.Name, m); err != nil {
		return vr, err
	}
	man.Add(filepath.Base(vr.AdjacencyPath), "adjacency", v.Name, len(m))
	return vr, nil
}

// 去重并保持首次出现的顺序，空列名忽略
func uniqueColumns(cols ...string) []string {
	seen := make(map[string]struct{}, len(cols))
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
