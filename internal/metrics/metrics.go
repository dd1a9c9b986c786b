package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry：独立注册表，批处理结束时整体写入 textfile，不暴露 HTTP
var Registry = prometheus.NewRegistry()

var (
	RegionsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "decay_inputs_regions_loaded",
		Help: "Number of regions read from the boundary file",
	})
	VariantRegions = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "decay_inputs_variant_regions",
		Help: "Number of rows per variant",
	}, []string{"variant"})
	AdjacencyPairs = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "decay_inputs_adjacency_pairs",
		Help: "Directed adjacency pairs per variant",
	}, []string{"variant"})
	CaseRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "decay_inputs_case_records",
		Help: "Number of case-count rows exported",
	})
	FilesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "decay_inputs_files_written_total",
		Help: "Total JSON files written",
	})
	StageDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "decay_inputs_stage_duration_ms",
		Help:    "Pipeline stage duration in milliseconds",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000},
	}, []string{"stage"})
	LastRunSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "decay_inputs_last_run_success",
		Help: "1 if the last run finished without error",
	})
)

func init() {
	Registry.MustRegister(RegionsLoaded)
	Registry.MustRegister(VariantRegions)
	Registry.MustRegister(AdjacencyPairs)
	Registry.MustRegister(CaseRecords)
	Registry.MustRegister(FilesWritten)
	Registry.MustRegister(StageDurationMs)
	Registry.MustRegister(LastRunSuccess)
}

// ObserveStage：记录阶段耗时，用法 defer metrics.ObserveStage("load", time.Now())
func ObserveStage(stage string, start time.Time) {
	StageDurationMs.WithLabelValues(stage).Observe(float64(time.Since(start).Milliseconds()))
}

// 文档注释：将注册表写入 node_exporter textfile 目录下的文件
// 约束：path 为空时不写；写入由 client_golang 先写临时文件再 rename 完成。
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, Registry)
}
