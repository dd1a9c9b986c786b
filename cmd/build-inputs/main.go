// 输入准备工具：读取边界与病例数文件，生成仿真所需的标识、邻接与病例 JSON
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"decay-inputs/internal/config"
	"decay-inputs/internal/logger"
	"decay-inputs/internal/pipeline"

	"github.com/spf13/cobra"
)

func main() {
	config.LoadDotEnv(".env", filepath.Join("country_inputs", ".env"))
	l := logger.Setup()
	if err := newRootCmd().Execute(); err != nil {
		l.Error("build_inputs_error", "err", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "build-inputs",
		Short:         "Prepare adjacency, identifier and case-count inputs for the decay simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newFoldersCmd())
	return root
}

// 标志默认值取自环境变量，命令行显式传入时覆盖
func bindFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	f.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "root folder holding <country>/inputs and <country>/intermediate_data")
	f.StringVar(&cfg.Country, "country", cfg.Country, "country code used for folders and rules")
	f.StringVar(&cfg.ShapeFile, "shape", cfg.ShapeFile, "boundary file (.shp or .geojson) under the inputs folder")
	f.StringVar(&cfg.IDCol, "id-col", cfg.IDCol, "column that uniquely identifies a region")
	f.StringVar(&cfg.CaseGeoCol, "case-geo-col", cfg.CaseGeoCol, "geographic column of the case-count file")
	f.StringVar(&cfg.CasesFile, "cases", cfg.CasesFile, "case-count file (.csv or .xlsx) under the inputs folder; empty skips it")
	f.StringVar(&cfg.CountCol, "count-col", cfg.CountCol, "case-count column")
	f.StringVar(&cfg.RulesFile, "rules", cfg.RulesFile, "YAML file overriding exclusion and bundling rules")
	f.StringVar(&cfg.MetricsTextfile, "metrics-textfile", cfg.MetricsTextfile, "write Prometheus metrics to this file")
}

func newRunCmd() *cobra.Command {
	cfg := config.FromEnv()
	var noBundle bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build ids, adjacency and case-count JSON files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if noBundle {
				cfg.Bundle = false
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			res, err := pipeline.Run(ctx, cfg)
			if err != nil {
				return err
			}
			for _, v := range res.Variants {
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s rows=%-5d pairs=%-6d %s\n", v.Name, v.Rows, v.Pairs, v.AdjacencyPath)
			}
			if res.CasesPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", "cases", res.CasesPath)
			}
			return nil
		},
	}
	bindFlags(cmd, &cfg)
	cmd.Flags().BoolVar(&noBundle, "no-bundle", false, "skip the bundled variants")
	cmd.Flags().BoolVar(&cfg.MergeCases, "merge-cases", cfg.MergeCases, "also write case counts joined onto every variant")
	cmd.Flags().StringVar(&cfg.MergeCol, "merge-col", cfg.MergeCol, "region column matched against the case geo column when merging (default: --case-geo-col)")
	return cmd
}

func newFoldersCmd() *cobra.Command {
	cfg := config.FromEnv()
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Print the resolved data, inputs and intermediate folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cfg.DataDir)
			fmt.Fprintln(out, cfg.InputsDir())
			fmt.Fprintln(out, cfg.IntermediateDir())
			return nil
		},
	}
	bindFlags(cmd, &cfg)
	return cmd
}
