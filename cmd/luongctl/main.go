// Command luongctl runs the import engine on local files and prints the results as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v2"

	"luongimport/internal/config"
	"luongimport/internal/exporter"
	"luongimport/internal/importer"
	"luongimport/internal/logger"
	"luongimport/internal/model"
	"luongimport/internal/parser"
	"luongimport/internal/store"
)

var (
	pretty       bool
	sheetName    string
	mappingsPath string
	configName   string
	file1Path    string
	file2Path    string
	reportPath   string
	verbose      bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "luongctl",
		Short:         "Parse attendance and payroll spreadsheets",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVar(&pretty, "pretty", false, "pretty-print JSON output")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log import progress to stderr")

	attendance := &cobra.Command{
		Use:   "attendance FILE",
		Short: "Parse an attendance workbook",
		Args:  cobra.ExactArgs(1),
		RunE:  runAttendance,
	}
	attendance.Flags().StringVar(&sheetName, "sheet", "", "sheet name (default: detected)")

	table := &cobra.Command{
		Use:   "table FILE",
		Short: "Map a table through a mapping configuration",
		Args:  cobra.ExactArgs(1),
		RunE:  runTable,
	}
	table.Flags().StringVar(&sheetName, "sheet", "", "sheet name (default: detected)")
	table.Flags().StringVar(&mappingsPath, "mappings", "", "YAML mapping file (default: built-in configurations)")
	table.Flags().StringVar(&configName, "config", store.ConfigEmployees, "mapping configuration name")
	table.Flags().StringVar(&reportPath, "report", "", "also write a review workbook to this .xlsx path")

	payroll := &cobra.Command{
		Use:   "payroll",
		Short: "Reconcile two payroll files",
		Args:  cobra.NoArgs,
		RunE:  runPayroll,
	}
	payroll.Flags().StringVar(&file1Path, "file1", "", "first payroll file")
	payroll.Flags().StringVar(&file2Path, "file2", "", "second payroll file")
	payroll.Flags().StringVar(&mappingsPath, "mappings", "", "YAML mapping file (default: built-in configurations)")
	payroll.Flags().StringVar(&reportPath, "report", "", "also write a review workbook to this .xlsx path")

	root.AddCommand(attendance, table, payroll)
	return root
}

func cliLogger() *slog.Logger {
	if verbose {
		if l, _, err := logger.New(config.LogConfig{Level: "debug", Format: "text", Output: "stderr"}); err == nil {
			return l
		}
	}
	return logger.Discard()
}

func newCoordinator(l *slog.Logger) *importer.Coordinator {
	cfg := config.DefaultConfig()
	if loaded, _, err := config.LoadConfigWithInfo(); err == nil {
		cfg = loaded
	}
	// no store: the CLI records no sessions
	return importer.NewCoordinator(nil, l, cfg.Import)
}

// newExporter logs each finished report stage; silent unless --verbose
func newExporter(l *slog.Logger) *exporter.Exporter {
	return exporter.NewExporter(func(p exporter.ProgressEvent) {
		l.Debug("report stage written", "stage", p.Stage, "percent", p.Percent, "rows", p.Rows, "path", reportPath)
	})
}

func runAttendance(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	res, err := newCoordinator(cliLogger()).ImportAttendance(context.Background(), f, filepath.Base(args[0]),
		importer.AttendanceOptions{SheetName: sheetName})
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), res)
}

func runTable(cmd *cobra.Command, args []string) error {
	configs, err := loadMappings(mappingsPath)
	if err != nil {
		return err
	}
	mappings, ok := configs[configName]
	if !ok {
		return fmt.Errorf("mapping configuration %q not found", configName)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	l := cliLogger()
	res, err := newCoordinator(l).ImportTable(context.Background(), f, filepath.Base(args[0]), mappings,
		importer.TableOptions{SheetName: sheetName})
	if err != nil {
		return err
	}
	if reportPath != "" {
		if err := saveReport(newExporter(l).ExportTable(res)); err != nil {
			return err
		}
	}
	return writeJSON(cmd.OutOrStdout(), res)
}

func runPayroll(cmd *cobra.Command, args []string) error {
	if file1Path == "" && file2Path == "" {
		return importer.ErrNoSource
	}
	configs, err := loadMappings(mappingsPath)
	if err != nil {
		return err
	}

	var uploads [2]*importer.Upload
	for i, path := range []string{file1Path, file2Path} {
		if path == "" {
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		uploads[i] = &importer.Upload{Name: filepath.Base(path), Reader: f}
	}

	l := cliLogger()
	res, err := newCoordinator(l).ImportPayroll(context.Background(), uploads[0], uploads[1],
		configs[store.ConfigPayrollFile1], configs[store.ConfigPayrollFile2], importer.PayrollOptions{})
	if err != nil {
		return err
	}
	if reportPath != "" {
		if err := saveReport(newExporter(l).ExportPayroll(res)); err != nil {
			return err
		}
	}
	return writeJSON(cmd.OutOrStdout(), res)
}

// loadMappings reads a YAML map of configuration name to mappings. An empty path
// returns the built-in configurations.
func loadMappings(path string) (map[string][]model.ColumnMapping, error) {
	if path == "" {
		out := make(map[string][]model.ColumnMapping)
		for _, name := range []string{store.ConfigEmployees, store.ConfigPayrollFile1, store.ConfigPayrollFile2} {
			out[name] = store.DefaultMappings(name)
		}
		return out, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return parseMappings(data)
}

func parseMappings(data []byte) (map[string][]model.ColumnMapping, error) {
	var configs map[string][]model.ColumnMapping
	if err := yaml.UnmarshalStrict(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse mappings: %w", err)
	}

	v := validator.New()
	for name, mappings := range configs {
		for i := range mappings {
			mappings[i].ConfigName = name
			if mappings[i].DisplayOrder == 0 {
				mappings[i].DisplayOrder = i + 1
			}
		}
		if err := parser.ValidateMappings(v, mappings); err != nil {
			return nil, fmt.Errorf("config %s: %w", name, err)
		}
	}
	return configs, nil
}

func saveReport(f *excelize.File, err error) error {
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	defer f.Close()
	if err := f.SaveAs(reportPath); err != nil {
		return fmt.Errorf("failed to save report %s: %w", reportPath, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
