package cli

import (
	"fmt"

	"atscheck/internal/analyzer"
	"atscheck/internal/common"
	"atscheck/internal/errors"
	"atscheck/internal/extractor"
	"atscheck/internal/types"

	"github.com/spf13/cobra"
)

// maxConcurrency mirrors the upper bound accepted for app.concurrency.
const maxConcurrency = 64

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume-file]...",
	Short: "Score one or more PDF/DOCX resumes for ATS compatibility",
	Long: `Analyze extracts each resume, classifies its sections, and reports an
ATS compatibility score with per-check notes and improvement suggestions.

A single file produces one report with two members, "dashboard" and
"structured". Several files produce a list with one entry per file; files
that fail are reported inline and the command exits non-zero.`,
	Args: cobra.MinimumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply config defaults for flags left unset
		if analyzeConfig.OutputFormat == "" {
			analyzeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		if !cmd.Flags().Changed("concurrency") {
			analyzeConfig.Concurrency = cfg.App.Concurrency
		}
		analyzeConfig.MaxFileSize = cfg.App.MaxFileSize

		if err := common.ValidateOutputFormat(analyzeConfig.OutputFormat, common.SupportedFormats); err != nil {
			return err
		}
		return common.ValidateConcurrency(analyzeConfig.Concurrency, maxConcurrency)
	},
	RunE: runAnalyze,
}

var analyzeConfig common.CommandConfig

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	analyzeCmd.Flags().IntVarP(&analyzeConfig.Concurrency, "concurrency", "c", 0, "Files analyzed in parallel (default from config)")

	// Add completion for format flag
	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return common.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	service := analyzer.NewService(
		extractor.New(cfg.Extractor, logger),
		analyzer.New(analyzer.Options{PreviewChars: cfg.Analysis.PreviewChars}),
		logger,
		analyzer.WithTimeout(cfg.Analysis.Timeout),
	)

	logger.Info("Starting resume analysis",
		"files", len(args),
		"concurrency", analyzeConfig.Concurrency,
		"output_format", analyzeConfig.OutputFormat)

	err := common.RunBatchCommand(
		cmd.Context(),
		logger,
		analyzeConfig,
		args,
		service.AnalyzeFile,
		collectReports,
	)
	if err != nil {
		return fmt.Errorf("failed to analyze resume: %w", err)
	}
	logger.Info("Resume analysis completed successfully")
	return nil
}

// collectReports keeps the single-file output identical to the HTTP
// response body and wraps multi-file runs in per-file entries.
func collectReports(results []common.BatchResult[*types.AnalysisResponse]) any {
	if len(results) == 1 {
		return results[0].Output
	}

	reports := make([]types.FileReport, len(results))
	for i, r := range results {
		reports[i].File = r.File
		if r.Err != nil {
			reports[i].Error = errorInfo(r.Err)
			continue
		}
		reports[i].Response = r.Output
	}
	return reports
}

func errorInfo(err error) *types.ErrorInfo {
	appErr := errors.Public(err)
	return &types.ErrorInfo{Code: appErr.Code, Detail: appErr.Message}
}
