package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/cv-analysis-tool/internal/config"
	"alfredoptarigan/cv-analysis-tool/internal/logger"
	"alfredoptarigan/cv-analysis-tool/internal/models"
	"alfredoptarigan/cv-analysis-tool/internal/services"
)

// Usage:
//
//	go run ./scripts upload [--dry-run] <job_description.pdf|.docx>
//	go run ./scripts show
var (
	debug  bool
	asJSON bool

	rootCmd = &cobra.Command{
		Use:   "job-criteria",
		Short: "Manage the job criteria document read by the CV analysis service",
	}

	uploadCmd = &cobra.Command{
		Use:   "upload <file>",
		Short: "Extract a job description and upload it as " + models.JobCriteriaBlobName,
		Args:  cobra.ExactArgs(1),
		RunE:  runUpload,
	}

	showCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the job criteria currently in blob storage",
		Args:  cobra.NoArgs,
		RunE:  runShow,
	}
)

var jobCriteriaExtensions = []string{".pdf", ".docx"}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&asJSON, "json", "j", false, "json format for logging")

	uploadCmd.Flags().Bool("dry-run", false, "print the generated JSON without uploading")

	rootCmd.AddCommand(uploadCmd, showCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newJobCriteriaService() (services.JobCriteriaService, *zap.Logger, error) {
	cfg := config.Load()

	zlog, err := logger.New(asJSON || cfg.Log.JSON, debug || cfg.Log.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("creating a logger: %w", err)
	}

	svc := services.NewJobCriteriaService(
		services.NewTextExtractor(),
		services.NewBlobStoreFactory(cfg.Blob),
		zlog,
	)
	return svc, zlog, nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(jobCriteriaExtensions, ext) {
		return fmt.Errorf("unsupported job description type %q (expected .pdf or .docx)", ext)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	svc, zlog, err := newJobCriteriaService()
	if err != nil {
		return err
	}
	defer zlog.Sync()

	file := models.NewUploadedFile(filepath.Base(path), content)
	zlog.Info("processing job description", zap.String("file", file.Name))

	if dryRun {
		preview := svc.Preview(file)
		out, err := json.MarshalIndent(preview.JobCriteria, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode job criteria: %w", err)
		}
		fmt.Println(string(out))
		zlog.Info("dry run finished, nothing uploaded",
			zap.Int("text_length", len(preview.ExtractedText)),
		)
		return nil
	}

	criteria, err := svc.Update(cmd.Context(), file)
	if err != nil {
		return fmt.Errorf("failed to update job criteria: %w", err)
	}

	zlog.Info("✅ job criteria updated successfully",
		zap.String("blob", models.JobCriteriaBlobName),
		zap.Int("text_length", len(criteria.JobCriteriaText)),
	)
	return nil
}

func runShow(cmd *cobra.Command, _ []string) error {
	svc, zlog, err := newJobCriteriaService()
	if err != nil {
		return err
	}
	defer zlog.Sync()

	criteria, err := svc.Current(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load job criteria: %w", err)
	}

	out, err := json.MarshalIndent(criteria, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode job criteria: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
