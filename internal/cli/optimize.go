package cli

import (
	"context"
	"fmt"
	"io"

	"resumecvpro/internal/common"
	"resumecvpro/internal/config"
	"resumecvpro/internal/errors"
	"resumecvpro/internal/flow"
	"resumecvpro/internal/history"
	"resumecvpro/internal/types"
	"resumecvpro/internal/viewmodel"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Score and rewrite a résumé for a job",
	Long: `Analyze a résumé against a job description (file or text) or a job posting link.

The result is the ATS score with its breakdown, strengths, suggestions and
missing keywords, plus a rewritten résumé. Pick which part to print with
--view: summary, details, comparison or linkedin. Every analysis is saved to
the history.`,
	Example: `  resumecvpro optimize --resume cv.txt --job job.txt
  resumecvpro optimize --resume cv.txt --job-url https://jobs.example.com/123 --view comparison
  resumecvpro optimize --resume cv.txt --job-text "Senior Go developer" --lang en --download pdf`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if optimizeOpts.Output.OutputFormat == "" {
			optimizeOpts.Output.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(optimizeOpts.Output.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runOptimizeCmd,
}

// optimizeOptions are the optimize flags.
type optimizeOptions struct {
	ResumeFile  string
	JobFile     string
	JobText     string
	JobURL      string
	Language    string
	View        string
	Download    string
	DownloadDir string
	Share       bool
	Output      common.CommandConfig
}

var optimizeOpts optimizeOptions

func init() {
	f := optimizeCmd.Flags()
	f.StringVarP(&optimizeOpts.ResumeFile, "resume", "r", "", "Résumé file (plain text)")
	f.StringVarP(&optimizeOpts.JobFile, "job", "j", "", "Job description file")
	f.StringVar(&optimizeOpts.JobText, "job-text", "", "Job description text")
	f.StringVar(&optimizeOpts.JobURL, "job-url", "", "Job posting link")
	f.StringVarP(&optimizeOpts.Language, "lang", "l", "", "Language of the generated content (en, pt-BR, es, it, fr, de, ar)")
	f.StringVar(&optimizeOpts.View, "view", "summary", "Result view: summary, details, comparison or linkedin")
	f.StringVar(&optimizeOpts.Download, "download", "", "Also save the optimized résumé as pdf or docx")
	f.StringVar(&optimizeOpts.DownloadDir, "download-dir", "", "Directory for --download (default: current directory)")
	f.BoolVar(&optimizeOpts.Share, "share", false, "Print a share message after the result")
	f.StringVarP(&optimizeOpts.Output.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	f.StringVar(&optimizeOpts.Output.OutputFormat, "format", "", "Output format: json, text, or markdown")
	_ = optimizeCmd.MarkFlagRequired("resume")
	optimizeCmd.MarkFlagsMutuallyExclusive("job", "job-text")

	_ = optimizeCmd.RegisterFlagCompletionFunc("view", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		views := make([]string, 0, len(viewmodel.SubViews))
		for _, sv := range viewmodel.SubViews {
			views = append(views, string(sv))
		}
		return views, cobra.ShellCompDirectiveNoFileComp
	})
	_ = optimizeCmd.RegisterFlagCompletionFunc("download", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{string(types.FormatPDF), string(types.FormatDOCX)}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runOptimizeCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	svc, err := newAnalysisService(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	return runOptimize(ctx, optimizeRun{
		opts:     optimizeOpts,
		cfg:      cfg,
		logger:   logger,
		analyzer: svc,
		history:  st.history,
		uiLang:   st.prefs.Get().Language,
		stdout:   cmd.OutOrStdout(),
		stderr:   cmd.ErrOrStderr(),
	})
}

type optimizeRun struct {
	opts     optimizeOptions
	cfg      *config.Config
	logger   *errors.Logger
	analyzer flow.Analyzer
	history  *history.Store
	uiLang   types.LanguageCode
	stdout   io.Writer
	stderr   io.Writer
}

// runOptimize walks one session from upload to result and prints the chosen view.
func runOptimize(ctx context.Context, run optimizeRun) error {
	opts := run.opts

	subView, err := viewmodel.ParseSubView(opts.View)
	if err != nil {
		return err
	}
	downloadFormat, err := common.ParseDownloadFormat(opts.Download)
	if err != nil {
		return err
	}
	targetLang, err := types.ParseLanguageCode(opts.Language)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeValidationFailed, err.Error(), err)
	}

	fileProcessor := common.NewFileProcessor(run.logger, run.cfg.App.MaxFileSize)
	files := []string{opts.ResumeFile}
	if opts.JobFile != "" {
		files = append(files, opts.JobFile)
	}
	contents, err := fileProcessor.ValidateAndReadFiles(files...)
	if err != nil {
		return err
	}
	jobDescription := opts.JobText
	if opts.JobFile != "" {
		jobDescription = contents[1]
	}

	var hist flow.History
	if run.history != nil {
		hist = run.history
	}
	c := flow.New(run.analyzer, hist,
		flow.WithLogger(run.logger),
		flow.WithLanguage(run.uiLang),
		flow.WithInterval(run.cfg.App.MotivationalInterval),
		flow.WithTickFunc(func(_ int, message string) {
			fmt.Fprintln(run.stderr, message)
		}))
	defer func() { _ = c.Close() }()

	c.SetResumeText(contents[0])
	if err := c.ConfirmResume(); err != nil {
		return err
	}
	c.SetJobDescription(jobDescription)
	c.SetJobURL(opts.JobURL)
	if err := c.SetTargetLanguage(targetLang); err != nil {
		return err
	}

	run.logger.Info("Starting résumé optimization",
		"resume_chars", len(contents[0]),
		"job_chars", len(jobDescription),
		"has_job_url", opts.JobURL != "",
		"target_language", string(targetLang),
		"view", string(subView))

	fmt.Fprintln(run.stderr, c.MotivationalMessage())
	if _, err := c.Analyze(ctx); err != nil {
		return err
	}

	if !c.SelectSubView(subView) {
		run.logger.Warn("Requested view is not available for this result, showing summary",
			"view", string(subView))
		fmt.Fprintf(run.stderr, "View %q is not available for this result; showing %q\n",
			string(subView), string(viewmodel.SubViewSummary))
		subView = viewmodel.SubViewSummary
	}
	view, err := c.View(subView)
	if err != nil {
		return err
	}

	outputHandler := common.NewOutputHandler(run.logger, run.stdout)
	if err := outputHandler.HandleOutput(view, opts.Output); err != nil {
		return err
	}

	if downloadFormat != "" {
		artifact, err := c.Download(downloadFormat)
		if err != nil {
			return err
		}
		path, err := outputHandler.WriteArtifact(opts.DownloadDir, artifact)
		if err != nil {
			return err
		}
		fmt.Fprintf(run.stderr, "Saved %s\n", path)
	}

	if opts.Share {
		message, err := c.Share(run.cfg.App.ShareURL)
		if err != nil {
			return err
		}
		fmt.Fprintln(run.stderr, message)
	}

	snap := c.Snapshot()
	run.logger.Info("Résumé optimization completed",
		"score", snap.Result.Score,
		"history_id", snap.HistoryID)
	return nil
}
