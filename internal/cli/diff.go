package cli

import (
	"context"

	"resumecvpro/internal/common"
	"resumecvpro/internal/diff"
	"resumecvpro/internal/errors"

	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff OLD NEW",
	Short: "Show word-level changes between two text files",
	Long: `Compare two texts word by word. Text output marks removed words as
[-word-] and added words as {+word+}; markdown uses strikethrough and bold.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if diffOpts.Output.OutputFormat == "" {
			diffOpts.Output.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(diffOpts.Output.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runDiff,
}

var diffOpts struct {
	Only   string
	Output common.CommandConfig
}

func init() {
	diffCmd.Flags().StringVar(&diffOpts.Only, "only", "", "Show only additions or removals")
	diffCmd.Flags().StringVarP(&diffOpts.Output.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	diffCmd.Flags().StringVar(&diffOpts.Output.OutputFormat, "format", "", "Output format: json, text, or markdown")
	_ = diffCmd.RegisterFlagCompletionFunc("only", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{string(diff.FilterAdditions), string(diff.FilterRemovals)}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	filter, err := diff.ParseFilter(diffOpts.Only)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, err.Error(), err)
	}

	return common.RunFileCommand(ctx, logger, cmd.OutOrStdout(), cfg.App.MaxFileSize, diffOpts.Output, args,
		func(_ context.Context, contents []string) (diff.Spans, error) {
			spans := diff.Words(contents[0], contents[1])
			logger.Debug("Diff computed",
				"added", spans.Count(diff.Added),
				"removed", spans.Count(diff.Removed))
			return spans.Apply(filter), nil
		})
}
