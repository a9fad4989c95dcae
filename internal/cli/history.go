package cli

import (
	"fmt"

	"resumecvpro/internal/common"
	"resumecvpro/internal/errors"
	"resumecvpro/internal/formatters"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, show and delete past analyses",
	Long: `The history keeps the 50 most recent analyses, newest first, in the
configured storage backend.`,
}

var historyOutput common.CommandConfig

var historyListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List past analyses",
	Args:    cobra.NoArgs,
	PreRunE: historyPreRun,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(st *stores) error {
			out := common.NewOutputHandler(getLoggerFromContext(cmd.Context()), cmd.OutOrStdout())
			return out.HandleOutput(formatters.HistoryList(st.history.List()), historyOutput)
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:     "show ID",
	Short:   "Show one past analysis",
	Args:    cobra.ExactArgs(1),
	PreRunE: historyPreRun,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(st *stores) error {
			rec, ok := st.history.Get(args[0])
			if !ok {
				return errors.NewValidationError(errors.ErrCodeNotFound,
					fmt.Sprintf("history record %s not found", args[0]), nil)
			}
			out := common.NewOutputHandler(getLoggerFromContext(cmd.Context()), cmd.OutOrStdout())
			return out.HandleOutput(rec, historyOutput)
		})
	},
}

var historyRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Delete one past analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(st *stores) error {
			if _, ok := st.history.Get(args[0]); !ok {
				return errors.NewValidationError(errors.ErrCodeNotFound,
					fmt.Sprintf("history record %s not found", args[0]), nil)
			}
			if err := st.history.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every past analysis",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(st *stores) error {
			n := st.history.Len()
			if err := st.history.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d analyses\n", n)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{historyListCmd, historyShowCmd} {
		c.Flags().StringVarP(&historyOutput.OutputFile, "output", "o", "", "Output file path (default: stdout)")
		c.Flags().StringVar(&historyOutput.OutputFormat, "format", "", "Output format: json, text, or markdown")
	}
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyRemoveCmd, historyClearCmd)
}

func historyPreRun(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	if historyOutput.OutputFormat == "" {
		historyOutput.OutputFormat = cfg.App.DefaultFormat
	}
	return common.ValidateOutputFormat(historyOutput.OutputFormat, cfg.App.SupportedFormats)
}

// withStores opens storage for the duration of fn.
func withStores(cmd *cobra.Command, fn func(*stores) error) error {
	ctx := cmd.Context()
	st, err := openStores(ctx, getConfigFromContext(ctx), getLoggerFromContext(ctx))
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	return fn(st)
}
