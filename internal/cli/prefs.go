package cli

import (
	"fmt"

	"resumecvpro/internal/common"
	"resumecvpro/internal/prefs"

	"github.com/spf13/cobra"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Read or change the saved theme and language",
}

var prefsOutput common.CommandConfig

var prefsGetCmd = &cobra.Command{
	Use:       "get [theme|lang]",
	Short:     "Print preferences",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: prefs.Keys,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if prefsOutput.OutputFormat == "" {
			prefsOutput.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(prefsOutput.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(st *stores) error {
			if len(args) == 1 {
				value, err := st.prefs.Value(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			}
			out := common.NewOutputHandler(getLoggerFromContext(cmd.Context()), cmd.OutOrStdout())
			return out.HandleOutput(st.prefs.Get(), prefsOutput)
		})
	},
}

var prefsSetCmd = &cobra.Command{
	Use:       "set theme|lang VALUE",
	Short:     "Change one preference",
	Example:   "  resumecvpro prefs set theme dark\n  resumecvpro prefs set lang en",
	Args:      cobra.ExactArgs(2),
	ValidArgs: prefs.Keys,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(st *stores) error {
			if err := st.prefs.Set(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			value, err := st.prefs.Value(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], value)
			return nil
		})
	},
}

func init() {
	prefsGetCmd.Flags().StringVar(&prefsOutput.OutputFormat, "format", "", "Output format: json, text, or markdown")
	prefsCmd.AddCommand(prefsGetCmd, prefsSetCmd)
}
