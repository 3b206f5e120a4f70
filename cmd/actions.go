// File: cmd/actions.go
package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/webgym/internal/action"
	"github.com/xkilldash9x/webgym/internal/config"
)

func newActionsCmd(a *app) *cobra.Command {
	var asJSON bool

	actionsCmd := &cobra.Command{
		Use:   "actions",
		Short: "Prints the action catalog of an environment kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := describeSpace(config.EnvKind(a.v.GetString("env.kind")))
			if err != nil {
				return err
			}
			if asJSON {
				b, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(infos, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode catalog: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}
			return printCatalog(cmd, infos)
		},
	}
	actionsCmd.Flags().String("env", "", "environment kind: miniwob, mind2web or webarena (overrides config)")
	actionsCmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return actionsCmd
}

func printCatalog(cmd *cobra.Command, infos []action.Info) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tENABLED\tARGS\tDESCRIPTION")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", info.Name, info.Enabled, formatArgs(info.Args), info.Description)
	}
	return w.Flush()
}

func formatArgs(args []action.ArgInfo) string {
	if len(args) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		p := arg.Name + ":" + arg.Type
		if arg.Required {
			p += "!"
		} else if arg.Default != nil {
			p += fmt.Sprintf("=%v", arg.Default)
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ", ")
}
