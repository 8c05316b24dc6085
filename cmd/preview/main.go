// Command preview evaluates commercetools cart predicates against a cart from the command line.
//
//	preview evaluate --cart cart.json --categories categories.yaml 'lineItemCount(sku = "SHOE-1") >= 2'
//	preview parse 'totalPrice >= "50.00 EUR"'
//	preview check --file predicates.txt
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/liamcoop/cartrules/internal/logger"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "preview",
		Short:         "Preview commercetools cart discount predicates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Configure(logLevel, 1)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "WARN", "log level (TRACE, DEBUG, INFO, WARN, ERROR)")

	root.AddCommand(newEvaluateCmd(), newParseCmd(), newCheckCmd())
	return root
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		root.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
