package cli

import (
	"github.com/spf13/cobra"
)

var (
	onceBase   string
	onceTarget string
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single compute-store-notify pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Once(cmd.Context(), onceBase, onceTarget)
	},
}

func init() {
	onceCmd.Flags().StringVar(&onceBase, "base", "", "Base currency code (defaults to config)")
	onceCmd.Flags().StringVar(&onceTarget, "target", "", "Target currency code (defaults to config)")
}
