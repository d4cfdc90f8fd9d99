package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JEEEEEEHO/currecnyAlert/internal/app"
)

var (
	showBase   string
	showTarget string
	showLimit  int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent rate statistics for a pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Base:   showBase,
			Target: showTarget,
			Limit:  showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showBase, "base", "", "Base currency code (defaults to config)")
	showCmd.Flags().StringVar(&showTarget, "target", "", "Target currency code (defaults to config)")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of statistics to display")
}
