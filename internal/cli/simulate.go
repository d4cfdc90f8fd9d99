package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/JEEEEEEHO/currecnyAlert/internal/app"
)

var (
	simulateBase    string
	simulateTarget  string
	simulateCurrent float64
	simulateAverage float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Push a synthetic rate statistic through the notification pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateCurrent <= 0 || simulateAverage <= 0 {
			return errors.New("--current and --average must be greater than 0")
		}

		opts := app.SimulateOptions{
			Base:    simulateBase,
			Target:  simulateTarget,
			Current: decimal.NewFromFloat(simulateCurrent),
			Average: decimal.NewFromFloat(simulateAverage),
		}
		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateBase, "base", "", "Base currency code (defaults to config)")
	simulateCmd.Flags().StringVar(&simulateTarget, "target", "", "Target currency code (defaults to config)")
	simulateCmd.Flags().Float64Var(&simulateCurrent, "current", 0, "Synthetic current rate")
	simulateCmd.Flags().Float64Var(&simulateAverage, "average", 0, "Synthetic 3-year average rate")
}
