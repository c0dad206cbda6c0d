package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/app"
)

var slaCmd = &cobra.Command{
	Use:   "sla",
	Short: "SLA commands",
}

var slaSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Escalate overdue shipments once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) (any, error) {
			n, err := svc.Sweeper.Sweep(ctx)
			return map[string]int{"escalated": n}, err
		})
	},
}

func init() {
	slaCmd.AddCommand(slaSweepCmd)
	rootCmd.AddCommand(slaCmd)
}
