package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/app"
	dispatchlog "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/dispatch/logging"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/pkg/export"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Allocation commands",
}

var dispatchRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one auto-assignment pass",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) (any, error) {
			return svc.Dispatch.RunAutoAssignment(ctx)
		})
	},
}

var dispatchBatchCmd = &cobra.Command{
	Use:   "batch <batch-id> <driver-id>",
	Short: "Assign every shipment of a batch to one driver",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) (any, error) {
			if err := svc.Dispatch.AssignBatch(ctx, args[0], args[1]); err != nil {
				return nil, err
			}
			return map[string]string{"batch_id": args[0], "driver_id": args[1]}, nil
		})
	},
}

var dispatchManifestCmd = &cobra.Command{
	Use:   "manifest <driver-id>",
	Short: "Print the dispatch records of a driver",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) (any, error) {
			return svc.Dispatch.Manifest(ctx, args[0])
		})
	},
}

var logsFlags struct {
	format   string
	driver   string
	tracking string
	method   string
	limit    int
	since    time.Duration
}

var dispatchLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Export the allocation audit trail",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) (any, error) {
			q := dispatchlog.LogQuery{
				DriverID:   logsFlags.driver,
				TrackingID: logsFlags.tracking,
				Method:     logsFlags.method,
				Limit:      logsFlags.limit,
			}
			if logsFlags.since > 0 {
				q.Start = time.Now().Add(-logsFlags.since)
			}
			recs, err := svc.AuditLog().Query(ctx, q)
			if err != nil {
				return nil, err
			}
			return nil, export.Write(cmd.OutOrStdout(), logsFlags.format, recs)
		})
	},
}

func init() {
	f := dispatchLogsCmd.Flags()
	f.StringVar(&logsFlags.format, "format", "json", "output format ("+strings.Join(export.Formats, ", ")+")")
	f.StringVar(&logsFlags.driver, "driver", "", "only passes assigning to this driver")
	f.StringVar(&logsFlags.tracking, "tracking", "", "only passes mentioning this tracking id")
	f.StringVar(&logsFlags.method, "method", "", "auto-assign or batch-assign")
	f.IntVar(&logsFlags.limit, "limit", 0, "keep only the most recent records")
	f.DurationVar(&logsFlags.since, "since", 0, "only records newer than this duration")

	dispatchCmd.AddCommand(dispatchRunCmd, dispatchBatchCmd, dispatchManifestCmd, dispatchLogsCmd)
	rootCmd.AddCommand(dispatchCmd)
}
