package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/app"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/reconcile"
)

var reconcileReq reconcile.Request

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Inventory commands",
}

var inventoryConflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Detect and flag over-reserved SKUs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) (any, error) {
			return svc.Reconciler.DetectConflicts(ctx)
		})
	},
}

var inventoryReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Settle two orders competing for the same SKU",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) (any, error) {
			return svc.Reconciler.Reconcile(ctx, reconcileReq)
		})
	},
}

var fulfillWarehouse string

var inventoryFulfillCmd = &cobra.Command{
	Use:   "fulfill <sku>",
	Short: "Promote backorders of a SKU that stock can now serve",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) (any, error) {
			n, err := svc.Inventory.FulfillPending(ctx, args[0], fulfillWarehouse)
			return map[string]int{"fulfilled": n}, err
		})
	},
}

func init() {
	f := inventoryReconcileCmd.Flags()
	f.StringVar(&reconcileReq.SKU, "sku", "", "contested SKU")
	f.StringVar(&reconcileReq.OrderA, "order-a", "", "tracking id of the first order")
	f.StringVar(&reconcileReq.OrderB, "order-b", "", "tracking id of the second order")
	f.StringVar(&reconcileReq.WarehouseA, "warehouse-a", "", "warehouse of the first order")
	f.StringVar(&reconcileReq.WarehouseB, "warehouse-b", "", "warehouse of the second order")
	f.IntVar(&reconcileReq.QtyPerOrder, "qty", 0, "quantity to release when the losing order has no recorded reservation")
	_ = inventoryReconcileCmd.MarkFlagRequired("sku")
	_ = inventoryReconcileCmd.MarkFlagRequired("order-a")
	_ = inventoryReconcileCmd.MarkFlagRequired("order-b")

	inventoryFulfillCmd.Flags().StringVar(&fulfillWarehouse, "warehouse", "", "warehouse code (default from config)")

	inventoryCmd.AddCommand(inventoryConflictsCmd, inventoryReconcileCmd, inventoryFulfillCmd)
	rootCmd.AddCommand(inventoryCmd)
}
