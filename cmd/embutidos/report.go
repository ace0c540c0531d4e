package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/embutidos/internal/service"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Reportes de pagos e inventario",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "payments [todos|paypal|stripe|otro]",
		Short: "Libro de pagos con ingresos, costo y ganancia",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			filter := service.PaymentsAll
			if len(args) == 1 {
				filter = args[0]
			}
			rep, err := services(cfg, db).Reports.Payments(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printPayments(cmd.OutOrStdout(), rep)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "inventory [vencidos|por_vencer|stock_bajo|stock_alto]",
		Short: "Inventario con alertas de stock y vencimiento",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			filter := service.InventoryAll
			if len(args) == 1 {
				filter = args[0]
			}
			rep, err := services(cfg, db).Reports.Inventory(cmd.Context(), filter, time.Now())
			if err != nil {
				return err
			}
			return printInventory(cmd.OutOrStdout(), rep)
		},
	})
	return cmd
}

func printPayments(out io.Writer, rep *service.PaymentsReport) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "PEDIDO\tFECHA\tCANAL\tCLIENTE\tMONTO\tTRANSACCIÓN\n")
	for _, e := range rep.Entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.OrderID, e.Date.Format("2006-01-02 15:04"), e.ChannelLabel, e.Customer, e.Amount.StringFixed(2), e.TransactionID)
	}
	fmt.Fprintf(w, "\nIngresos\t%s\nCosto\t%s\nGanancia\t%s\n",
		rep.Revenue.StringFixed(2), rep.Cost.StringFixed(2), rep.Profit.StringFixed(2))
	return w.Flush()
}

func printInventory(out io.Writer, rep *service.InventoryReport) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tPRODUCTO\tSTOCK\tMÍNIMO\tVENCE\tALERTAS\n")
	for _, it := range rep.Items {
		expires := "-"
		if it.ExpiresAt != nil {
			expires = it.ExpiresAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\n", it.ID, it.Name, it.Stock, it.Threshold, expires, flags(it))
	}
	return w.Flush()
}

func flags(it service.InventoryItem) string {
	var s string
	add := func(v string) {
		if s != "" {
			s += ","
		}
		s += v
	}
	if it.Expired {
		add("vencido")
	}
	if it.Expiring {
		add("por vencer")
	}
	if it.LowStock {
		add("stock bajo")
	}
	return s
}
