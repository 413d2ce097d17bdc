package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/hotel"
)

func reportCmd() *cobra.Command {
	var from string
	var to string
	var granularity string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Revenue report over confirmed and completed stays",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseDateInput("from", from)
			if err != nil {
				return err
			}
			end, err := parseDateInput("to", to)
			if err != nil {
				return err
			}
			g, err := generic.ParseGranularity(granularity)
			if err != nil {
				return err
			}

			ctx := context.Background()
			db, svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			report, err := hotel.NewReporter(db, svc.Policy().Currency).RevenueReport(ctx, start, end, g)
			if err != nil {
				return err
			}

			if outputJSON {
				return writeJSON(report)
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 2, 2, ' ', 0)
			fmt.Fprintln(writer, "PERIOD\tBOOKINGS\tREVENUE\tAVERAGE")
			for _, p := range report.Periods {
				fmt.Fprintf(writer, "%s\t%d\t%s\t%s\n", p.Period, p.BookingsCount, p.TotalRevenue, p.AverageRate)
			}
			fmt.Fprintf(writer, "TOTAL\t%d\t%s\t%s\n",
				report.Summary.TotalBookings, report.Summary.TotalRevenue, report.Summary.AverageBookingValue)
			return writer.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First check-in date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last check-in date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&granularity, "by", "day", "Group by day or month")
	return cmd
}
