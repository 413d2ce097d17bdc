package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/booking-engine/hotel"
)

type AvailabilityRow struct {
	Room  hotel.Room    `json:"room"`
	Quote hotel.Pricing `json:"quote"`
}

func availabilityCmd() *cobra.Command {
	var checkIn string
	var checkOut string
	var guests int

	cmd := &cobra.Command{
		Use:   "availability",
		Short: "List rooms free for a stay with their quoted price",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := parseDateInput("check-in", checkIn)
			if err != nil {
				return err
			}
			out, err := parseDateInput("check-out", checkOut)
			if err != nil {
				return err
			}

			ctx := context.Background()
			db, svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			rooms, err := svc.Checker().FindAvailableRooms(ctx, in, out, guests)
			if err != nil {
				return err
			}
			rows := make([]AvailabilityRow, 0, len(rooms))
			for _, room := range rooms {
				quote, err := svc.Quote(ctx, room.ID, in, out)
				if err != nil {
					return err
				}
				rows = append(rows, AvailabilityRow{Room: room, Quote: quote})
			}

			if outputJSON {
				return writeJSON(rows)
			}
			if len(rows) == 0 {
				fmt.Println("No rooms available.")
				return nil
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 2, 2, ' ', 0)
			fmt.Fprintln(writer, "ROOM\tTYPE\tCAPACITY\tNIGHTS\tNIGHTLY\tTOTAL\tSEASON")
			for _, row := range rows {
				fmt.Fprintf(writer, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
					row.Room.ID, row.Room.Type, row.Room.Capacity, row.Quote.Nights,
					row.Quote.NightlyRate, row.Quote.Total, row.Quote.Season)
			}
			return writer.Flush()
		},
	}

	cmd.Flags().StringVar(&checkIn, "check-in", "", "Check-in date (YYYY-MM-DD, today, tomorrow)")
	cmd.Flags().StringVar(&checkOut, "check-out", "", "Check-out date (YYYY-MM-DD, today, tomorrow)")
	cmd.Flags().IntVar(&guests, "guests", 1, "Minimum room capacity")
	return cmd
}

func parseDateInput(name, input string) (time.Time, error) {
	if input == "" {
		return time.Time{}, fmt.Errorf("--%s is required", name)
	}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch input {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	}
	parsed, err := time.Parse(time.DateOnly, input)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q (expected YYYY-MM-DD)", name, input)
	}
	return parsed, nil
}
