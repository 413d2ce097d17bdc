package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp/booking-engine/config"
	"github.com/warp/booking-engine/hotel"
	"github.com/warp/booking-engine/lock"
	"github.com/warp/booking-engine/store"
)

var (
	outputJSON bool
	storeFlag  string
	dbFlag     string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bookingctl",
	Short: "Administer the hotel booking engine",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if storeFlag != "" {
			loaded.StoreDriver = storeFlag
		}
		if dbFlag != "" {
			loaded.SQLitePath = dbFlag
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	SilenceUsage: true,
}

func Execute() {
	rootCmd.AddCommand(roomsCmd())
	rootCmd.AddCommand(availabilityCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output JSON")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "Store driver (sqlite, postgres, memory); overrides STORE_DRIVER")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "SQLite database path; overrides SQLITE_PATH")
}

// openService opens the configured store and builds a booking service on
// it. The caller closes the returned handle.
func openService(ctx context.Context) (*store.Handle, *hotel.BookingService, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := hotel.NewBookingService(db, lock.NewLocal(), hotel.WithPolicy(policy))
	return db, svc, nil
}

func writeJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required", name)
	}
	return nil
}
