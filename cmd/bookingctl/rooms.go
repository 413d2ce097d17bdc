package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/warp/booking-engine/factory"
)

func roomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Manage the room catalog",
	}

	cmd.AddCommand(roomsListCmd())
	cmd.AddCommand(roomsImportCmd())
	cmd.AddCommand(roomsExportCmd())
	return cmd
}

func roomsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rooms with their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			db, _, err := openService(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			rooms, err := db.ListRooms(ctx)
			if err != nil {
				return err
			}
			sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })

			if outputJSON {
				return writeJSON(rooms)
			}
			if len(rooms) == 0 {
				fmt.Println("No rooms.")
				return nil
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 2, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tTYPE\tCAPACITY\tBASE PRICE\tSTATUS\tCLEANING")
			for _, room := range rooms {
				status := string(room.Status)
				if !room.Active {
					status += " (inactive)"
				}
				cleaning := "no"
				if room.NeedsCleaning {
					cleaning = "yes"
				}
				fmt.Fprintf(writer, "%s\t%s\t%d\t%s\t%s\t%s\n",
					room.ID, room.Type, room.Capacity, room.BasePrice, status, cleaning)
			}
			return writer.Flush()
		},
	}
}

func roomsImportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import or replace rooms from a catalog JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("file", file); err != nil {
				return err
			}
			ctx := context.Background()
			db, svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			rooms, err := factory.LoadCatalogFile(file, svc.Policy().Currency)
			if err != nil {
				return err
			}
			if err := factory.ImportRooms(ctx, db, rooms, svc.Policy().Currency); err != nil {
				return err
			}
			fmt.Printf("Imported %d rooms.\n", len(rooms))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Catalog JSON file")
	return cmd
}

func roomsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the room catalog as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			db, _, err := openService(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			rooms, err := db.ListRooms(ctx)
			if err != nil {
				return err
			}
			sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
			return writeJSON(factory.ToCatalogJSON(rooms))
		},
	}
}
