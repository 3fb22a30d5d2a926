package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(eventsCmd)
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List the program schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := login(cmd.Context())
		if err != nil {
			return err
		}
		events, err := client.Events(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDAY\tSTART\tEND\tSTATUS\tNAME")
		for _, e := range events {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n", e.ID, e.DayNumber, e.StartTime, e.EndTime, e.Status, e.Name)
		}
		return w.Flush()
	},
}
