package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var searchEvent int64

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().Int64Var(&searchEvent, "event", 0, "event id (required)")
	_ = searchCmd.MarkFlagRequired("event")
}

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Find participants by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := login(cmd.Context())
		if err != nil {
			return err
		}
		results, err := client.Search(cmd.Context(), strings.Join(args, " "), searchEvent)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("no matches")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FSY ID\tNAME\tSTAKE\tUNIT\tSTATUS")
		for _, r := range results {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.FsyID, r.Name, r.Stake, r.Unit, r.AttendanceStatus)
		}
		return w.Flush()
	},
}
