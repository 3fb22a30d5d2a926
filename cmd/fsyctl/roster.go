package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fsyportal/internal/attendance"
)

var rosterEvent int64

func init() {
	rootCmd.AddCommand(rosterCmd)
	rosterCmd.Flags().Int64Var(&rosterEvent, "event", 0, "event id (0 shows the group without attendance)")
}

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Show your group's roster for an event",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, _, err := login(ctx)
		if err != nil {
			return err
		}
		me, err := client.UserInfo(ctx)
		if err != nil {
			return err
		}
		roster, err := client.Roster(ctx, rosterEvent, me.CompanyID, me.GroupID)
		if err != nil {
			return err
		}
		fmt.Printf("%s / %s\n", me.CompanyName, me.GroupName)
		return printRoster(os.Stdout, roster, nil)
	},
}

// printRoster writes one row per member. Members in pending are starred.
func printRoster(out io.Writer, r attendance.Roster, pending map[int64]bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, " \tFSY ID\tROLE\tNAME\tSTAKE / UNIT\tSTATUS")
	for _, m := range append(r.Participants, r.Counselors...) {
		mark := " "
		if pending[m.FsyID] {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s / %s\t%s\n", mark, m.FsyID, m.Type, m.FullName(), m.StakeName, m.UnitName, m.AttendanceStatus)
	}
	return w.Flush()
}
