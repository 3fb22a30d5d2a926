package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fsyportal/internal/attendance"
	"fsyportal/internal/checkin"
	"fsyportal/internal/event"
)

var (
	checkinEvent      int64
	checkinAllPresent bool
	checkinClear      bool
	checkinToggle     []int64
	checkinDryRun     bool
	checkinVenueTZ    string
	checkinLeaveDelay time.Duration
)

func init() {
	rootCmd.AddCommand(checkinCmd)
	checkinCmd.Flags().Int64Var(&checkinEvent, "event", 0, "event id (required)")
	checkinCmd.Flags().BoolVar(&checkinAllPresent, "all-present", false, "mark every member Present")
	checkinCmd.Flags().BoolVar(&checkinClear, "clear", false, "reset every member to Not Set")
	checkinCmd.Flags().Int64SliceVar(&checkinToggle, "toggle", nil, "advance these members to their next status (repeatable)")
	checkinCmd.Flags().BoolVar(&checkinDryRun, "dry-run", false, "show the result without submitting")
	checkinCmd.Flags().StringVar(&checkinVenueTZ, "venue-tz", "Asia/Manila", "venue time zone")
	checkinCmd.Flags().DurationVar(&checkinLeaveDelay, "leave-delay", envDuration("SUBMIT_NAV_DELAY", 1500*time.Millisecond), "pause after a successful submit")
	_ = checkinCmd.MarkFlagRequired("event")

	rootCmd.AddCommand(markCmd)
	markCmd.Flags().Int64Var(&checkinEvent, "event", 0, "event id (required)")
	_ = markCmd.MarkFlagRequired("event")
}

var checkinCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Take attendance for your group",
	Long: `Load your group's roster for an event, apply edits and submit the whole roster.

Bulk flags run before --toggle, so "--all-present --toggle 12" marks everyone
Present and then moves member 12 on to Absent.

Examples:
  fsyctl checkin --event 4 --all-present
  fsyctl checkin --event 4 --toggle 1021 --toggle 1022 --dry-run`,
	RunE: runCheckin,
}

var markCmd = &cobra.Command{
	Use:   "mark <fsy_id> [status]",
	Short: "Record one member's attendance (defaults to Present)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fsyID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid fsy id %q", args[0])
		}
		status := attendance.StatusPresent
		if len(args) == 2 {
			if status, err = attendance.ParseStatus(args[1]); err != nil {
				return err
			}
		}
		client, _, err := login(cmd.Context())
		if err != nil {
			return err
		}
		if err := client.Record(cmd.Context(), checkinEvent, fsyID, status); err != nil {
			return err
		}
		fmt.Printf("%d marked %s\n", fsyID, status)
		return nil
	},
}

type terminal struct {
	in *bufio.Reader
}

func (t terminal) Notify(level checkin.Level, msg string) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", level, msg)
}

func (t terminal) Confirm(msg string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", msg)
	line, _ := t.in.ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

func (t terminal) Leave() {}

func runCheckin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	loc, err := time.LoadLocation(checkinVenueTZ)
	if err != nil {
		return fmt.Errorf("invalid --venue-tz: %w", err)
	}
	client, user, err := login(ctx)
	if err != nil {
		return err
	}
	me, err := client.UserInfo(ctx)
	if err != nil {
		return err
	}
	events, err := client.Events(ctx)
	if err != nil {
		return err
	}
	var target *event.Event
	for i := range events {
		if events[i].ID == checkinEvent {
			target = &events[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("event %d not found", checkinEvent)
	}

	tty := terminal{in: bufio.NewReader(os.Stdin)}
	view := checkin.New(checkin.Options{
		Source:    client,
		Notifier:  tty,
		Prompter:  tty,
		Navigator: tty,
		Group:     checkin.Group{CompanyID: me.CompanyID, GroupID: me.GroupID, UserID: user.ID},

		Clock:      event.NewClock(loc, nil),
		LeaveDelay: checkinLeaveDelay,

		// Block so the success message is shown before the command exits.
		AfterFunc: func(d time.Duration, f func()) {
			time.Sleep(d)
			f()
		},
	})
	if err := view.Open(ctx, *target); err != nil {
		return err
	}

	if checkinClear {
		view.ClearAll()
	}
	if checkinAllPresent {
		view.AllPresent()
	}
	for _, id := range checkinToggle {
		if _, err := view.Advance(id); err != nil {
			return err
		}
	}

	pending := map[int64]bool{}
	for _, id := range view.Pending() {
		pending[id] = true
	}
	fmt.Printf("%s (%s) for %s / %s\n", target.Name, view.Event().Status, me.CompanyName, me.GroupName)
	if err := printRoster(os.Stdout, view.Roster(), pending); err != nil {
		return err
	}
	s := view.Stats()
	fmt.Printf("present %d  absent %d  excused %d  not set %d  (%d unsaved)\n",
		s.Present, s.Absent, s.Excused, s.NotSet, len(pending))

	if checkinDryRun || len(pending) == 0 {
		if !view.Back() {
			return fmt.Errorf("kept %d unsaved changes", len(pending))
		}
		return nil
	}
	return view.Submit(ctx)
}
