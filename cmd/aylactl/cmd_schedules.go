package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/schedule"
)

// schedulesCmd is the parent command for device schedules
var schedulesCmd = &cobra.Command{
	Use:   "schedules",
	Short: "Manage device schedules",
	Long: `Manage the schedules stored on a device.

Available subcommands:
  list    - List the schedules of a device
  actions - List the actions of one schedule
  enable  - Activate a schedule
  disable - Deactivate a schedule`,
}

var schedulesListCmd = &cobra.Command{
	Use:   "list <dsn>",
	Short: "List the schedules of a device",
	Args:  cobra.ExactArgs(1),
	RunE:  signedIn(runSchedulesList),
}

var schedulesActionsCmd = &cobra.Command{
	Use:   "actions <dsn> <schedule>",
	Short: "List the actions of a schedule",
	Args:  cobra.ExactArgs(2),
	RunE:  signedIn(runSchedulesActions),
}

var schedulesEnableCmd = &cobra.Command{
	Use:   "enable <dsn> <schedule>",
	Short: "Activate a schedule",
	Args:  cobra.ExactArgs(2),
	RunE:  signedIn(func(ctx context.Context, a *app, args []string) error { return setScheduleActive(ctx, a, args, true) }),
}

var schedulesDisableCmd = &cobra.Command{
	Use:   "disable <dsn> <schedule>",
	Short: "Deactivate a schedule",
	Args:  cobra.ExactArgs(2),
	RunE:  signedIn(func(ctx context.Context, a *app, args []string) error { return setScheduleActive(ctx, a, args, false) }),
}

func init() {
	schedulesCmd.AddCommand(schedulesListCmd, schedulesActionsCmd, schedulesEnableCmd, schedulesDisableCmd)
}

func runSchedulesList(ctx context.Context, a *app, args []string) error {
	d, err := a.devices.FetchDevice(ctx, args[0])
	if err != nil {
		return err
	}
	list, err := a.schedules.FetchAll(ctx, d)
	if err != nil {
		return err
	}
	return printSchedules(a, list...)
}

func printSchedules(a *app, list ...schedule.Schedule) error {
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		window := orDash(s.StartTimeEachDay)
		if s.EndTimeEachDay != "" {
			window += "-" + s.EndTimeEachDay
		}
		rows = append(rows, []string{s.Name, orDash(s.DisplayName), strconv.FormatBool(s.Active), s.Direction, window})
	}
	return a.out.print(list, []string{"NAME", "DISPLAY NAME", "ACTIVE", "DIRECTION", "WINDOW"}, rows)
}

// lookupSchedule fetches the device and one of its schedules by name.
func lookupSchedule(ctx context.Context, a *app, dsn, name string) (*schedule.Schedule, error) {
	d, err := a.devices.FetchDevice(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return a.schedules.FetchByName(ctx, d, name)
}

func runSchedulesActions(ctx context.Context, a *app, args []string) error {
	sch, err := lookupSchedule(ctx, a, args[0], args[1])
	if err != nil {
		return err
	}
	actions, err := a.schedules.FetchActions(ctx, sch)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(actions))
	for _, act := range actions {
		rows = append(rows, []string{act.Name, act.BaseType, act.Value, firePoint(act), strconv.FormatBool(act.Active)})
	}
	return a.out.print(actions, []string{"PROPERTY", "TYPE", "VALUE", "FIRES", "ACTIVE"}, rows)
}

func setScheduleActive(ctx context.Context, a *app, args []string, active bool) error {
	d, err := a.devices.FetchDevice(ctx, args[0])
	if err != nil {
		return err
	}
	sch, err := a.schedules.FetchByName(ctx, d, args[1])
	if err != nil {
		return err
	}
	if active {
		sch, err = a.schedules.Enable(ctx, d, sch)
	} else {
		sch, err = a.schedules.Disable(ctx, d, sch)
	}
	if err != nil {
		return fmt.Errorf("updating schedule %s: %w", args[1], err)
	}
	return printSchedules(a, *sch)
}

func firePoint(act schedule.Action) string {
	switch {
	case act.AtStart:
		return "start"
	case act.AtEnd:
		return "end"
	case act.InRange:
		return "in range"
	default:
		return "-"
	}
}
