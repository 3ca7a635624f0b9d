package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"bsid.es/despertador"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// alarmFlags are the alarm fields settable from the command line.
type alarmFlags struct {
	time    string
	message string
	repeat  bool
	days    string
}

func (f *alarmFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.time, "time", "t", "", "time of day as HH:MM")
	fs.StringVarP(&f.message, "message", "m", "", "text shown when the alarm rings")
	fs.BoolVarP(&f.repeat, "repeat", "r", false, "ring every day regardless of --days")
	fs.StringVarP(&f.days, "days", "d", "", "days to ring on: names (mon,fri), aliases (weekdays, weekend, daily) or a bit mask")
}

func newListCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List alarms",
		Long: `List alarms in store order. The json output is the persisted AlarmInfo
document.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(func(m *despertador.Manager) error {
				alarms, err := m.List()
				if err != nil {
					return err
				}
				return writeAlarms(cmd.OutOrStdout(), output, alarms, time.Now())
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}

func writeAlarms(out io.Writer, format string, alarms []despertador.Alarm, now time.Time) error {
	if alarms == nil {
		alarms = []despertador.Alarm{}
	}
	switch format {
	case "table":
		printAlarms(out, alarms, now)
		return nil
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string][]despertador.Alarm{"Alarm": alarms})
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(alarms); err != nil {
			return err
		}
		return enc.Close()
	}
	return despertador.Errorf(despertador.ErrInvalid, "unknown output format %q", format)
}

// printAlarms writes one row per alarm. Cells are padded before they are
// colored so escape sequences don't skew the columns.
func printAlarms(out io.Writer, alarms []despertador.Alarm, now time.Time) {
	if len(alarms) == 0 {
		fmt.Fprintln(out, "No alarms")
		return
	}
	bold := color.New(color.Bold)
	on := color.New(color.FgGreen)
	off := color.New(color.FgRed)
	faint := color.New(color.Faint)

	bold.Fprintf(out, "%-3s %-5s %-5s %-13s %-16s %-18s %s\n", "ID", "TIME", "STATE", "DAYS", "NEXT", "IN", "MESSAGE")
	for _, a := range alarms {
		state := on.Sprintf("%-5s", "on")
		if !a.Enabled {
			state = off.Sprintf("%-5s", "off")
		}
		days := a.DaysOfWeek
		if a.Repeat {
			days = despertador.EveryDay
		}
		next, in := faint.Sprintf("%-16s", "never"), faint.Sprintf("%-18s", "-")
		if t := a.Next(now); !t.IsZero() {
			next = fmt.Sprintf("%-16s", t.Format("Mon 02 Jan 15:04"))
			in = fmt.Sprintf("%-18s", humanize.RelTime(t, now, "ago", "from now"))
		}
		fmt.Fprintf(out, "%-3d %-5s %s %-13s %s %s %s\n", a.ID, a.Time, state, days, next, in, a.Message)
	}
}

func newAddCmd() *cobra.Command {
	var f alarmFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an alarm",
		Example: `  despertador add --time 07:30 --message "wake up" --days weekdays
  despertador add -t 10:00 -m pills --repeat`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := despertador.ParseClockTime(f.time)
			if err != nil {
				return err
			}
			days, err := despertador.ParseWeekdays(f.days)
			if err != nil {
				return err
			}
			return withManager(func(m *despertador.Manager) error {
				id, err := m.CreateAlarm(t, f.message, f.repeat, days)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created alarm %d at %s\n", id, t)
				return nil
			})
		},
	}
	f.register(cmd.Flags())
	cmd.MarkFlagRequired("time")
	return cmd
}

func newSetCmd() *cobra.Command {
	var (
		f       alarmFlags
		enabled bool
	)
	cmd := &cobra.Command{
		Use:   "set ID",
		Short: "Change an alarm",
		Long: `Change the fields of an alarm. Fields whose flags are not given keep
their current value.`,
		Example: `  despertador set 2 --time 06:45
  despertador set 1 --days mon,wed,fri --repeat=false`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()

			var u despertador.Update
			if flags.Changed("time") {
				t, err := despertador.ParseClockTime(f.time)
				if err != nil {
					return err
				}
				u.Time = &t
			}
			if flags.Changed("message") {
				u.Message = &f.message
			}
			var days despertador.Weekdays
			if flags.Changed("days") {
				if days, err = despertador.ParseWeekdays(f.days); err != nil {
					return err
				}
			}

			return withManager(func(m *despertador.Manager) error {
				a, err := m.Alarm(id)
				if err != nil {
					return err
				}
				u.Enabled, u.Repeat, u.Days = a.Enabled, a.Repeat, a.DaysOfWeek
				if flags.Changed("enabled") {
					u.Enabled = enabled
				}
				if flags.Changed("repeat") {
					u.Repeat = f.repeat
				}
				if flags.Changed("days") {
					u.Days = days
				}
				if err := m.ModifyAlarm(id, u); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated alarm %d\n", id)
				return nil
			})
		},
	}
	f.register(cmd.Flags())
	cmd.Flags().BoolVarP(&enabled, "enabled", "e", true, "arm or disarm the alarm")
	return cmd
}

// newEnableCmd creates the enable subcommand, or disable when enabled is false.
func newEnableCmd(enabled bool) *cobra.Command {
	use, short := "enable ID", "Arm an alarm"
	if !enabled {
		use, short = "disable ID", "Disarm an alarm"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withManager(func(m *despertador.Manager) error {
				return m.SetEnabled(id, enabled)
			})
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete an alarm",
		Long:    `Delete an alarm. Alarms after it move up and take the next lower id.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withManager(func(m *despertador.Manager) error {
				if err := m.DeleteAlarm(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted alarm %d\n", id)
				return nil
			})
		},
	}
}

func newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of alarms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(func(m *despertador.Manager) error {
				n, err := m.Count()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, despertador.Errorf(despertador.ErrInvalid, "alarm id %q is not a positive number", s)
	}
	return id, nil
}

