package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version info (set by ldflags)
	version = "dev"

	// Flags
	configPath string
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "despertador",
		Short: "Alarm clock scheduler",
		Long: `despertador keeps up to ten daily alarms in persistent settings and rings
them when the wall clock reaches their time.

Daemon:
  despertador run                  Run the scheduler in the foreground
  despertador install [--user]     Install the scheduler as a service
  despertador uninstall            Remove the service
  despertador start | stop         Control the installed service

Alarms:
  despertador list                 Show alarms and their next ring
  despertador add --time 07:30     Create an alarm
  despertador set ID [flags]       Change an alarm
  despertador enable | disable ID  Arm or disarm an alarm
  despertador rm ID                Delete an alarm
  despertador count                Print the number of alarms

Alarm commands edit the configured storage directly. A running daemon
picks the changes up on its next start; use its HTTP API for live edits.`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ./config.yaml or ~/.config/despertador/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newRunCmd(),
		newListCmd(),
		newAddCmd(),
		newSetCmd(),
		newEnableCmd(true),
		newEnableCmd(false),
		newRemoveCmd(),
		newCountCmd(),
		newInstallCmd(),
		newUninstallCmd(),
		newStartCmd(),
		newStopCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		// Error already printed by cobra
		os.Exit(1)
	}
}
