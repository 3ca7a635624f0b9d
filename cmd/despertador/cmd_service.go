package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program implements service.Program around serve.
type program struct {
	cancel context.CancelFunc
	done   chan error
}

// Start must return quickly; the scheduler runs in its own goroutine.
func (p *program) Start(s service.Service) error {
	e, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		defer e.Close()
		p.done <- serve(ctx, e)
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	return <-p.done
}

// newService describes the despertador service. The service manager starts
// it as "despertador run" with the current --config and --debug flags.
func newService(userMode bool) (service.Service, error) {
	cfg := &service.Config{
		Name:        "despertador",
		DisplayName: "Despertador",
		Description: "Rings scheduled alarms at their time of day.",
		Arguments:   []string{"run"},
		Option:      service.KeyValue{},
	}
	if configPath != "" {
		cfg.Arguments = append(cfg.Arguments, "--config", configPath)
	}
	if debug {
		cfg.Arguments = append(cfg.Arguments, "--debug")
	}
	if userMode {
		cfg.Option["UserService"] = true
	}

	switch runtime.GOOS {
	case "darwin":
		cfg.Option["KeepAlive"] = true
		cfg.Option["RunAtLoad"] = true
	case "linux":
		cfg.Option["Restart"] = "on-failure"
	case "windows":
		cfg.Option["OnFailure"] = "restart"
	}
	return service.New(&program{}, cfg)
}

func newInstallCmd() *cobra.Command {
	var userMode bool
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install despertador as a system service",
		Long: `Install the scheduler as a service that starts on boot.

Use --user to install as a user service (no elevated privileges required).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(userMode)
			if err != nil {
				return err
			}
			if status, err := svc.Status(); err == nil && status != service.StatusUnknown {
				return errors.New("service already installed, run 'despertador uninstall' first")
			}
			if err := svc.Install(); err != nil {
				if os.IsPermission(err) {
					return fmt.Errorf("permission denied, retry with elevated privileges or --user: %w", err)
				}
				return fmt.Errorf("install service: %w", err)
			}
			fmt.Println("despertador installed")
			fmt.Println("\nTo start the service:")
			fmt.Println("  despertador start")
			return nil
		},
	}
	cmd.Flags().BoolVar(&userMode, "user", false, "install as user service instead of system")
	return cmd
}

func newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the despertador service",
		Long:  `Remove the service. It is stopped first if running.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(false)
			if err != nil {
				return err
			}
			status, err := svc.Status()
			if err != nil || status == service.StatusUnknown {
				return errors.New("service not installed")
			}
			if status == service.StatusRunning {
				_ = svc.Stop()
			}
			if err := svc.Uninstall(); err != nil {
				return fmt.Errorf("uninstall service: %w", err)
			}
			fmt.Println("despertador uninstalled")
			return nil
		},
	}
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the installed service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return control(func(svc service.Service, status service.Status) error {
				if status == service.StatusRunning {
					return errors.New("service already running")
				}
				return svc.Start()
			}, "started")
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return control(func(svc service.Service, status service.Status) error {
				if status != service.StatusRunning {
					return errors.New("service not running")
				}
				return svc.Stop()
			}, "stopped")
		},
	}
}

func control(f func(service.Service, service.Status) error, done string) error {
	svc, err := newService(false)
	if err != nil {
		return err
	}
	status, err := svc.Status()
	if err != nil {
		return errors.New("service not installed")
	}
	if err := f(svc, status); err != nil {
		return err
	}
	fmt.Println("despertador " + done)
	return nil
}
