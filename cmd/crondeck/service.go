package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/flemzord/crondeck/internal/app"
)

// serviceStopTimeout bounds how long Stop waits for serve to return.
const serviceStopTimeout = 30 * time.Second

// program adapts `crondeck serve` to the service manager.
type program struct {
	cmd    *cobra.Command
	cancel context.CancelFunc
	done   chan error
}

// Compile-time interface check.
var _ service.Interface = (*program)(nil)

// Start implements service.Interface. It must not block.
func (p *program) Start(service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	p.cmd.SetContext(ctx)
	go func() {
		p.done <- runApp(p.cmd, false, func(ctx context.Context, a *app.App) error {
			return a.Serve(ctx)
		})
	}()
	return nil
}

// Stop implements service.Interface.
func (p *program) Stop(service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	select {
	case err := <-p.done:
		return err
	case <-time.After(serviceStopTimeout):
		return errors.New("timed out waiting for crondeck to stop")
	}
}

// serviceConfig describes the installed service. It runs
// `crondeck service run` with the same --config as the installing command.
func serviceConfig(cmd *cobra.Command, system bool) (*service.Config, error) {
	args := []string{"service", "run"}
	_, path, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		args = append(args, "--config", abs)
	}
	if system {
		args = append(args, "--system")
	}
	return &service.Config{
		Name:        "crondeck",
		DisplayName: "crondeck",
		Description: "crondeck crontab manager: HTTP API and crontab backups",
		Arguments:   args,
		Option: service.KeyValue{
			"UserService": !system,
			"Restart":     "on-failure",
		},
	}, nil
}

func serviceCmd() *cobra.Command {
	var system bool
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Install and control crondeck serve as a background service",
		Long: `Install and control "crondeck serve" as a background service (systemd,
launchd or the Windows service manager). By default the service runs as the
current user and manages that user's crontab; --system installs it system-wide.`,
	}
	cmd.PersistentFlags().BoolVar(&system, "system", false, "Use a system-wide service instead of a user service")

	newService := func(cmd *cobra.Command) (service.Service, *program, error) {
		cfg, err := serviceConfig(cmd, system)
		if err != nil {
			return nil, nil, err
		}
		prg := &program{cmd: cmd}
		s, err := service.New(prg, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("service: %w", err)
		}
		return s, prg, nil
	}

	for _, action := range []string{"install", "uninstall", "start", "stop", "restart"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the service", action),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, _, err := newService(cmd)
				if err != nil {
					return err
				}
				if err := service.Control(s, action); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Service %s: %s\n", action, green("ok"))
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := newService(cmd)
			if err != nil {
				return err
			}
			st, err := s.Status()
			if err != nil && !errors.Is(err, service.ErrNotInstalled) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), statusText(st, err))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:    "run",
		Short:  "Run under the service manager (used by the installed service)",
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := newService(cmd)
			if err != nil {
				return err
			}
			return s.Run()
		},
	})
	return cmd
}

func statusText(st service.Status, err error) string {
	if errors.Is(err, service.ErrNotInstalled) {
		return faint("not installed")
	}
	switch st {
	case service.StatusRunning:
		return green("running")
	case service.StatusStopped:
		return yellow("stopped")
	default:
		return faint("unknown")
	}
}
