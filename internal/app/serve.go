package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/flemzord/crondeck/internal/gateway"
	"github.com/flemzord/crondeck/internal/maintenance"
	"github.com/flemzord/crondeck/internal/manager"
)

// Gateway builds the HTTP gateway for the app's services.
func (a *App) Gateway() *gateway.Gateway {
	opts := gateway.Options{
		Config:   a.Config.Gateway,
		Manager:  a.Manager,
		Audit:    a.Audit,
		Logger:   a.Logger,
		Registry: a.Registry,
		Gatherer: a.Registry,
		Version:  a.version,
	}
	if a.Backups != nil {
		opts.Backups = a.Backups
	}
	return gateway.New(opts)
}

// Scheduler builds the maintenance scheduler: periodic snapshots and
// pruning. It has no jobs when backups are disabled.
func (a *App) Scheduler() (*maintenance.Scheduler, error) {
	s := maintenance.NewScheduler(a.Logger)
	if a.Backups == nil {
		return s, nil
	}
	jobs := []maintenance.Job{
		&maintenance.SnapshotJob{
			Source:       a.Manager,
			Logger:       a.Logger,
			ScheduleExpr: a.Config.Backups.SnapshotSchedule,
		},
		&maintenance.PruneJob{
			Store:        a.Backups,
			Keep:         a.Config.Backups.Keep,
			Audit:        a.Audit,
			Logger:       a.Logger,
			ScheduleExpr: a.Config.Backups.PruneSchedule,
		},
	}
	for _, j := range jobs {
		if err := s.RegisterJob(j); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}
	return s, nil
}

// Serve runs the gateway and the maintenance scheduler until ctx is done or
// SIGINT/SIGTERM is received, then shuts both down.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := a.Scheduler()
	if err != nil {
		return err
	}
	gw := a.Gateway()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gw.Run(gctx)
	})
	g.Go(func() error {
		jobCtx := manager.WithSource(gctx, manager.SourceScheduler)
		if err := sched.Start(jobCtx); err != nil {
			return err
		}
		// Catch edits made while crondeck was not running.
		if a.Backups != nil {
			if _, err := sched.RunNow(jobCtx, "snapshot"); err != nil {
				a.Logger.Warn("initial snapshot failed", "error", err)
			}
		}
		<-gctx.Done()
		return sched.Stop(context.WithoutCancel(gctx))
	})

	a.Logger.Info("crondeck serving", "version", a.version, "bind", a.Config.Gateway.Bind)
	err = g.Wait()
	a.Logger.Info("shutdown complete")
	return err
}
