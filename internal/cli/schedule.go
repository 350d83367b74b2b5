package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

const checkpointGrace = 10 * time.Second

// StartCheckpoints saves every live canvas on the Store.Schedule cron
// expression until stop is called. Without a schedule it does nothing.
func (a *App) StartCheckpoints() (stop func(), err error) {
	spec := a.Config.Store.Schedule
	if spec == "" || a.Sessions.Store() == nil {
		return func() {}, nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, a.checkpointAll); err != nil {
		return nil, fmt.Errorf("checkpoint schedule %q: %w", spec, err)
	}
	c.Start()
	a.Logger.Info("Scheduled checkpoints", "schedule", spec)
	return func() { <-c.Stop().Done() }, nil
}

func (a *App) checkpointAll() {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Store.LockTTL+checkpointGrace)
	defer cancel()
	if err := a.Sessions.CheckpointAll(ctx); err != nil {
		a.Logger.Error("Scheduled checkpoint failed", "err", err)
		return
	}
	a.Logger.Debug("Scheduled checkpoint done")
}
