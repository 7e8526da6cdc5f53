package workers

import (
	"context"
	"time"

	"gotokenbridge/bridge"

	"github.com/hashicorp/go-hclog"
)

// Worker_processExecution re-drives operations that stopped moving, e.g.
// after a restart or a cancelled confirmation wait. Operations are resumed one
// at a time; each runs until it completes or fails again.
func Worker_processExecution(ctx context.Context, orchestrator *bridge.Orchestrator, interval time.Duration, logger hclog.Logger) {
	logger = logger.Named("resume")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		stranded, err := orchestrator.Stranded(interval)
		if err != nil {
			logger.Error("error getting stranded operations", "err", err)

			continue
		}

		for _, op := range stranded {
			if ctx.Err() != nil {
				return
			}

			logger.Info("found stranded operation", "request", op.RequestID, "receipt", op.ID, "state", op.State)

			res, err := orchestrator.Resume(ctx, op.RequestID)
			if err != nil {
				logger.Warn("error resuming operation", "request", op.RequestID, "err", err)

				continue
			}

			logger.Info("resumed operation completed", "request", op.RequestID, "receipt", res.ReceiptID)
		}
	}
}
