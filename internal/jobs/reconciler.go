package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type Store interface {
	ReconcileStorageUsed(ctx context.Context) (int64, error)
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// Reconciler periodically realigns every user's storage counter with the
// sizes of the files they own and drops expired sessions.
type Reconciler struct {
	store   Store
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
}

func NewReconciler(store Store, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:   store,
		cron:    cron.New(),
		logger:  logger,
		timeout: time.Minute,
	}
}

// Schedule registers the job. spec accepts standard cron expressions and
// descriptors such as "@every 1h".
func (r *Reconciler) Schedule(spec string) error {
	_, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		r.RunOnce(ctx)
	})
	return err
}

func (r *Reconciler) RunOnce(ctx context.Context) {
	start := time.Now()

	changed, err := r.store.ReconcileStorageUsed(ctx)
	if err != nil {
		r.logger.Error("storage reconciliation failed", "error", err)
	} else if changed > 0 {
		r.logger.Info("storage counters realigned", "users", changed, "took", time.Since(start))
	}

	expired, err := r.store.DeleteExpiredSessions(ctx)
	if err != nil {
		r.logger.Error("expired session cleanup failed", "error", err)
	} else if expired > 0 {
		r.logger.Info("expired sessions removed", "count", expired)
	}
}

func (r *Reconciler) Start() {
	r.cron.Start()
}

// Stop waits for a running job to finish.
func (r *Reconciler) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}
