package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// refreshSchedule runs the nightly relearn at 02:00 local time.
const refreshSchedule = "0 2 * * *"

// activeWindow bounds which users the nightly refresh considers.
const activeWindow = 7 * 24 * time.Hour

// Refresher relearns patterns for recently active users on a schedule, so
// long-lived profiles stay current even for users who interact rarely.
type Refresher struct {
	server *Server
	cron   *cron.Cron
}

// NewRefresher creates the refresher; Start arms the schedule.
func NewRefresher(s *Server) *Refresher {
	return &Refresher{
		server: s,
		cron:   cron.New(),
	}
}

func (r *Refresher) Start() {
	if _, err := r.cron.AddFunc(refreshSchedule, r.run); err != nil {
		slog.Error("failed to schedule nightly refresh", "error", err)
		return
	}
	r.cron.Start()
}

func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Refresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	since := time.Now().Add(-activeWindow)
	userIDs, err := r.server.store.ListActiveUserIDs(ctx, since.Unix())
	if err != nil {
		slog.Warn("nightly refresh skipped", "error", err)
		return
	}

	engines := r.server.activeEngines()
	refreshed := 0
	for _, userID := range userIDs {
		e, ok := engines[userID]
		if !ok {
			// Only loaded engines are refreshed; cold users relearn
			// lazily on their next interaction.
			continue
		}
		e.RelearnNow(ctx)
		refreshed++
	}
	slog.Info("nightly refresh complete", "active_users", len(userIDs), "refreshed", refreshed)
}
