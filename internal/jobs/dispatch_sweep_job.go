package job

import (
	"context"
	"log"
	"log/slog"

	"github.com/pulseboard/publisher/internal/service"
)

// DispatchSweepJob is the periodic batch trigger: each run is stateless and
// selects the currently due posts fresh, so a missed or crashed run is
// recovered by the next one.
type DispatchSweepJob struct {
	dispatch service.DispatchService
}

func NewDispatchSweepJob(dispatch service.DispatchService) *DispatchSweepJob {
	return &DispatchSweepJob{dispatch: dispatch}
}

func (j *DispatchSweepJob) SweepDuePosts() {
	ctx := context.Background()

	report, err := j.dispatch.RunDue(ctx, "")
	if err != nil {
		slog.Error("due-post sweep failed", "error", err)
		return
	}

	if report.Processed > 0 {
		log.Printf("Dispatch sweep processed %d post(s)", report.Processed)
	}
	for _, outcome := range report.Results {
		if !outcome.Success {
			log.Printf("Post %d failed to publish: %s", outcome.PostID, outcome.Error)
		}
	}
}
