// Package analysis runs brainstorm summarization jobs in the
// background. Jobs are submitted after a caller wins the store-level
// processing gate; the runner is the single owner of result handling,
// persisting the summary and notifying the meeting's room.
package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/meetsync/meetsync/server/internal/model"
	"github.com/meetsync/meetsync/server/internal/store"
	"github.com/meetsync/meetsync/server/internal/ws"
)

// Summarizer produces a summary for a topic's idea list.
type Summarizer interface {
	Summarize(ctx context.Context, topic string, ideas []string) (string, error)
}

// Publisher fans an event out to a meeting's room.
type Publisher interface {
	Publish(meetingID, event string, payload interface{})
}

// Job is one summarization request.
type Job struct {
	MeetingID string
	SessionID string
	Topic     string
	Ideas     []string
}

// jobTimeout bounds a single model call.
const jobTimeout = 3 * time.Minute

// Runner executes jobs and owns their results.
type Runner struct {
	summarizer  Summarizer
	brainstorms store.Brainstorms
	hub         Publisher
	results     chan model.AnalysisResult
	log         zerolog.Logger
}

func NewRunner(summarizer Summarizer, brainstorms store.Brainstorms, hub Publisher, log zerolog.Logger) *Runner {
	return &Runner{
		summarizer:  summarizer,
		brainstorms: brainstorms,
		hub:         hub,
		results:     make(chan model.AnalysisResult, 16),
		log:         log.With().Str("component", "analysis-runner").Logger(),
	}
}

// Submit starts a job in the background. The caller must already hold
// the session's processing gate.
func (r *Runner) Submit(job Job) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		res := model.AnalysisResult{MeetingID: job.MeetingID, SessionID: job.SessionID}
		summary, err := r.summarizer.Summarize(ctx, job.Topic, job.Ideas)
		if err != nil {
			msg := err.Error()
			res.Error = &msg
		} else {
			res.Success = true
			res.Summary = &summary
		}
		r.results <- res
	}()
}

// Run consumes job results until ctx is canceled. Successful results
// are persisted before the room is notified; failed jobs keep the
// session in its processing state and only log.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-r.results:
			r.handle(ctx, res)
		}
	}
}

func (r *Runner) handle(ctx context.Context, res model.AnalysisResult) {
	if res.Success {
		if err := r.brainstorms.CompleteAnalysis(ctx, res.SessionID, *res.Summary); err != nil {
			r.log.Error().Err(err).Str("session_id", res.SessionID).Msg("persist summary")
			return
		}
	} else {
		r.log.Error().Str("session_id", res.SessionID).Str("error", deref(res.Error)).Msg("analysis failed")
	}
	r.hub.Publish(res.MeetingID, ws.EventAnalysisCompleted, res)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
