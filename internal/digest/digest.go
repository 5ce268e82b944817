// Package digest sends the admin a daily summary of logged activity.
package digest

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"relaybot/internal/logstore"
)

// Source counts logged entries per event type. Implemented by logstore.Store.
type Source interface {
	CountByEventTypeSince(ctx context.Context, since time.Time) (map[logstore.EventType]int, error)
}

// Scheduler triggers a daily activity report for the admin user.
type Scheduler struct {
	cron    *cron.Cron
	src     Source
	send    func(userID int64, text string)
	adminID int64
}

func New(src Source, send func(userID int64, text string), adminID int64) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		src:     src,
		send:    send,
		adminID: adminID,
	}
}

// Start schedules the daily report at 21:00 UTC. A zero admin id disables
// the digest.
func (s *Scheduler) Start() error {
	if s.adminID == 0 {
		log.Println("no admin user configured, daily digest disabled")
		return nil
	}
	_, err := s.cron.AddFunc("0 21 * * *", func() {
		if err := s.report(context.Background()); err != nil {
			log.Printf("daily digest failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule daily digest: %w", err)
	}
	s.cron.Start()
	log.Println("scheduler started, daily digest at 21:00 UTC")
	return nil
}

// Stop stops the scheduler; a run already in progress is not interrupted.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) report(ctx context.Context) error {
	counts, err := s.src.CountByEventTypeSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return fmt.Errorf("failed to collect digest counts: %w", err)
	}
	s.send(s.adminID, BuildReport(counts, time.Now().UTC()))
	return nil
}

// BuildReport formats per-event-type counts into the message sent to the
// admin.
func BuildReport(counts map[logstore.EventType]int, now time.Time) string {
	total := 0
	types := make([]string, 0, len(counts))
	for et, n := range counts {
		total += n
		types = append(types, string(et))
	}
	sort.Strings(types)

	text := fmt.Sprintf("📊 Активность за сутки (%s)\nВсего событий: %d\n", now.Format("2006-01-02"), total)
	for _, et := range types {
		text += fmt.Sprintf("• %s: %d\n", et, counts[logstore.EventType(et)])
	}
	if total == 0 {
		text += "Событий не было."
	}
	return text
}
