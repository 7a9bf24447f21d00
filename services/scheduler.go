package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartCacheWarmer refreshes every site in the background so user requests
// mostly hit a warm cache. Pick an interval of at least the cache freshness
// window, otherwise the job only finds fresh rows and does nothing. Returns
// nil when warming is disabled or the scheduler could not be created.
func (s *LeaderboardService) StartCacheWarmer(intervalMinutes int) gocron.Scheduler {
	if intervalMinutes <= 0 {
		return nil
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("Failed to create cache warm scheduler: %v", err)
		return nil
	}

	_, err = sched.NewJob(
		gocron.DurationJob(time.Duration(intervalMinutes)*time.Minute),
		gocron.NewTask(func() {
			// four sequential 30s fetches worst case, plus slack
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
			defer cancel()

			log.Println("Warming leaderboard cache...")
			s.ResolveAll(ctx)
		}),
	)
	if err != nil {
		log.Printf("Failed to schedule cache warm job: %v", err)
		_ = sched.Shutdown()
		return nil
	}

	sched.Start()
	log.Printf("Cache warmer running every %d minutes", intervalMinutes)
	return sched
}
