// Package scheduler runs periodic jobs such as the nightly reconciliation sweep.
//
// Schedules come from Every or a cron expression parsed with robfig/cron. A
// job is skipped while its previous run is still going, and with WithLocker
// each run first takes a cluster-wide lease so replicas never run the same
// job at once.
//
//	s := scheduler.New(scheduler.WithLocker(redis.NewLocker(client, "billing:lock:")))
//	daily, err := scheduler.Cron("0 2 * * *")
//	if err != nil {
//		return err
//	}
//	_ = s.Add("sweep", daily, sweeper.Run)
//	err = s.Start(ctx) // blocks until ctx is cancelled
package scheduler
