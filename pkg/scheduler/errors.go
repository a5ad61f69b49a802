package scheduler

import "errors"

var (
	ErrInvalidSchedule     = errors.New("scheduler: invalid schedule")
	ErrJobAlreadyAdded     = errors.New("scheduler: job already registered")
	ErrJobNotFound         = errors.New("scheduler: job not found")
	ErrNoJobs              = errors.New("scheduler: no jobs registered")
	ErrJobRunning          = errors.New("scheduler: job is already running")
	ErrLockHeldElsewhere   = errors.New("scheduler: job lease is held by another instance")
)
