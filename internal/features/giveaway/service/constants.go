package service

import "time"

const (
	// A giveaway ends on the first tick where now+EndLeeway passes its end time.
	EndLeeway = time.Second

	// Render cadence, first match wins.
	FinalCountdownWindow = 5 * time.Second // every tick
	WarmupWindow         = 5 * time.Minute // every WarmupEveryTicks
	WarmupEveryTicks     = 5
	HeartbeatEveryTicks  = 60

	// Bound on a single messaging call made from a tick.
	OperationTimeout = 10 * time.Second

	DefaultWorkerPoolSize = 20

	// EntryMarker is the reaction members add to enter a giveaway.
	EntryMarker = "🎉"
)
