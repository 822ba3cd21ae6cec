package state

import "time"

var (
	SecondLinkChance = 0.3
	LoadDecay        = 0.9
	StepsPerTick     = 100
	TickInterval     = time.Millisecond * 16
	TransitPace      = time.Millisecond * 10 // transit time per unit of distance
	EnterDelay       = time.Millisecond * 500
	WarmupNodes      = 10
	MaxNodes         = 40
	MaxPackets       = 2
	SpawnChance      = 0.01
	DeleteChance     = 0.01
	FieldWidth       = 1280.0
	FieldHeight      = 720.0

	// DeadlockReportTTL suppresses repeated reports for the same stranded packet.
	DeadlockReportTTL = time.Second * 5
	GcDelay           = time.Millisecond * 1000
	// SlowDispatchThreshold is the dispatch duration that triggers a warning.
	SlowDispatchThreshold = time.Millisecond * 4

	DebugAddr = "0.0.0.0:6060"
)

var (
	DBG_debug      = false
	DBG_log_router = false
	DBG_log_apsp   = false
)
