package proctor

import (
	"time"

	"github.com/stemsi/exstem-proctor/internal/config"
)

// Policy is the tunable exam configuration.
type Policy struct {
	ExamDuration  time.Duration
	GracePeriod   time.Duration
	Tick          time.Duration
	FocusDebounce time.Duration

	DevToolsThreshold int
	DevToolsSustain   int

	PassingPercentage float64
	PersistTimeout    time.Duration
}

// DefaultPolicy mirrors the defaults in config.Load.
func DefaultPolicy() Policy {
	return Policy{
		ExamDuration:      30 * time.Minute,
		GracePeriod:       5 * time.Second,
		Tick:              time.Second,
		FocusDebounce:     100 * time.Millisecond,
		DevToolsThreshold: 160,
		DevToolsSustain:   2,
		PassingPercentage: 40,
		PersistTimeout:    5 * time.Second,
	}
}

// PolicyFromConfig builds a Policy from the loaded configuration.
func PolicyFromConfig(cfg *config.Config) Policy {
	p := DefaultPolicy()
	p.ExamDuration = cfg.ExamDuration
	p.GracePeriod = cfg.GracePeriod
	p.FocusDebounce = cfg.FocusDebounce
	p.DevToolsThreshold = cfg.DevToolsThresholdPx
	p.DevToolsSustain = cfg.DevToolsSustain
	p.PassingPercentage = cfg.PassingPercentage
	p.PersistTimeout = cfg.PersistTimeout
	return p
}
