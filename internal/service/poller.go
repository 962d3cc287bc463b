package service

import (
	"context"
	"time"

	"github.com/willbeeching/boilerjuice/internal/logger"
)

// PollerService drives the background fetch cycle: every tick it pulls a
// fresh reading off the website and feeds it through the tank service. The
// tank readings only move a few times a day, so ticks are long (hours) and a
// failed cycle just waits for the next one.
type PollerService struct {
	tank Tank
	log  *logger.Logger
}

func NewPollerService(tank Tank, log *logger.Logger) *PollerService {
	return &PollerService{tank: tank, log: log}
}

// Run polls once immediately and then at the given interval until ctx is
// canceled.
func (s *PollerService) Run(ctx context.Context, tick time.Duration) {
	s.poll(ctx)

	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.poll(ctx)
		}
	}
}

func (s *PollerService) poll(ctx context.Context) {
	now := time.Now()
	m, err := s.tank.Refresh(ctx, now)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Errorw("poll cycle failed", "error", err)
		return
	}
	s.log.Infow("poll cycle complete",
		"tank_id", m.TankID,
		"level_percent", m.LevelPercent,
		"volume_litres", m.VolumeLitres,
		"daily_rate_litres", m.DailyRateLitres,
	)
}
