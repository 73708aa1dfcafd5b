package maintenance

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kataclub/kataclub_server/internal/kata"
	"github.com/kataclub/kataclub_server/internal/mute"
)

type Config struct {
	MuteRetentionDays int `mapstructure:"mute_retention_days"`
}

// Scheduler runs the nightly maintenance pass: orphaned image cleanup for
// the kata catalog and purging of long-deactivated mute records.
type Scheduler struct {
	katas  *kata.Service
	mutes  *mute.MuteService
	config Config
	ticker *time.Ticker
	done   chan bool
}

func NewScheduler(katas *kata.Service, mutes *mute.MuteService, config Config) *Scheduler {
	if config.MuteRetentionDays <= 0 {
		config.MuteRetentionDays = 30
	}

	return &Scheduler{
		katas:  katas,
		mutes:  mutes,
		config: config,
		done:   make(chan bool),
	}
}

// Start schedules the first pass for the next 2 AM, then repeats daily.
func (s *Scheduler) Start() {
	now := time.Now()
	nextRun := time.Date(now.Year(), now.Month(), now.Day(), 2, 0, 0, 0, now.Location())
	if now.After(nextRun) {
		nextRun = nextRun.Add(24 * time.Hour)
	}

	log.Info().
		Str("nextRun", nextRun.Format("2006-01-02 15:04:05")).
		Msg("Maintenance scheduler started")

	time.AfterFunc(time.Until(nextRun), func() {
		s.run()

		s.ticker = time.NewTicker(24 * time.Hour)
		go s.loop()
	})
}

func (s *Scheduler) loop() {
	for {
		select {
		case <-s.ticker.C:
			s.run()
		case <-s.done:
			s.ticker.Stop()
			return
		}
	}
}

func (s *Scheduler) run() {
	log.Info().Msg("Starting maintenance pass")

	report, err := s.katas.CleanupOrphanedImages(context.Background())
	if err != nil {
		log.Error().
			Err(err).
			Msg("Orphaned image cleanup failed")
	} else {
		log.Info().
			Int("deletedImages", report.Count).
			Msg("Orphaned image cleanup completed")
	}

	purged, err := s.mutes.PurgeInactive(s.config.MuteRetentionDays)
	if err != nil {
		log.Error().
			Err(err).
			Msg("Mute record purge failed")
		return
	}

	log.Info().
		Int64("purgedMutes", purged).
		Int("retentionDays", s.config.MuteRetentionDays).
		Msg("Mute record purge completed")
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping maintenance scheduler")
	if s.ticker != nil {
		s.done <- true
	}
}

// RunNow executes the maintenance pass immediately.
func (s *Scheduler) RunNow() {
	s.run()
}
