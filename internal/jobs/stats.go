package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fcf-tessere/unlock-server-go/internal/config"
	"github.com/fcf-tessere/unlock-server-go/internal/metrics"
	"github.com/fcf-tessere/unlock-server-go/internal/model"
)

type codeStatsReader interface {
	Stats(ctx context.Context) (model.CodeStats, error)
}

type poolStatsReader interface {
	Stats() sql.DBStats
}

// StatsJob periodically publishes unlock code and connection pool gauges.
type StatsJob struct {
	codes    codeStatsReader
	pool     poolStatsReader
	interval time.Duration
	done     chan struct{}
}

func NewStatsJob(codes codeStatsReader, pool poolStatsReader, interval time.Duration) *StatsJob {
	return &StatsJob{
		codes:    codes,
		pool:     pool,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *StatsJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("stats job started")
}

func (j *StatsJob) Stop() {
	close(j.done)
	log.Info().Msg("stats job stopped")
}

func (j *StatsJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.collect()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.collect()
		}
	}
}

func (j *StatsJob) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), config.StatsTimeout)
	defer cancel()

	if j.pool != nil {
		s := j.pool.Stats()
		metrics.SetDBPoolStats(s.OpenConnections, s.Idle, s.InUse)
	}

	stats, err := j.codes.Stats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to collect unlock code stats")
		return
	}
	metrics.SetCodesByState(stats.Active, stats.Exhausted, stats.Deactivated)
	log.Debug().
		Int64("active", stats.Active).
		Int64("exhausted", stats.Exhausted).
		Int64("deactivated", stats.Deactivated).
		Msg("unlock code stats collected")
}
