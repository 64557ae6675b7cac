package logging

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewRunID returns an identifier attached to every record of one process run
func NewRunID() string {
	return uuid.NewString()
}

func NewServiceLogger(runID, service string) zerolog.Logger {
	return log.With().Str("run_id", runID).Str("service", service).Logger()
}

func WithSensor(base zerolog.Logger, sensor string) zerolog.Logger {
	return base.With().Str("sensor", sensor).Logger()
}

func WithWorker(base zerolog.Logger, worker int) zerolog.Logger {
	return base.With().Int("worker", worker).Logger()
}
