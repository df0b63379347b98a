package flume

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NewLogHooks returns hooks that log run progress through logger.
// Each bundle carries a fresh run id so interleaved runs stay
// separable in the log stream. Per-element events log at debug level,
// failures at warn, run completion at info.
func NewLogHooks(logger logrus.FieldLogger) Hooks {
	if logger == nil {
		return Hooks{}
	}

	log := logger.WithField("run", uuid.NewString())
	return Hooks{
		OnPull: func() {
			log.Debug("element pulled")
		},
		OnStart: func(slot int) {
			log.WithField("slot", slot).Debug("element started")
		},
		OnFinish: func(slot int, err error) {
			entry := log.WithField("slot", slot)
			if err != nil {
				entry.WithError(err).Warn("element failed")
				return
			}
			entry.Debug("element finished")
		},
		OnDone: func(cause Cause) {
			log.WithField("cause", cause.String()).Info("run finished")
		},
	}
}
