package progress

import "go.uber.org/zap"

// LogSubscriber mirrors every status event into the structured log. It never
// fails delivery, so the broadcaster keeps it for the life of the process.
type LogSubscriber struct {
	logger *zap.Logger
}

// NewLogSubscriber builds a subscriber writing through logger.
func NewLogSubscriber(logger *zap.Logger) *LogSubscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSubscriber{logger: logger.Named("events")}
}

// Notify logs the event at debug level.
func (s *LogSubscriber) Notify(event Event) error {
	s.logger.Debug("status event",
		zap.String("type", event.Type),
		zap.Time("ts", event.Timestamp),
		zap.Any("data", event.Data),
	)
	return nil
}
