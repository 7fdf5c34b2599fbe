package notify

import "go.uber.org/zap"

// Log writes notifications to a zap logger: successes at info level,
// errors at warn level.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a Log notifier. A nil logger discards everything.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger.Named("notify")}
}

// Notify logs n.
func (l *Log) Notify(n Notification) {
	if n.Level == LevelError {
		l.logger.Warn(n.Message, zap.String("level", string(n.Level)), zap.Time("at", n.At))
		return
	}
	l.logger.Info(n.Message, zap.String("level", string(n.Level)), zap.Time("at", n.At))
}
