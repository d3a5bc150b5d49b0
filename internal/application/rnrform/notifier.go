package rnrform

import "go.uber.org/zap"

// Notifier surfaces transient user-facing notifications. Save and
// finalise failures are reported here and never thrown uncaught.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// LogNotifier is a Notifier that writes notifications to the log.
// Interactive frontends replace it with their own toast channel.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Success logs a success notification
func (n *LogNotifier) Success(message string) {
	n.logger.Info("notification", zap.String("kind", "success"), zap.String("message", message))
}

// Error logs an error notification
func (n *LogNotifier) Error(message string) {
	n.logger.Warn("notification", zap.String("kind", "error"), zap.String("message", message))
}
