package selector

import (
	"fmt"

	"go.uber.org/zap"
)

// Severity grades a user-facing message.
type Severity int

// Severities understood by notifiers.
const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Notifier receives advisory messages. It never influences tree state.
type Notifier interface {
	Notify(message string, severity Severity)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string, severity Severity)

// Notify calls f.
func (f NotifierFunc) Notify(message string, severity Severity) { f(message, severity) }

type logNotifier struct {
	logger *zap.Logger
}

func (n logNotifier) Notify(message string, severity Severity) {
	switch severity {
	case SeverityError:
		n.logger.Error(message)
	case SeverityWarning:
		n.logger.Warn(message)
	default:
		n.logger.Info(message)
	}
}

// OpenExternal opens address with the configured opener. Failures are reported
// to the notifier with SeverityError and the result is false.
func (s *Selector[T]) OpenExternal(label, address string) bool {
	if err := s.opener.Open(address); err != nil {
		s.logger.Debug("open external failed", zap.String("address", address), zap.Error(err))
		s.notifier.Notify(fmt.Sprintf("Could not open %s:\n%v", label, err), SeverityError)
		return false
	}
	return true
}
