package notifier

import "sigrun/internal/logger"

// LogSink writes alerts to the log. Used when no Telegram channel is
// configured so alert paths stay exercised.
type LogSink struct{}

func (LogSink) SendAlert(html string, severity Severity) error {
	switch severity {
	case SeverityCritical:
		logger.Errorf("alert(%s): %s", severity, html)
	case SeverityWarning:
		logger.Warnf("alert(%s): %s", severity, html)
	default:
		logger.Infof("alert(%s): %s", severity, html)
	}
	return nil
}
