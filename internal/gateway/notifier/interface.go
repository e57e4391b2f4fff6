package notifier

// Severity classifies an alert for the receiving channel.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertSink delivers HTML-formatted alerts. Delivery is fire-and-forget:
// callers log the returned error and never propagate it.
type AlertSink interface {
	SendAlert(html string, severity Severity) error
}
