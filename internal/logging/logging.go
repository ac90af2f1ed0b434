// Package logging configures structured logging shared by every service in
// the fleet, replacing the teacher's bare log.Printf with field-carrying
// entries (component, requestId, traceId) in the style the pack's
// brokle-ai-brokle stream consumer logs every stream operation.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger tagged with the owning component/service name.
func New(component string) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		l.SetLevel(lvl)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l.WithField("component", component)
}

// WithTrace returns a derived entry carrying requestId/traceId fields, the
// correlation identifiers spec §3 requires on every flow.
func WithTrace(log *logrus.Entry, requestID, traceID string) *logrus.Entry {
	fields := logrus.Fields{}
	if requestID != "" {
		fields["requestId"] = requestID
	}
	if traceID != "" {
		fields["traceId"] = traceID
	}
	if len(fields) == 0 {
		return log
	}
	return log.WithFields(fields)
}
