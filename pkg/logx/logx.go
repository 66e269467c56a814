// Package logx builds the logs.Log that our tools write to.
package logx

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/logging"
	"github.com/cyclopcam/logs"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
	levelCritical
)

// GCPLogger sends log messages to Google Cloud Logging
type GCPLogger struct {
	client *logging.Client
	logger *logging.Logger
	labels map[string]string
	shared bool // Created by ForComponent, so Close must not close the client
}

// NewLog logs to Google Cloud Logging if GCP_PROJECT_ID and GCP_LOGNAME are set, otherwise to stdout.
func NewLog() (logs.Log, error) {
	gcpProjectID := os.Getenv("GCP_PROJECT_ID")
	gcpLogname := os.Getenv("GCP_LOGNAME")
	if gcpProjectID != "" && gcpLogname != "" {
		fmt.Printf("Logging to GCP %v / %v (you won't see further logs on stdout)\n", gcpProjectID, gcpLogname)
		l, err := NewGCPLogger(context.Background(), gcpProjectID, gcpLogname)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	return logs.NewLog()
}

func NewGCPLogger(ctx context.Context, projectID, logName string) (*GCPLogger, error) {
	client, err := logging.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("Failed to create GCP logging client: %w", err)
	}
	return &GCPLogger{
		client: client,
		logger: client.Logger(logName),
	}, nil
}

func levelToGCP(l level) logging.Severity {
	switch l {
	case levelDebug:
		return logging.Debug
	case levelInfo:
		return logging.Info
	case levelWarn:
		return logging.Warning
	case levelError:
		return logging.Error
	case levelCritical:
		return logging.Critical
	}
	panic("Unknown log level")
}

func (l *GCPLogger) write(lev level, format string, a ...interface{}) {
	l.logger.Log(logging.Entry{
		Severity: levelToGCP(lev),
		Payload:  fmt.Sprintf(format, a...),
		Labels:   l.labels,
	})
}

func (l *GCPLogger) Close() {
	l.logger.Flush()
	if !l.shared {
		l.client.Close()
	}
}

func (l *GCPLogger) Debugf(format string, a ...interface{}) {
	l.write(levelDebug, format, a...)
}

func (l *GCPLogger) Infof(format string, a ...interface{}) {
	l.write(levelInfo, format, a...)
}

func (l *GCPLogger) Warnf(format string, a ...interface{}) {
	l.write(levelWarn, format, a...)
}

func (l *GCPLogger) Errorf(format string, a ...interface{}) {
	l.write(levelError, format, a...)
}

func (l *GCPLogger) Criticalf(format string, a ...interface{}) {
	l.write(levelCritical, format, a...)
}

// ForComponent returns a log whose messages are tagged with the component that wrote them, eg "Plates".
// On Google Cloud Logging the component is an entry label, so that one detector's messages can be
// filtered out of a busy log. Any other log gets a "Plates: " prefix on every message.
// Closing the returned log does not close log.
func ForComponent(log logs.Log, component string) logs.Log {
	if g, ok := log.(*GCPLogger); ok {
		labels := map[string]string{}
		for k, v := range g.labels {
			labels[k] = v
		}
		if parent, ok := labels["component"]; ok {
			component = parent + "/" + component
		}
		labels["component"] = component
		return &GCPLogger{
			client: g.client,
			logger: g.logger,
			labels: labels,
			shared: true,
		}
	}
	return &componentLog{
		log:    log,
		prefix: component + ": ",
	}
}

type componentLog struct {
	log    logs.Log
	prefix string
}

// Close does nothing, because the underlying log is shared with other components
func (l *componentLog) Close() {
}

func (l *componentLog) Debugf(format string, a ...interface{}) {
	l.log.Debugf(l.prefix+format, a...)
}

func (l *componentLog) Infof(format string, a ...interface{}) {
	l.log.Infof(l.prefix+format, a...)
}

func (l *componentLog) Warnf(format string, a ...interface{}) {
	l.log.Warnf(l.prefix+format, a...)
}

func (l *componentLog) Errorf(format string, a ...interface{}) {
	l.log.Errorf(l.prefix+format, a...)
}

func (l *componentLog) Criticalf(format string, a ...interface{}) {
	l.log.Criticalf(l.prefix+format, a...)
}
