package logsvc

import (
	"io"
	"os"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/sirupsen/logrus"

	"github.com/trezcool/kelasi/core"
)

// RollbarLogger reports to rollbar (when enabled) and writes structured lines through logrus.
type RollbarLogger struct {
	std    *logrus.Logger
	fields logrus.Fields
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger configures rollbar and returns a logger tagged with `component` (e.g. API, DB, JOBS).
func NewRollbarLogger(out io.Writer, component string, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(!conf.Debug && !conf.TestMode && conf.RollbarToken != "")

	if out == nil {
		out = os.Stdout
	}
	std := logrus.New()
	std.SetOutput(out)
	std.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(conf.LogLevel); err == nil {
		std.SetLevel(lvl)
	}
	std.ExitFunc = os.Exit

	return &RollbarLogger{std: std, fields: logrus.Fields{"component": component}}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, core.Actor
func (l RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, *logrus.Entry) {
	var actorSet bool
	entry := l.std.WithFields(l.fields)
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Actor:
			// set calling staff member
			if !actorSet { // only set one Actor
				rollbar.SetPerson(a.ID, a.Name, "")
				entry = entry.WithField("actor", a.ID)
				actorSet = true
			}
			continue
		case error:
			entry = entry.WithError(a)
		case map[string]interface{}:
			entry = entry.WithFields(a)
		}
		newArgs = append(newArgs, arg)
	}
	if !actorSet {
		rollbar.ClearPerson()
	}
	return newArgs, entry
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rArgs, entry := l.prepare(msg, args)
	rollbar.Debug(rArgs...)
	entry.Debug(msg)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rArgs, entry := l.prepare(msg, args)
	rollbar.Info(rArgs...)
	entry.Info(msg)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rArgs, entry := l.prepare(msg, args)
	rollbar.Warning(rArgs...)
	entry.Warn(msg)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rArgs, entry := l.prepare(msg, args)
	rollbar.Error(rArgs...)
	entry.Error(msg)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rArgs, entry := l.prepare(msg, args)
	rollbar.Critical(rArgs...)
	rollbar.Wait()
	entry.Fatal(msg)
}
