// Package logging configures the process-wide logrus logger.
package logging

import (
	"log/syslog"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	lsyslog "github.com/sirupsen/logrus/hooks/syslog"
)

// Setup applies the logging configuration. Debug wins over quiet. When
// useSyslog is set, a syslog hook with the daemon facility is attached;
// startup diagnostics still reach stderr.
func Setup(debug, quiet, useSyslog bool) error {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	switch {
	case debug:
		logrus.SetLevel(logrus.DebugLevel)
	case quiet:
		logrus.SetLevel(logrus.WarnLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	if useSyslog {
		hook, err := lsyslog.NewSyslogHook("", "", syslog.LOG_INFO|syslog.LOG_DAEMON, "syncaboutit")
		if err != nil {
			return errors.Wrap(err, "connect syslog")
		}
		logrus.AddHook(hook)
	}
	return nil
}
