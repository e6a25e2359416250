// Package logging configures the structured logger shared by the three
// CLI executables. Every session gets a child entry carrying its
// correlation id, client address, role and strategy so concurrent
// sessions' output stays attributable.
package logging

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iluksbr/reliudp/internal/config"
)

// New builds a root logger at the level selected by v.
func New(v config.Verbosity) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	switch v {
	case config.VerbosityVerbose:
		log.SetLevel(logrus.DebugLevel)
	case config.VerbosityQuiet:
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

// NewSessionID mints a correlation id for a new session.
func NewSessionID() string {
	return uuid.NewString()
}

// ForSession returns a child entry pre-populated with session fields.
func ForSession(log *logrus.Logger, sessionID, clientAddr string, role, strategy fmt.Stringer) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"client_addr": clientAddr,
		"role":        role.String(),
		"strategy":    strategy.String(),
	})
}
