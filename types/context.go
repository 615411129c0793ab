package types

import (
	"github.com/sirupsen/logrus"

	"github.com/lepinkainen/videoenhance/config"
)

// DefaultVersion is the fallback version when AppContext is nil
const DefaultVersion = "dev"

// AppContext holds application-wide context information passed to commands
type AppContext struct {
	Version string
	Config  *config.Config
	Logger  *logrus.Logger
}

// VersionOrDefault returns the version, also for a nil context
func (a *AppContext) VersionOrDefault() string {
	if a == nil || a.Version == "" {
		return DefaultVersion
	}
	return a.Version
}

// Log returns the application logger, falling back to the standard logger
func (a *AppContext) Log() *logrus.Logger {
	if a == nil || a.Logger == nil {
		return logrus.StandardLogger()
	}
	return a.Logger
}
