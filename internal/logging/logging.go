package logging

import (
	"go.uber.org/zap"
)

// New builds a console logger for development and a JSON production logger
// for every other environment.
func New(appEnv string) (*zap.Logger, error) {
	if appEnv == "development" || appEnv == "test" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
