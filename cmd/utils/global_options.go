package utils

import (
	"github.com/sirupsen/logrus"
)

// GlobalOptionsType holds the global CLI options that apply to any command or subcommand.
type GlobalOptionsType struct {
	Version     string
	GitCommit   string
	LogLevel    logrus.Level
	Environment string
	DatabaseURL string
}
