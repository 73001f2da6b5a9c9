package utils

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/ledgerline/transfer-engine-backend/internal/monitor"
)

func SetConfigOptionLogLevel(co *config.ConfigOption) error {
	// parse string to logLevel object
	logLevelStr := viper.GetString(co.Name)
	logLevel, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		return fmt.Errorf("couldn't parse log level: %w", err)
	}

	// update the configKey
	key, ok := co.ConfigKey.(*logrus.Level)
	if !ok {
		return fmt.Errorf("configKey has an invalid type %T", co.ConfigKey)
	}
	*key = logLevel

	if config.IsExplicitlySet(co) {
		log.Debugf("Setting log level to: %q", logLevel)
		log.DefaultLogger.SetLevel(*key)
	} else {
		log.Debugf("Using default log level: %q", logLevel)
	}
	return nil
}

func SetConfigOptionMetricType(co *config.ConfigOption) error {
	metricType := viper.GetString(co.Name)

	metricTypeParsed, err := monitor.ParseMetricType(metricType)
	if err != nil {
		return fmt.Errorf("couldn't parse metric type: %w", err)
	}

	*(co.ConfigKey.(*monitor.MetricType)) = metricTypeParsed
	return nil
}

// SetConfigOptionStringList splits a comma-separated flag value into a string slice.
func SetConfigOptionStringList(co *config.ConfigOption) error {
	listStr := viper.GetString(co.Name)

	key, ok := co.ConfigKey.(*[]string)
	if !ok {
		return fmt.Errorf("configKey has an invalid type %T", co.ConfigKey)
	}

	if listStr == "" {
		*key = nil
		return nil
	}

	items := strings.Split(listStr, ",")
	for i, item := range items {
		items[i] = strings.TrimSpace(item)
	}
	*key = items
	return nil
}
