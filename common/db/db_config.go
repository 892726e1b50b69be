/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package db

import (
	"fmt"

	"github.com/edgexfoundry/app-functions-sdk-go/v3/pkg/interfaces"
)

const (
	redisSecretName    = "redisdb"
	postgresSecretName = "postgresdb"
)

// DatabaseConfig holds connection settings of redis (mission history) and postgres (flight sessions).
// Postgres is optional: an empty PostgresHost disables session records.
type DatabaseConfig struct {
	RedisHost        string
	RedisPort        string
	RedisName        string
	RedisUsername    string
	RedisPassword    string
	PostgresHost     string
	PostgresPort     string
	PostgresDatabase string
	PostgresUsername string
	PostgresPassword string
	PostgresSSLMode  string
}

func NewDatabaseConfig() *DatabaseConfig {
	appConfig := new(DatabaseConfig)
	return appConfig
}

// LoadAppConfigurations reads database settings and secrets from the app service.
func (dbConfig *DatabaseConfig) LoadAppConfigurations(service interfaces.ApplicationService) {
	lc := service.LoggingClient()

	setting := func(name, fallback string) string {
		value, err := service.GetAppSetting(name)
		if err != nil || value == "" {
			lc.Debugf("%s not configured, using %q", name, fallback)
			return fallback
		}
		return value
	}

	dbConfig.RedisHost = setting("RedisHost", "localhost")
	dbConfig.RedisPort = setting("RedisPort", "6379")
	dbConfig.RedisName = setting("RedisName", "redis")
	lc.Infof("RedisHost %s RedisPort %s", dbConfig.RedisHost, dbConfig.RedisPort)

	redisSecrets, err := service.SecretProvider().GetSecret(redisSecretName, "username", "password")
	if err == nil {
		dbConfig.RedisUsername = redisSecrets["username"]
		dbConfig.RedisPassword = redisSecrets["password"]
	} else {
		lc.Warnf("redis secret not available: %s", err.Error())
	}

	dbConfig.PostgresHost = setting("PostgresHost", "")
	if dbConfig.PostgresHost == "" {
		lc.Info("PostgresHost not configured, flight session records are disabled")
		return
	}
	dbConfig.PostgresPort = setting("PostgresPort", "5432")
	dbConfig.PostgresDatabase = setting("PostgresDatabase", "skytwin")
	dbConfig.PostgresSSLMode = setting("PostgresSSLMode", "disable")
	pgSecrets, err := service.SecretProvider().GetSecret(postgresSecretName, "username", "password")
	if err == nil {
		dbConfig.PostgresUsername = pgSecrets["username"]
		dbConfig.PostgresPassword = pgSecrets["password"]
	} else {
		lc.Warnf("postgres secret not available: %s", err.Error())
	}
}

func (dbConfig *DatabaseConfig) PostgresEnabled() bool {
	return dbConfig.PostgresHost != ""
}

// PostgresDSN is the keyword/value connection string understood by the postgres driver.
func (dbConfig *DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.PostgresHost, dbConfig.PostgresPort, dbConfig.PostgresUsername,
		dbConfig.PostgresPassword, dbConfig.PostgresDatabase, dbConfig.PostgresSSLMode)
}
