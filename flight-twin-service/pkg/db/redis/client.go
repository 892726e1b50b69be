/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package redis

import (
	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"

	"skytwin/common/db"
	"skytwin/common/db/redis"
	twinErrors "skytwin/common/errors"
	"skytwin/flight-twin-service/pkg/dto/twin"
)

type MissionDBClient struct {
	client *redis.DBClient
}

var DBClientImpl MissionStore

// MissionStore persists mission history and summaries.
type MissionStore interface {
	redis.CommonRedisDBInterface
	GetDbClient(dbConfig *db.DatabaseConfig, lc logger.LoggingClient) MissionStore
	AppendHistory(vehicleID, missionID string, entry twin.HistoryEntry) twinErrors.TwinError
	GetHistory(missionID string) ([]twin.HistoryEntry, twinErrors.TwinError)
	SaveSummary(vehicleID string, summary twin.MissionSummary) twinErrors.TwinError
	GetSummary(missionID string) (twin.MissionSummary, twinErrors.TwinError)
	GetMissionIDs(vehicleID string) ([]string, twinErrors.TwinError)
}

func init() {
	DBClientImpl = &MissionDBClient{}
}

func (dbClient *MissionDBClient) GetDbClient(dbConfig *db.DatabaseConfig, lc logger.LoggingClient) MissionStore {
	return &MissionDBClient{client: redis.CreateDBClient(dbConfig, lc)}
}

// NewMissionDBClient wraps an already connected client.
func NewMissionDBClient(client *redis.DBClient) *MissionDBClient {
	return &MissionDBClient{client: client}
}

func (dbClient *MissionDBClient) IncrMetricCounterBy(key string, value int64) (int64, twinErrors.TwinError) {
	return dbClient.client.IncrMetricCounterBy(key, value)
}

func (dbClient *MissionDBClient) GetMetricCounter(key string) (int64, twinErrors.TwinError) {
	return dbClient.client.GetMetricCounter(key)
}

func (dbClient *MissionDBClient) SetMetricCounter(key string, value int64) twinErrors.TwinError {
	return dbClient.client.SetMetricCounter(key, value)
}
