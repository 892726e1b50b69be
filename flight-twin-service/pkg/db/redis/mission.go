/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package redis

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redsync/redsync/v4"
	redigo "github.com/gomodule/redigo/redis"

	db2 "skytwin/common/db"
	twinErrors "skytwin/common/errors"
	"skytwin/flight-twin-service/pkg/dto/twin"
)

func historyKey(missionID string) string {
	return db2.MissionHistory + ":" + missionID
}

func summaryKey(missionID string) string {
	return db2.MissionSummary + ":" + missionID
}

func vehicleKey(vehicleID string) string {
	return db2.VehicleMission + ":" + vehicleID
}

func (dbClient *MissionDBClient) AcquireRedisLock(lockName string) (*redsync.Mutex, twinErrors.TwinError) {
	return dbClient.client.AcquireRedisLock(lockName)
}

// AppendHistory pushes one entry to the mission's history list and indexes the mission under its vehicle.
func (dbClient *MissionDBClient) AppendHistory(vehicleID, missionID string, entry twin.HistoryEntry) twinErrors.TwinError {
	conn := dbClient.client.Pool.Get()
	defer conn.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeServerError, "Error encoding history of mission %s", missionID)
	}

	_ = conn.Send("MULTI")
	_ = conn.Send("RPUSH", historyKey(missionID), data)
	_ = conn.Send("SADD", vehicleKey(vehicleID), missionID)
	_, err = conn.Do("EXEC")
	if err != nil {
		dbClient.client.Logger.Errorf("Error appending history of mission %s: %s", missionID, err.Error())
		return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeDBError, "Error appending history of mission %s", missionID)
	}
	return nil
}

func (dbClient *MissionDBClient) GetHistory(missionID string) ([]twin.HistoryEntry, twinErrors.TwinError) {
	conn := dbClient.client.Pool.Get()
	defer conn.Close()

	items, err := redigo.ByteSlices(conn.Do("LRANGE", historyKey(missionID), 0, -1))
	if err != nil {
		dbClient.client.Logger.Errorf("Error getting history of mission %s: %s", missionID, err.Error())
		return nil, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeDBError, "Error getting history of mission %s", missionID)
	}
	if len(items) == 0 {
		return nil, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeNotFound, "No history found for mission %s", missionID)
	}

	history := make([]twin.HistoryEntry, 0, len(items))
	for _, item := range items {
		var entry twin.HistoryEntry
		if err := json.Unmarshal(item, &entry); err != nil {
			dbClient.client.Logger.Warnf("Skipping unreadable history entry of mission %s: %s", missionID, err.Error())
			continue
		}
		history = append(history, entry)
	}
	return history, nil
}

// SaveSummary stores the final summary of a mission under a distributed lock so concurrent stops of the same
// mission do not interleave.
func (dbClient *MissionDBClient) SaveSummary(vehicleID string, summary twin.MissionSummary) twinErrors.TwinError {
	lockName := fmt.Sprintf("%s:lock:%s", db2.Mission, summary.MissionID)
	mutex, lockErr := dbClient.AcquireRedisLock(lockName)
	if lockErr != nil {
		return lockErr
	}
	defer func() {
		if ok, err := mutex.Unlock(); !ok || err != nil {
			dbClient.client.Logger.Warnf("Failed to release lock %s: %v", lockName, err)
		}
	}()

	data, err := json.Marshal(summary)
	if err != nil {
		return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeServerError, "Error encoding summary of mission %s", summary.MissionID)
	}

	conn := dbClient.client.Pool.Get()
	defer conn.Close()

	_ = conn.Send("MULTI")
	_ = conn.Send("SET", summaryKey(summary.MissionID), data)
	_ = conn.Send("SADD", vehicleKey(vehicleID), summary.MissionID)
	_, err = conn.Do("EXEC")
	if err != nil {
		dbClient.client.Logger.Errorf("Error saving summary of mission %s: %s", summary.MissionID, err.Error())
		return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeDBError, "Error saving summary of mission %s", summary.MissionID)
	}
	return nil
}

func (dbClient *MissionDBClient) GetSummary(missionID string) (twin.MissionSummary, twinErrors.TwinError) {
	conn := dbClient.client.Pool.Get()
	defer conn.Close()

	var summary twin.MissionSummary
	data, err := redigo.Bytes(conn.Do("GET", summaryKey(missionID)))
	if errors.Is(err, redigo.ErrNil) {
		return summary, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeNotFound, "Summary of mission %s not found", missionID)
	}
	if err != nil {
		dbClient.client.Logger.Errorf("Error getting summary of mission %s: %s", missionID, err.Error())
		return summary, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeDBError, "Error getting summary of mission %s", missionID)
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		return summary, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeServerError, "Error decoding summary of mission %s", missionID)
	}
	return summary, nil
}

func (dbClient *MissionDBClient) GetMissionIDs(vehicleID string) ([]string, twinErrors.TwinError) {
	conn := dbClient.client.Pool.Get()
	defer conn.Close()

	ids, err := redigo.Strings(conn.Do("SMEMBERS", vehicleKey(vehicleID)))
	if err != nil {
		dbClient.client.Logger.Errorf("Error getting missions of vehicle %s: %s", vehicleID, err.Error())
		return nil, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeDBError, "Error getting missions of vehicle %s", vehicleID)
	}
	return ids, nil
}
