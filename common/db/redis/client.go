/*******************************************************************************
 * Copyright 2018 Redis Labs Inc.
 * (c) Copyright 2020-2025 BMC Software, Inc.
 *
 * Contributors: BMC Software, Inc. - BMC Helix Edge
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License. You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software distributed under the License
 * is distributed on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express
 * or implied. See the License for the specific language governing permissions and limitations under
 * the License.
 *******************************************************************************/
package redis

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/edgexfoundry/go-mod-bootstrap/v3/bootstrap/startup"
	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/redigo"
	"github.com/gomodule/redigo/redis"

	"skytwin/common/db"
	twinErrors "skytwin/common/errors"
)

const (
	lockExpiry     = 5 * time.Second
	lockRetries    = 5
	lockRetryDelay = time.Second
)

// DBClient represents a Redis client
type DBClient struct {
	Pool      *redis.Pool // A thread-safe pool of connections to Redis
	Logger    logger.LoggingClient
	RedisSync *redsync.Redsync
}

type CommonRedisDBInterface interface {
	IncrMetricCounterBy(key string, value int64) (int64, twinErrors.TwinError)
	GetMetricCounter(key string) (int64, twinErrors.TwinError)
	SetMetricCounter(key string, value int64) twinErrors.TwinError
	AcquireRedisLock(lockName string) (*redsync.Mutex, twinErrors.TwinError)
}

func (c *DBClient) IncrMetricCounterBy(key string, value int64) (int64, twinErrors.TwinError) {
	conn := c.Pool.Get()
	defer conn.Close()

	errorMessage := "Error incrementing metric counter"

	val, err := redis.Int64(conn.Do("INCRBY", key, value))
	if err != nil {
		c.Logger.Errorf("%s key %s value %v: %v", errorMessage, key, value, err)
		return 0, twinErrors.NewCommonTwinError(twinErrors.ErrorTypeDBError, errorMessage)
	}
	return val, nil
}

func (c *DBClient) SetMetricCounter(key string, value int64) twinErrors.TwinError {
	conn := c.Pool.Get()
	defer conn.Close()

	errorMessage := "Error setting metric counter"

	_, err := conn.Do("SET", key, value)
	if err != nil {
		c.Logger.Errorf("%s key %s value %v: %v", errorMessage, key, value, err)
		return twinErrors.NewCommonTwinError(twinErrors.ErrorTypeDBError, errorMessage)
	}
	return nil
}

func (c *DBClient) GetMetricCounter(key string) (int64, twinErrors.TwinError) {
	conn := c.Pool.Get()
	defer conn.Close()

	errorMessage := "error getting metric"

	val, err := redis.Int64(conn.Do("GET", key))
	if errors.Is(err, redis.ErrNil) {
		return 0, nil // return 0 if key does not exist
	}
	if err != nil {
		c.Logger.Errorf("%s from DB for key %s: %v", errorMessage, key, err)
		return 0, twinErrors.NewCommonTwinError(twinErrors.ErrorTypeDBError, errorMessage)
	}
	return val, nil
}

func (c *DBClient) AcquireRedisLock(lockName string) (*redsync.Mutex, twinErrors.TwinError) {
	mutex := c.RedisSync.NewMutex(lockName, redsync.WithExpiry(lockExpiry))

	for retries := 0; retries < lockRetries; retries++ {
		if err := mutex.Lock(); err != nil {
			if retries == lockRetries-1 {
				c.Logger.Errorf("Failed to acquire lock %s in Redis after multiple attempts: %v", lockName, err)
				break
			}
			time.Sleep(lockRetryDelay)
			continue
		}
		return mutex, nil
	}
	return nil, twinErrors.NewCommonTwinError(twinErrors.ErrorTypeServerError, "Failed to acquire lock in Redis after multiple attempts")
}

// CreateDBClient keeps dialing redis until the startup timer elapses, then exits the process.
func CreateDBClient(dbConfig *db.DatabaseConfig, lc logger.LoggingClient) *DBClient {
	var dbClient *DBClient
	var err error
	startupTimer := startup.NewStartUpTimer("redis-db")
	for startupTimer.HasNotElapsed() {
		dbClient, err = newDBClient(dbConfig, lc)
		if err == nil {
			break
		}
		dbClient = nil
		lc.Warnf("Couldn't create database client: %v", err.Error())
		startupTimer.SleepForInterval()
	}
	if dbClient == nil {
		lc.Error("Failed to create database client in allotted time")
		os.Exit(1)
	}
	return dbClient
}

// NewDBClientFromPool wraps an existing pool, used when the pool is built elsewhere.
func NewDBClientFromPool(pool *redis.Pool, lc logger.LoggingClient) *DBClient {
	return &DBClient{
		Pool:      pool,
		Logger:    lc,
		RedisSync: redsync.New(redigo.NewPool(pool)),
	}
}

func newDBClient(dbConfig *db.DatabaseConfig, lc logger.LoggingClient) (*DBClient, error) {
	connectionString := fmt.Sprintf("%s:%s", dbConfig.RedisHost, dbConfig.RedisPort)
	opts := []redis.DialOption{
		redis.DialConnectTimeout(9 * time.Second),
	}
	if os.Getenv("EDGEX_SECURITY_SECRET_STORE") != "false" && dbConfig.RedisPassword != "" {
		opts = append(opts, redis.DialPassword(dbConfig.RedisPassword))
	}

	dialFunc := func() (redis.Conn, error) {
		conn, err := redis.Dial("tcp", connectionString, opts...)
		if err != nil {
			return nil, fmt.Errorf("could not dial Redis: %s", err)
		}
		return conn, nil
	}
	pool := &redis.Pool{
		IdleTimeout: 0,
		MaxIdle:     10,
		Dial:        dialFunc,
	}
	client := NewDBClientFromPool(pool, lc)

	// Test connectivity now so don't have failures later when doing lazy connect.
	conn, err := client.Pool.Dial()
	if err != nil {
		return nil, err
	}
	_ = conn.Close()
	return client, nil
}

// Do runs a single redis command on a pooled connection.
func (c *DBClient) Do(command string, args ...interface{}) (interface{}, error) {
	conn := c.Pool.Get()
	defer conn.Close()

	return conn.Do(command, args...)
}

// CloseSession closes the connections to Redis
func (c *DBClient) CloseSession() {
	_ = c.Pool.Close()
}
