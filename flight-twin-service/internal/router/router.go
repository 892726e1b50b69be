/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package router

import (
	"encoding/json"
	"net/http"

	"github.com/edgexfoundry/app-functions-sdk-go/v3/pkg/interfaces"
	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	twinErrors "skytwin/common/errors"
	"skytwin/flight-twin-service/internal/functions"
	"skytwin/flight-twin-service/internal/stream"
	"skytwin/flight-twin-service/pkg/ingestion"
)

const (
	vehicleIdParam = "id"
	missionIdParam = "missionId"

	baseRoute    = "/api/v3/twin"
	vehicleRoute = baseRoute + "/vehicle/:" + vehicleIdParam

	defaultSessionsLimit = 20
)

type Router struct {
	service   interfaces.ApplicationService
	twin      *functions.TwinService
	hub       *stream.Hub
	csvParser *ingestion.CSVParser
	validate  *validator.Validate
	lc        logger.LoggingClient
}

func NewRouter(service interfaces.ApplicationService, twinService *functions.TwinService, hub *stream.Hub) *Router {
	lc := service.LoggingClient()
	return &Router{
		service:   service,
		twin:      twinService,
		hub:       hub,
		csvParser: ingestion.NewCSVParser(nil, lc),
		validate:  validator.New(),
		lc:        lc,
	}
}

type route struct {
	path    string
	method  string
	auth    interfaces.Authentication
	handler echo.HandlerFunc
}

func (r *Router) routes() []route {
	return []route{
		{vehicleRoute + "/initialize", http.MethodPost, interfaces.Authenticated, r.initialize},
		{vehicleRoute + "/initialize/simulated", http.MethodPost, interfaces.Authenticated, r.initializeSimulated},
		{vehicleRoute + "/initialize/log", http.MethodPost, interfaces.Authenticated, r.initializeFromLog},
		{vehicleRoute + "/mission/start", http.MethodPost, interfaces.Authenticated, r.startMission},
		{vehicleRoute + "/mission/stop", http.MethodPost, interfaces.Authenticated, r.stopMission},
		{vehicleRoute + "/telemetry", http.MethodPost, interfaces.Authenticated, r.updateTelemetry},
		{vehicleRoute + "/replan", http.MethodPost, interfaces.Authenticated, r.replan},
		{vehicleRoute + "/status", http.MethodGet, interfaces.Authenticated, r.status},
		{vehicleRoute + "/trajectory", http.MethodGet, interfaces.Authenticated, r.trajectory},
		{vehicleRoute + "/history", http.MethodGet, interfaces.Authenticated, r.history},
		{vehicleRoute + "/missions", http.MethodGet, interfaces.Authenticated, r.missions},
		{vehicleRoute + "/sessions", http.MethodGet, interfaces.Authenticated, r.sessions},
		{baseRoute + "/mission/:" + missionIdParam + "/summary", http.MethodGet, interfaces.Authenticated, r.summary},
		{baseRoute + "/vehicles", http.MethodGet, interfaces.Authenticated, r.vehicles},
		// browsers cannot set headers on a websocket handshake
		{vehicleRoute + "/stream", http.MethodGet, interfaces.Unauthenticated, r.streamVehicle},
		{baseRoute + "/stream", http.MethodGet, interfaces.Unauthenticated, r.streamAll},
	}
}

func (r *Router) LoadRestRoutes() error {
	for _, rt := range r.routes() {
		if err := r.service.AddCustomRoute(rt.path, rt.auth, rt.handler, rt.method); err != nil {
			r.lc.Errorf("failed to add route %s %s: %v", rt.method, rt.path, err)
			return err
		}
	}
	return nil
}

// decode reads the JSON body into req and validates it
func (r *Router) decode(c echo.Context, req interface{}) *echo.HTTPError {
	if err := json.NewDecoder(c.Request().Body).Decode(req); err != nil {
		r.lc.Errorf("failed to decode request body of %s: %v", c.Path(), err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := r.validate.Struct(req); err != nil {
		r.lc.Errorf("invalid request to %s: %v", c.Path(), err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func (r *Router) fail(c echo.Context, err error) error {
	r.lc.Errorf("%s %s failed: %v", c.Request().Method, c.Path(), err)
	return twinErrors.ToHTTPError(err)
}

// @Summary		Train The Twin Of A Vehicle
// @Tags	skytwin - Vehicles
// @Accept		json
// @Produce		json
// @Param   	id     path     string     true  "vehicle id"
// @Param 		q 	body 	  InitializeRequest true "training samples, 6 sensor values each"
// @Success			200			{object}	InitializeResponse
// @Failure			400			{object}	error	"{"message":"Error message"}"
// @Failure			409			{object}	error	"{"message":"Error message"}"
// @Failure			500			{object}	error	"{"message":"Error message"}"
// @Router		/api/v3/twin/vehicle/{id}/initialize [post]
func (r *Router) initialize(c echo.Context) error {
	vehicleID := c.Param(vehicleIdParam)
	var req InitializeRequest
	if err := r.decode(c, &req); err != nil {
		return err
	}
	if err := r.twin.Initialize(vehicleID, req.Samples); err != nil {
		return r.fail(c, err)
	}
	return c.JSON(http.StatusOK, InitializeResponse{VehicleID: vehicleID, Samples: len(req.Samples)})
}

// @Summary		Train The Twin Of A Vehicle On Simulated Telemetry
// @Tags	skytwin - Vehicles
// @Accept		json
// @Produce		json
// @Param   	id     path     string     true  "vehicle id"
// @Param 		q 	body 	  SimulatedInitializeRequest true "dataset size, outlier share and seed"
// @Success			200			{object}	InitializeResponse
// @Failure			400			{object}	error	"{"message":"Error message"}"
// @Failure			409			{object}	error	"{"message":"Error message"}"
// @Failure			500			{object}	error	"{"message":"Error message"}"
// @Router		/api/v3/twin/vehicle/{id}/initialize/simulated [post]
func (r *Router) initializeSimulated(c echo.Context) error {
	vehicleID := c.Param(vehicleIdParam)
	var req SimulatedInitializeRequest
	if err := r.decode(c, &req); err != nil {
		return err
	}
	n, err := r.twin.InitializeSimulated(vehicleID, req.NumSamples, req.Contamination, req.Seed)
	if err != nil {
		return r.fail(c, err)
	}
	return c.JSON(http.StatusOK, InitializeResponse{VehicleID: vehicleID, Samples: n})
}

// initializeFromLog trains the vehicle on the sensor rows of a CSV flight log sent as the body.
func (r *Router) initializeFromLog(c echo.Context) error {
	vehicleID := c.Param(vehicleIdParam)
	parsed, err := r.csvParser.Parse(c.Request().Body)
	if err != nil {
		return r.fail(c, err)
	}
	if len(parsed.Records) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "flight log has no usable rows")
	}
	if err := r.twin.Initialize(vehicleID, parsed.Samples()); err != nil {
		return r.fail(c, err)
	}
	return c.JSON(http.StatusOK, InitializeResponse{VehicleID: vehicleID, Samples: len(parsed.Records), Skipped: parsed.Skipped})
}

// @Summary		Start A Mission
// @Tags	skytwin - Vehicles
// @Accept		json
// @Produce		json
// @Param   	id     path     string     true  "vehicle id"
// @Param 		q 	body 	  StartMissionRequest true "start and end positions"
// @Success			200			{object}	twin.MissionDescriptor
// @Failure			400			{object}	error	"{"message":"Error message"}"
// @Failure			404			{object}	error	"{"message":"Error message"}"
// @Failure			409			{object}	error	"{"message":"Error message"}"
// @Failure			500			{object}	error	"{"message":"Error message"}"
// @Router		/api/v3/twin/vehicle/{id}/mission/start [post]
func (r *Router) startMission(c echo.Context) error {
	var req StartMissionRequest
	if err := r.decode(c, &req); err != nil {
		return err
	}
	descriptor, err := r.twin.StartMission(c.Param(vehicleIdParam), *req.Start, *req.End)
	if err != nil {
		return r.fail(c, err)
	}
	return c.JSON(http.StatusOK, descriptor)
}

// @Summary		Stop The Active Mission
// @Tags	skytwin - Vehicles
// @Produce		json
// @Param   	id     path     string     true  "vehicle id"
// @Success			200			{object}	twin.MissionSummary
// @Failure			404			{object}	error	"{"message":"Error message"}"
// @Failure			409			{object}	error	"{"message":"Error message"}"
// @Failure			500			{object}	error	"{"message":"Error message"}"
// @Router		/api/v3/twin/vehicle/{id}/mission/stop [post]
func (r *Router) stopMission(c echo.Context) error {
	summary, err := r.twin.StopMission(c.Request().Context(), c.Param(vehicleIdParam))
	if err != nil {
		return r.fail(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// @Summary		Score One Telemetry Reading
// @Tags	skytwin - Vehicles
// @Accept		json
// @Produce		json
// @Param   	id     path     string     true  "vehicle id"
// @Param 		q 	body 	  TelemetryRequest true "sensor reading and position"
// @Success			200			{object}	twin.TwinUpdate
// @Failure			400			{object}	error	"{"message":"Error message"}"
// @Failure			404			{object}	error	"{"message":"Error message"}"
// @Failure			409			{object}	error	"{"message":"Error message"}"
// @Failure			500			{object}	error	"{"message":"Error message"}"
// @Router		/api/v3/twin/vehicle/{id}/telemetry [post]
func (r *Router) updateTelemetry(c echo.Context) error {
	var req TelemetryRequest
	if err := r.decode(c, &req); err != nil {
		return err
	}
	update, err := r.twin.ProcessTelemetry(c.Request().Context(), c.Param(vehicleIdParam), req.Sensors.Slice(), *req.Position)
	if err != nil {
		return r.fail(c, err)
	}
	return c.JSON(http.StatusOK, update)
}

// @Summary		Replan The Trajectory
// @Tags	skytwin - Vehicles
// @Accept		json
// @Produce		json
// @Param   	id     path     string     true  "vehicle id"
// @Param 		q 	body 	  ReplanRequest true "current position and optional destination"
// @Success			200			{object}	twin.ReplanResult
// @Failure			400			{object}	error	"{"message":"Error message"}"
// @Failure			404			{object}	error	"{"message":"Error message"}"
// @Failure			409			{object}	error	"{"message":"Error message"}"
// @Failure			500			{object}	error	"{"message":"Error message"}"
// @Router		/api/v3/twin/vehicle/{id}/replan [post]
func (r *Router) replan(c echo.Context) error {
	var req ReplanRequest
	if err := r.decode(c, &req); err != nil {
		return err
	}
	result, err := r.twin.Replan(c.Request().Context(), c.Param(vehicleIdParam), *req.Position, req.Destination)
	if err != nil {
		return r.fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// @Summary		Retrieve The Twin Status
// @Tags	skytwin - Vehicles
// @Produce		json
// @Param   	id     path     string     true  "vehicle id"
// @Success			200			{object}	twin.SystemStatus
// @Failure			404			{object}	error	"{"message":"Error message"}"
// @Router		/api/v3/twin/vehicle/{id}/status [get]
func (r *Router) status(c echo.Context) error {
	status, err := r.twin.Status(c.Param(vehicleIdParam))
	if err != nil {
		return r.fail(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

func (r *Router) trajectory(c echo.Context) error {
	trajectory, err := r.twin.Trajectory(c.Param(vehicleIdParam))
	if err != nil {
		return r.fail(c, err)
	}
	return c.JSON(http.StatusOK, trajectory)
}

// @Summary		Retrieve The History Of A Mission
// @Tags	skytwin - Vehicles
// @Produce		json
// @Param   	id     path     string     true  "vehicle id"
// @Param   	missionId     query     string     false  "mission id, the current mission when empty"
// @Success			200			{array}	twin.HistoryEntry
// @Failure			404			{object}	error	"{"message":"Error message"}"
// @Failure			500			{object}	error	"{"message":"Error message"}"
// @Router		/api/v3/twin/vehicle/{id}/history [get]
func (r *Router) history(c echo.Context) error {
	history, err := r.twin.History(c.Param(vehicleIdParam), c.QueryParam(missionIdParam))
	if err != nil {
		return r.fail(c, err)
	}
	return c.JSON(http.StatusOK, history)
}

func (r *Router) missions(c echo.Context) error {
	missions, err := r.twin.Missions(c.Param(vehicleIdParam))
	if err != nil {
		return r.fail(c, err)
	}
	return c.JSON(http.StatusOK, missions)
}

func (r *Router) sessions(c echo.Context) error {
	limit := defaultSessionsLimit
	if value := c.QueryParam("limit"); value != "" {
		var err error
		limit, err = cast.ToIntE(value)
		if err != nil || limit <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
	}
	sessions, err := r.twin.Sessions(c.Request().Context(), c.Param(vehicleIdParam), limit)
	if err != nil {
		return r.fail(c, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

func (r *Router) summary(c echo.Context) error {
	summary, err := r.twin.Summary(c.Param(missionIdParam))
	if err != nil {
		return r.fail(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (r *Router) vehicles(c echo.Context) error {
	return c.JSON(http.StatusOK, r.twin.Vehicles())
}

// upgrade failures are answered by the upgrader itself
func (r *Router) streamVehicle(c echo.Context) error {
	_ = r.hub.ServeWS(c.Response(), c.Request(), c.Param(vehicleIdParam))
	return nil
}

func (r *Router) streamAll(c echo.Context) error {
	_ = r.hub.ServeWS(c.Response(), c.Request(), "")
	return nil
}
