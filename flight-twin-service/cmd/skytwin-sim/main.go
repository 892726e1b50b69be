/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"skytwin/common/client"
	digital_twin "skytwin/flight-twin-service/pkg/digital-twin"
	"skytwin/flight-twin-service/pkg/dto/twin"
	"skytwin/flight-twin-service/pkg/simulator"
)

type point struct {
	X float64 `toml:"X"`
	Y float64 `toml:"Y"`
	Z float64 `toml:"Z"`
}

func (p point) position() twin.Position {
	return twin.Position{X: p.X, Y: p.Y, Z: p.Z}
}

type simulationConfig struct {
	LogLevel        string  `toml:"LogLevel"`
	Seed            uint64  `toml:"Seed"`
	TrainingSamples int     `toml:"TrainingSamples"`
	Contamination   float64 `toml:"Contamination"`
	SafetyMargin    float64 `toml:"SafetyMargin"`
	NumTrees        int     `toml:"NumTrees"`
	Duration        int     `toml:"Duration"`
	AnomalyStart    int     `toml:"AnomalyStart"`
	Start           point   `toml:"Start"`
	End             point   `toml:"End"`
}

func defaultSimulationConfig() simulationConfig {
	engine := digital_twin.DefaultEngineConfig()
	return simulationConfig{
		LogLevel:        "INFO",
		Seed:            42,
		TrainingSamples: 1000,
		Contamination:   engine.Contamination,
		SafetyMargin:    10,
		NumTrees:        engine.NumTrees,
		Duration:        20,
		AnomalyStart:    12,
		Start:           point{0, 0, 50},
		End:             point{100, 80, 50},
	}
}

type simulationResult struct {
	Summary     twin.MissionSummary
	Replanned   bool
	ReplannedAt int
}

var lc = logger.NewClient(client.SimulatorName, "INFO")

func main() {
	workingDir, err := os.Getwd()
	if err != nil {
		lc.Errorf("Failed to get current working directory: %v", err)
		os.Exit(1)
	}
	config, err := readToml(filepath.Join(workingDir, "res", "simulation.toml"))
	if err != nil {
		lc.Errorf("Error reading simulation config: %v", err)
		os.Exit(1)
	}
	lc = logger.NewClient(client.SimulatorName, strings.ToUpper(config.LogLevel))

	if _, err := runSimulation(config, lc); err != nil {
		lc.Errorf("simulation failed: %v", err)
		os.Exit(1)
	}
}

// readToml overlays the file on the defaults; a missing file keeps the defaults.
func readToml(path string) (simulationConfig, error) {
	config := defaultSimulationConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		lc.Infof("no simulation config at %s, using defaults", path)
		return config, nil
	}
	tree, err := toml.LoadFile(path)
	if err != nil {
		return config, errors.Wrapf(err, "loading %s", path)
	}
	if err := tree.Unmarshal(&config); err != nil {
		return config, errors.Wrapf(err, "decoding %s", path)
	}
	if config.Duration <= 0 || config.AnomalyStart < 0 || config.AnomalyStart >= config.Duration {
		return config, errors.Errorf("AnomalyStart must fall inside a positive Duration, got %d of %d", config.AnomalyStart, config.Duration)
	}
	return config, nil
}

// runSimulation trains a twin on simulated data and flies a degrading mission, replanning once
// on the first reading that asks for it.
func runSimulation(config simulationConfig, lc logger.LoggingClient) (simulationResult, error) {
	var result simulationResult
	sim := simulator.NewTelemetrySimulator(config.Seed)
	engine := digital_twin.NewEngine(digital_twin.EngineConfig{
		Contamination: config.Contamination,
		Seed:          config.Seed,
		SafetyMargin:  config.SafetyMargin,
		NumTrees:      config.NumTrees,
	}, lc)

	training := sim.TrainingSet(config.TrainingSamples, config.Contamination)
	if _, err := engine.Initialize(training); err != nil {
		return result, errors.Wrap(err, "initializing twin")
	}
	lc.Infof("trained on %d samples", len(training))

	start, end := config.Start.position(), config.End.position()
	descriptor, err := engine.StartMission(start, end)
	if err != nil {
		return result, errors.Wrap(err, "starting mission")
	}
	lc.Infof("mission %s started %s -> %s, %d waypoints, %.1f m",
		descriptor.MissionID, start, end, descriptor.PathMetrics.NumWaypoints, descriptor.PathMetrics.TotalDistance)

	for i, step := range sim.FlightSequence(config.Duration, config.AnomalyStart) {
		update, err := engine.UpdateTelemetry(step.Sensors, step.Position)
		if err != nil {
			return result, errors.Wrapf(err, "telemetry step %d", i+1)
		}
		risk := update.RiskAssessment
		lc.Infof("step %2d at %s: risk %-8s score %.3f", i+1, step.Position, risk.RiskLevel, risk.AnomalyScore)

		if update.PathUpdateRequired && !result.Replanned {
			replan, err := engine.ReplanTrajectory(step.Position, end)
			if err != nil {
				return result, errors.Wrapf(err, "replanning at step %d", i+1)
			}
			result.Replanned = true
			result.ReplannedAt = i + 1
			lc.Warnf("path replanned for %s risk: %d waypoints", replan.RiskLevel, replan.PathMetrics.NumWaypoints)
		}
		if risk.RiskLevel >= twin.RiskHigh {
			lc.Warnf("recommendation: %s", risk.Recommendation)
		}
	}

	result.Summary, err = engine.StopMission()
	if err != nil {
		return result, errors.Wrap(err, "stopping mission")
	}
	summary := result.Summary
	lc.Infof("mission summary: %d updates, %d replans, final position %v", summary.TotalUpdates, summary.ReplanCount, summary.FinalPosition)
	for _, level := range twin.RiskLevels {
		lc.Infof("  %-8s %d", level, summary.LevelCounts[level])
	}
	lc.Infof("average anomaly score %.3f, maximum %.3f", summary.AvgAnomalyScore, summary.MaxAnomalyScore)
	if summary.Health != nil {
		lc.Infof("average flight stress %.1f%%, overall component health %.2f%%", summary.Health.AverageStress, summary.Health.Components.Overall)
	}
	return result, nil
}
