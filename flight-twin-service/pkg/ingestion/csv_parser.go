/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package ingestion

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	twinErrors "skytwin/common/errors"
	"skytwin/flight-twin-service/pkg/dto/twin"
)

const (
	FieldBatteryLevel = "BatteryLevel"
	FieldTemperature  = "Temperature"
	FieldVibration    = "Vibration"
	FieldAltitude     = "Altitude"
	FieldSpeed        = "Speed"
	FieldMotorCurrent = "MotorCurrent"
	FieldPositionX    = "PositionX"
	FieldPositionY    = "PositionY"
	FieldPositionZ    = "PositionZ"
	FieldTimestamp    = "Timestamp"
)

// columnAliases lists accepted header names per field, first match wins.
var columnAliases = map[string][]string{
	FieldBatteryLevel: {"battery_level", "battery_remaining", "remaining", "battery_pct", "battery"},
	FieldTemperature:  {"temperature", "battery_temperature", "battery_temp", "bat_temp", "temp", "air_temperature"},
	FieldVibration:    {"vibration", "vib"},
	FieldAltitude:     {"altitude", "alt", "height"},
	FieldSpeed:        {"speed", "ground_speed", "velocity"},
	FieldMotorCurrent: {"motor_current", "battery_current", "current", "ibat", "curr"},
	FieldPositionX:    {"x", "pos_x", "position_x"},
	FieldPositionY:    {"y", "pos_y", "position_y"},
	FieldPositionZ:    {"z", "pos_z", "position_z"},
	FieldTimestamp:    {"timestamp", "time", "datetime", "date", "time_utc"},
}

var vibrationAxes = []string{"vibration_x", "vibration_y", "vibration_z"}

type FlightRecord struct {
	Timestamp time.Time         `json:"timestamp"`
	Sensors   twin.SensorVector `json:"sensors"`
	Position  twin.Position     `json:"position"`
}

type ParsedLog struct {
	Columns []string       `json:"columns"`
	Records []FlightRecord `json:"records"`
	Skipped int            `json:"skipped"`
}

// Samples returns the sensor rows in order, ready for model training.
func (p ParsedLog) Samples() [][]float64 {
	out := make([][]float64, len(p.Records))
	for i, r := range p.Records {
		out[i] = r.Sensors.Slice()
	}
	return out
}

// CSVParser reads flight logs whose headers follow common autopilot export names.
type CSVParser struct {
	// ColumnMapping maps a custom header name onto one of the Field constants.
	ColumnMapping map[string]string
	LoggingClient logger.LoggingClient
	now           func() time.Time
}

func NewCSVParser(columnMapping map[string]string, lc logger.LoggingClient) *CSVParser {
	return &CSVParser{ColumnMapping: columnMapping, LoggingClient: lc, now: time.Now}
}

func (p *CSVParser) ParseFile(path string) (ParsedLog, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ParsedLog{}, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeNotFound, "flight log %s not found", path)
		}
		return ParsedLog{}, errors.Wrapf(err, "opening flight log %s", path)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse reads every row. Rows missing a sensor value are skipped and counted.
func (p *CSVParser) Parse(r io.Reader) (ParsedLog, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return ParsedLog{}, twinErrors.NewCommonTwinError(twinErrors.ErrorTypeInvalidInput, "flight log is empty")
	}
	if err != nil {
		return ParsedLog{}, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeInvalidInput, "reading flight log header: %s", err.Error())
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	columns := p.resolveColumns(index)
	if p.LoggingClient != nil {
		p.LoggingClient.Debugf("flight log columns %v resolved to %v", header, columns)
	}

	parsed := ParsedLog{Columns: header}
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return parsed, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypeInvalidInput, "flight log line %d: %s", line, err.Error())
		}
		record, ok := p.parseRow(row, columns, index)
		if !ok {
			parsed.Skipped++
			continue
		}
		parsed.Records = append(parsed.Records, record)
	}
	if p.LoggingClient != nil {
		p.LoggingClient.Infof("parsed %d flight records, skipped %d", len(parsed.Records), parsed.Skipped)
	}
	return parsed, nil
}

func (p *CSVParser) resolveColumns(index map[string]int) map[string]int {
	columns := make(map[string]int)
	for field, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				columns[field] = i
				break
			}
		}
	}
	for name, field := range p.ColumnMapping {
		if i, ok := index[strings.ToLower(name)]; ok {
			columns[field] = i
		}
	}
	return columns
}

func (p *CSVParser) parseRow(row []string, columns map[string]int, index map[string]int) (FlightRecord, bool) {
	value := func(field string) (float64, bool) {
		i, ok := columns[field]
		if !ok {
			return 0, false
		}
		return cell(row, i)
	}

	var values [twin.NumFeatures]float64
	for i, field := range twin.FeatureNames {
		v, ok := value(field)
		if !ok && field == FieldVibration {
			v, ok = vibrationMagnitude(row, index)
		}
		if !ok {
			return FlightRecord{}, false
		}
		values[i] = v
	}
	sensors, err := twin.SensorVectorFromSlice(values[:])
	if err != nil {
		return FlightRecord{}, false
	}

	record := FlightRecord{Sensors: sensors, Timestamp: p.now()}
	record.Position.X, _ = value(FieldPositionX)
	record.Position.Y, _ = value(FieldPositionY)
	if z, ok := value(FieldPositionZ); ok {
		record.Position.Z = z
	} else {
		record.Position.Z = sensors.Altitude
	}
	if i, ok := columns[FieldTimestamp]; ok && i < len(row) {
		if ts, err := cast.ToTimeE(strings.TrimSpace(row[i])); err == nil {
			record.Timestamp = ts
		}
	}
	return record, true
}

func vibrationMagnitude(row []string, index map[string]int) (float64, bool) {
	sum := 0.0
	found := false
	for _, axis := range vibrationAxes {
		i, ok := index[axis]
		if !ok {
			continue
		}
		v, ok := cell(row, i)
		if !ok {
			continue
		}
		sum += v * v
		found = true
	}
	return math.Sqrt(sum), found
}

func cell(row []string, i int) (float64, bool) {
	if i >= len(row) {
		return 0, false
	}
	s := strings.TrimSpace(row[i])
	if s == "" {
		return 0, false
	}
	v, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
