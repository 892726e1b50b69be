/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/edgexfoundry/go-mod-core-contracts/v3/common"
	"github.com/edgexfoundry/go-mod-core-contracts/v3/dtos"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

var numericBitSizes = map[string]int{
	common.ValueTypeUint8:   8,
	common.ValueTypeUint16:  16,
	common.ValueTypeUint32:  32,
	common.ValueTypeUint64:  64,
	common.ValueTypeInt8:    8,
	common.ValueTypeInt16:   16,
	common.ValueTypeInt32:   32,
	common.ValueTypeInt64:   64,
	common.ValueTypeFloat32: 32,
	common.ValueTypeFloat64: 64,
}

// ParseSimpleValueToFloat64 parses the string value of a numeric EdgeX reading
func ParseSimpleValueToFloat64(valueType string, value string) (float64, error) {
	bitSize, ok := numericBitSizes[valueType]
	if !ok {
		return 0, errors.Errorf("value type %s is not numeric", valueType)
	}
	value = strings.TrimSpace(value)
	switch {
	case strings.HasPrefix(valueType, "Uint"):
		v, err := strconv.ParseUint(value, 10, bitSize)
		return float64(v), errors.WithStack(err)
	case strings.HasPrefix(valueType, "Int"):
		v, err := strconv.ParseInt(value, 10, bitSize)
		return float64(v), errors.WithStack(err)
	default:
		v, err := strconv.ParseFloat(value, bitSize)
		if err != nil {
			return 0, errors.WithStack(err)
		}
		return v, nil
	}
}

// ReadingToFloat64 returns the finite numeric value of a simple reading.
func ReadingToFloat64(reading dtos.BaseReading) (float64, error) {
	if reading.Value == "" && reading.ObjectValue != nil {
		v, err := cast.ToFloat64E(reading.ObjectValue)
		if err != nil {
			return 0, errors.Wrapf(err, "reading %s", reading.ResourceName)
		}
		return finite(reading.ResourceName, v)
	}
	v, err := ParseSimpleValueToFloat64(reading.ValueType, reading.Value)
	if err != nil {
		return 0, errors.Wrapf(err, "reading %s", reading.ResourceName)
	}
	return finite(reading.ResourceName, v)
}

func finite(name string, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Errorf("reading %s is not a finite number", name)
	}
	return v, nil
}
