/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type ErrorType string

const (
	// Raised by the decision core
	ErrorTypeInvalidInput          ErrorType = "InvalidInput"
	ErrorTypeNotTrained            ErrorType = "NotTrained"
	ErrorTypePreconditionViolation ErrorType = "PreconditionViolation"

	ErrorTypeNotFound    ErrorType = "NotFound"
	ErrorTypeServerError ErrorType = "ServerError"
	ErrorTypeDBError     ErrorType = "DBError"
	ErrorTypeConflict    ErrorType = "Conflict"
	ErrorTypeBadRequest  ErrorType = "BadRequest"
	ErrorTypeUnknown     ErrorType = "Unknown"
	ErrorTypeConfig      ErrorType = "ConfigurationError"
	ErrorTypePublish     ErrorType = "PublishError"
)

type CommonTwinError struct {
	errorType ErrorType
	message   string
}

type TwinError interface {
	ErrorType() ErrorType
	Message() string
	IsErrorType(errorType ErrorType) bool
	Error() string
	ConvertToHTTPError() *echo.HTTPError
}

func (h CommonTwinError) ErrorType() ErrorType {
	return h.errorType
}

func (h CommonTwinError) Message() string {
	return h.message
}

func (h CommonTwinError) Error() string {
	return h.message
}

func (h CommonTwinError) IsErrorType(errorType ErrorType) bool {
	return errorType == h.errorType
}

func (h CommonTwinError) ConvertToHTTPError() *echo.HTTPError {
	return echo.NewHTTPError(errorTypeToCode(h.ErrorType()), h.Message())
}

func NewCommonTwinError(errorType ErrorType, message string) CommonTwinError {
	return CommonTwinError{errorType, message}
}

// NewCommonTwinErrorf is NewCommonTwinError with a format string.
func NewCommonTwinErrorf(errorType ErrorType, format string, args ...interface{}) CommonTwinError {
	return CommonTwinError{errorType, fmt.Sprintf(format, args...)}
}

// IsType reports whether err, or any error it wraps, is a TwinError of the given type.
func IsType(err error, errorType ErrorType) bool {
	var twinErr TwinError
	if errors.As(err, &twinErr) {
		return twinErr.IsErrorType(errorType)
	}
	return false
}

// ToHTTPError converts any error to an echo error; untyped errors become 500s.
func ToHTTPError(err error) *echo.HTTPError {
	var twinErr TwinError
	if errors.As(err, &twinErr) {
		return twinErr.ConvertToHTTPError()
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func errorTypeToCode(status ErrorType) int {
	switch status {
	case ErrorTypeInvalidInput, ErrorTypeBadRequest:
		return http.StatusBadRequest
	case ErrorTypeNotTrained, ErrorTypePreconditionViolation, ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeServerError, ErrorTypeDBError, ErrorTypeUnknown, ErrorTypePublish:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
