/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package utils

import (
	"errors"

	"github.com/gin-gonic/gin"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

// ApiError is the unified error response shape: HTTP code, wire error code,
// and message. The errorCode field is contractual (spec'd snake_case codes).
type ApiError struct {
	HttpCode     int    `json:"-"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Error returns the error message string.
func (err *ApiError) Error() string {
	return err.ErrorMessage
}

// AbortWithApiError converts the error into the standardized error format and
// aborts the request with a JSON error response.
func AbortWithApiError(c *gin.Context, err error) {
	handleErrors(c, err)
	rsp := convertToErrResponse(err)
	c.AbortWithStatusJSON(rsp.HttpCode, rsp)
}

// convertToErrResponse converts an error into a standardized ApiError.
// StatusError instances carry their own code and reason; everything else is
// classified by the apierrors predicates and mapped to a generic code.
func convertToErrResponse(err error) ApiError {
	var result *ApiError
	if errors.As(err, &result) {
		return *result
	}
	var statusErr *apierrors.StatusError
	if !errors.As(err, &statusErr) {
		switch {
		case apierrors.IsNotFound(err):
			statusErr = commonerrors.NewNotFoundWithMessage(err.Error())
		case apierrors.IsBadRequest(err), apierrors.IsInvalid(err):
			statusErr = commonerrors.NewBadRequest(err.Error())
		case apierrors.IsAlreadyExists(err):
			statusErr = commonerrors.NewAlreadyExist(err.Error())
		case apierrors.IsForbidden(err):
			statusErr = commonerrors.NewForbidden(err.Error())
		case apierrors.IsServiceUnavailable(err):
			statusErr = commonerrors.NewServiceUnavailable(err.Error())
		default:
			statusErr = commonerrors.NewInternalError(err.Error())
		}
	}
	return ApiError{
		HttpCode:     int(statusErr.Status().Code),
		ErrorCode:    string(statusErr.Status().Reason),
		ErrorMessage: statusErr.Error(),
	}
}

// handleErrors processes single errors or error aggregates and adds them to
// the gin context's error collection.
func handleErrors(c *gin.Context, err error) {
	var errs []error
	if aggregate, ok := err.(utilerrors.Aggregate); ok {
		errs = aggregate.Errors()
	} else {
		errs = []error{err}
	}
	for _, val := range errs {
		if val != nil {
			_ = c.Error(val)
		}
	}
}
