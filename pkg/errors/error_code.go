/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"fmt"
	"net/http"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Wire error codes. The code strings are part of the HTTP contract: clients
// switch on them, so they are stable snake_case identifiers rather than
// human-readable text.

// generic
const (
	InternalError      = "internal_error"
	BadRequest         = "bad_request"
	Unauthorized       = "unauthorized"
	Forbidden          = "forbidden"
	NotFound           = "not_found"
	AlreadyExist       = "already_exists"
	ServiceUnavailable = "service_unavailable"
)

// upload
const (
	UploadVerificationFailed = "upload_verification_failed"
	UploadSessionExpired     = "upload_session_expired"
	UploadSessionConflict    = "upload_session_conflict"
)

// publish
const (
	PublishPreconditionsUnmet = "publish_preconditions_unmet"
	PublishBlobMissing        = "publish_blob_missing"
	PublishBlockedQuarantine  = "publish_blocked_quarantine"
	PublishDenied             = "publish_denied"
	VersionImmutable          = "version_immutable"
)

// policy / quarantine
const (
	PolicyTimeout   = "policy_timeout"
	QuarantinedBlob = "quarantined_blob"
)

// download
const (
	RangeNotSatisfiable = "range_not_satisfiable"
)

// IsArtifortress returns true if the error carries one of our wire codes.
func IsArtifortress(err error) bool {
	return GetErrorCode(err) != ""
}

func IsBadRequest(err error) bool {
	return apierrors.ReasonForError(err) == BadRequest
}

func IsNotFound(err error) bool {
	return apierrors.ReasonForError(err) == NotFound
}

func IsAlreadyExist(err error) bool {
	return apierrors.ReasonForError(err) == AlreadyExist
}

func IsConflictCode(err error, code string) bool {
	return string(apierrors.ReasonForError(err)) == code
}

func IgnoreNotFound(err error) error {
	if err == nil || IsNotFound(err) {
		return nil
	}
	return err
}

func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var statusErr *apierrors.StatusError
	if !asStatusError(err, &statusErr) {
		return ""
	}
	return string(statusErr.Status().Reason)
}

func asStatusError(err error, target **apierrors.StatusError) bool {
	se, ok := err.(*apierrors.StatusError)
	if !ok {
		return false
	}
	*target = se
	return true
}

func newStatusError(httpCode int32, reason, message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    httpCode,
		Reason:  metav1.StatusReason(reason),
		Message: message,
	}}
}

func NewBadRequest(message string) *apierrors.StatusError {
	return newStatusError(http.StatusBadRequest, BadRequest, fmt.Sprintf("Bad request. %s", message))
}

func NewInternalError(message string) *apierrors.StatusError {
	return newStatusError(http.StatusInternalServerError, InternalError, fmt.Sprintf("Internal error. %s", message))
}

func NewUnauthorized(message string) *apierrors.StatusError {
	return newStatusError(http.StatusUnauthorized, Unauthorized, message)
}

func NewForbidden(message string) *apierrors.StatusError {
	return newStatusError(http.StatusForbidden, Forbidden, message)
}

func NewNotFound(kind, name string) *apierrors.StatusError {
	err := newStatusError(http.StatusNotFound, NotFound, fmt.Sprintf("%s %s not found.", kind, name))
	err.ErrStatus.Details = &metav1.StatusDetails{Kind: kind, Name: name}
	return err
}

func NewNotFoundWithMessage(message string) *apierrors.StatusError {
	return newStatusError(http.StatusNotFound, NotFound, message)
}

func NewAlreadyExist(message string) *apierrors.StatusError {
	return newStatusError(http.StatusConflict, AlreadyExist, message)
}

func NewServiceUnavailable(message string) *apierrors.StatusError {
	return newStatusError(http.StatusServiceUnavailable, ServiceUnavailable, message)
}

// NewConflict builds a 409 with a caller-chosen wire code, e.g.
// publish_preconditions_unmet or upload_session_conflict.
func NewConflict(code, message string) *apierrors.StatusError {
	return newStatusError(http.StatusConflict, code, message)
}

func NewUploadVerificationFailed(message string) *apierrors.StatusError {
	return newStatusError(http.StatusConflict, UploadVerificationFailed, message)
}

func NewPublishPreconditionsUnmet(message string) *apierrors.StatusError {
	return newStatusError(http.StatusConflict, PublishPreconditionsUnmet, message)
}

func NewPublishBlobMissing(message string) *apierrors.StatusError {
	return newStatusError(http.StatusConflict, PublishBlobMissing, message)
}

func NewPublishBlockedQuarantine(message string) *apierrors.StatusError {
	return newStatusError(http.StatusConflict, PublishBlockedQuarantine, message)
}

func NewPublishDenied(message string) *apierrors.StatusError {
	return newStatusError(http.StatusConflict, PublishDenied, message)
}

func NewVersionImmutable(message string) *apierrors.StatusError {
	return newStatusError(http.StatusConflict, VersionImmutable, message)
}

func NewPolicyTimeout(message string) *apierrors.StatusError {
	return newStatusError(http.StatusServiceUnavailable, PolicyTimeout, message)
}

// NewQuarantinedBlob is the 423 returned while a digest is held by an active
// quarantine in the repository.
func NewQuarantinedBlob(message string) *apierrors.StatusError {
	return newStatusError(http.StatusLocked, QuarantinedBlob, message)
}

func NewRangeNotSatisfiable(message string) *apierrors.StatusError {
	return newStatusError(http.StatusRequestedRangeNotSatisfiable, RangeNotSatisfiable, message)
}
