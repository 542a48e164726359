// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"context"
	"errors"
	"net/http"
)

// KindOf extracts the Kind from an error tree.
// Context cancellation and deadline errors map to their kinds even when they
// were never wrapped; anything else unclassified is KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}

	return KindInternal
}

// IsKind reports whether the error tree contains an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRetriable reports whether an error classifies as transient.
// Only timeouts and tool-declared transient failures are retried; an open
// circuit is not, since the breaker already throttles the tool.
func IsRetriable(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindTransient:
		return true
	default:
		return false
	}
}

// DetailsOf returns the structured details from an error tree, or nil.
func DetailsOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// HTTPStatus maps an error kind to the HTTP status code adapters respond with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidRequest, KindInvalidInput, KindInvalidWorkflow, KindCircularDependency, KindDuplicateTool:
		return http.StatusBadRequest
	case KindToolNotFound, KindWorkflowNotFound:
		return http.StatusNotFound
	case KindTimeout:
		return http.StatusRequestTimeout
	case KindCircuitOpen, KindToolOffline:
		return http.StatusServiceUnavailable
	case KindCancelled:
		// Client went away; 499 is nginx convention, stick to standard codes.
		return http.StatusRequestTimeout
	case KindStepFailed, KindToolError, KindTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
