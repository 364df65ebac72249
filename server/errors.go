// Copyright 2025 Poiesic Systems
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

package server

import (
	"errors"
	"net/http"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/extract"
)

var (
	// ErrInvalidBody is returned for request bodies that are not valid JSON.
	ErrInvalidBody = errors.New("invalid request body")

	// ErrMissingField is returned when a required request field is absent.
	ErrMissingField = errors.New("missing required field")
)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case core.IsValidationError(err),
		errors.Is(err, core.ErrUnknownProvider),
		errors.Is(err, ErrInvalidBody),
		errors.Is(err, ErrMissingField):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoContentExtracted),
		errors.Is(err, core.ErrNoChunksGenerated),
		errors.Is(err, extract.ErrUnsupportedType),
		errors.Is(err, extract.ErrInvalidContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrStoreUnavailable),
		errors.Is(err, core.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// clientErrors lists, finest first, the sentinels whose text is safe to
// show a client. The wrapped chain may hold paths and backend details, so
// only the sentinel and a caller supplied detail reach the response.
var clientErrors = []error{
	ErrMissingField,
	ErrInvalidBody,
	core.ErrEmptyDocumentID,
	core.ErrEmptyQuestion,
	core.ErrNegativeSize,
	core.ErrFileNotFound,
	core.ErrFileUnreadable,
	core.ErrNotAFile,
	core.ErrInvalidDocument,
	core.ErrInvalidChatRequest,
	core.ErrUnknownProvider,
	core.ErrNoContentExtracted,
	core.ErrNoChunksGenerated,
	extract.ErrUnsupportedType,
	extract.ErrInvalidContent,
}

// detailedError attaches caller supplied context, such as a field name or
// provider key, to err without changing how it matches.
type detailedError struct {
	err    error
	detail string
}

func (e *detailedError) Error() string { return e.err.Error() + ": " + e.detail }

func (e *detailedError) Unwrap() error { return e.err }

func withDetail(err error, detail string) error {
	if err == nil || detail == "" {
		return err
	}
	return &detailedError{err: err, detail: detail}
}

// messageFor returns the client facing text of err.
func messageFor(status int, err error) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
	case http.StatusServiceUnavailable:
		return "Service Unavailable"
	default:
		return "Internal Server Error"
	}

	msg := http.StatusText(status)
	for _, sentinel := range clientErrors {
		if errors.Is(err, sentinel) {
			msg = sentinel.Error()
			break
		}
	}
	var detailed *detailedError
	if errors.As(err, &detailed) {
		msg += ": " + detailed.detail
	}
	return msg
}
