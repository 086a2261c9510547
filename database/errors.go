/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"database/sql"
	"errors"

	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/apierror"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation      = "23505"
	pqForeignKeyViolation  = "23503"
	pqCheckViolation       = "23514"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
)

// isTransient reports whether err is a store failure worth retrying once.
func isTransient(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch string(pqErr.Code) {
	case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
		return true
	}
	return false
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// mapError converts a store error into the api error taxonomy. Errors that
// already are api errors pass through untouched.
func mapError(err error, entity, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := apierror.As(err); ok {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apierror.NewAPIError(apierror.ErrNotFound, entity+" not found", err)
	}
	switch pqCode(err) {
	case pqUniqueViolation:
		return apierror.NewAPIError(apierror.ErrConflict, entity+" already exists", err)
	case pqForeignKeyViolation:
		return apierror.NewAPIError(apierror.ErrReferentialIntegrity, entity+" references a missing record", err)
	case pqCheckViolation:
		return apierror.NewAPIError(apierror.ErrInvalidInput, entity+" violates a value constraint", err)
	}
	return apierror.NewAPIError(apierror.ErrPersistence, message, err)
}
