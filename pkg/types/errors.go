// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package types

import "errors"

// ExecutionError is a database-reported failure while running generated
// SQL. It is retryable: the pipeline feeds Message back to the generator
// for a repair attempt, bounded by the retry budget.
type ExecutionError struct {
	// Message is the database error text, safe to hand to the generator.
	Message string
}

func (e *ExecutionError) Error() string {
	return e.Message
}

// NewExecutionError wraps a database error message.
func NewExecutionError(message string) *ExecutionError {
	return &ExecutionError{Message: message}
}

// UnsafeSQLError is a pre-execution rejection by the safety gate. Routed
// identically to ExecutionError but never reaches the database.
type UnsafeSQLError struct {
	// Reason describes the rejected construct.
	Reason string
}

func (e *UnsafeSQLError) Error() string {
	return e.Reason
}

// ModelError is a language-model gateway transport failure that survived
// the gateway's own retry budget. It propagates to the caller, which maps
// it to a generic apology rather than leaking internals.
type ModelError struct {
	// Provider identifies the failing gateway.
	Provider string

	// Err is the underlying transport error.
	Err error
}

func (e *ModelError) Error() string {
	return "model gateway " + e.Provider + ": " + e.Err.Error()
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// ErrNothingCached is returned by cached operations (CSV export, show SQL)
// when no prior query exists to reference. Surfaced to the user as a
// "nothing yet" message, never as a failure.
var ErrNothingCached = errors.New("no prior query to reference")
