package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/salesops/backend/internal/domain/shared"
)

var (
	// ErrInvalidPlan is returned when a plan cannot be built from its inputs
	ErrInvalidPlan = shared.NewDomainError("INVALID_INPUT", "Invalid report plan")

	// ErrMalformedResult is wrapped in a DataSourceError when a result set
	// lacks the columns the plan asked for
	ErrMalformedResult = errors.New("malformed result set")
)

// invalidPlan wraps ErrInvalidPlan with a reason
func invalidPlan(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPlan, fmt.Sprintf(format, args...))
}

// DataSourceError reports a failed or timed-out data source query.
// It is terminal for the request and never carries partial rows.
type DataSourceError struct {
	Sources []SourceID
	Err     error
}

// NewDataSourceError wraps err for the given sources
func NewDataSourceError(sources []SourceID, err error) *DataSourceError {
	return &DataSourceError{Sources: sources, Err: err}
}

func (e *DataSourceError) Error() string {
	names := make([]string, len(e.Sources))
	for i, s := range e.Sources {
		names[i] = string(s)
	}
	return fmt.Sprintf("data source query failed [%s]: %v", strings.Join(names, ","), e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the shared DATA_SOURCE_ERROR domain error
func (e *DataSourceError) Is(target error) bool {
	var de *shared.DomainError
	if errors.As(target, &de) {
		return de.Code == shared.ErrDataSourceFailure.Code
	}
	return false
}
