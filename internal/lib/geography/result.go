package geography

import "github.com/dpup/transit.paths/server/internal/lib/path"

// Status of a geography update
type Status string

const (
	StatusOK            Status = "ok"
	StatusRoutingFailed Status = "routing_failed"
	StatusFatal         Status = "fatal"
)

// Result of a geography update. RoutingFailed results carry the points that
// could not be matched, Fatal results the error that stopped the update.
type Result struct {
	Status          Status                `json:"status"`
	GeographyErrors *path.GeographyErrors `json:"geography_errors,omitempty"`
	Err             error                 `json:"-"`
}

func OK() Result {
	return Result{Status: StatusOK}
}

func RoutingFailed(errs *path.GeographyErrors) Result {
	return Result{Status: StatusRoutingFailed, GeographyErrors: errs}
}

func Fatal(err error) Result {
	return Result{Status: StatusFatal, Err: err}
}

func (r Result) IsOK() bool {
	return r.Status == StatusOK
}
