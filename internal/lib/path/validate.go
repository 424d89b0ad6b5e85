package path

import (
	"math"
	"slices"

	"github.com/dpup/transit.paths/server/internal/lib/routing"
)

// transferable modes may have unusual dwell times and accelerations
const modeTransferable = "transferable"

// CanRoute checks that the path has what routing needs. It marks the
// routing as failed when a routed path is missing its operating statistics.
func (p *Path) CanRoute() (bool, []string) {
	canRoute := true
	errs := []string{}
	fail := func(key string) {
		canRoute = false
		errs = append(errs, key)
	}
	data := &p.Data
	engine := data.RoutingEngine

	if len(p.Nodes) < 2 {
		fail(ErrKeyNeedAtLeast2Nodes)
	}
	if p.Direction == "" {
		fail(ErrKeyDirectionIsRequired)
	}
	if (engine == routing.EngineCustom || engine == routing.EngineManual || p.AtLeastOneSegmentIsManual()) && data.DefaultRunningSpeedKmH == nil {
		fail(ErrKeyRunningSpeedRequired)
	}
	if engine == "" {
		fail(ErrKeyRoutingEngineIsRequired)
	}
	if slices.Contains([]routing.Engine{routing.EngineCustom, routing.EngineNative}, engine) && data.RoutingMode == "" {
		fail(ErrKeyRoutingModeIsRequired)
	}
	if speed := data.DefaultRunningSpeedKmH; speed != nil && (*speed <= 0 || *speed > 500) {
		fail(ErrKeyRunningSpeedIsInvalid)
	}
	if dwell := data.DefaultDwellTimeSeconds; dwell != nil && (*dwell <= 0 || *dwell > 600) {
		if p.Mode != modeTransferable || *dwell < 0 {
			fail(ErrKeyMinDwellTimeIsInvalid)
		}
	}

	if key := p.checkAccelerationRate(data.DefaultAcceleration, ErrKeyAccelerationIsRequired, ErrKeyAccelerationIsInvalid, ErrKeyAccelerationIsTooLow, ErrKeyAccelerationIsTooHigh); key != "" {
		fail(key)
	}
	if key := p.checkAccelerationRate(data.DefaultDeceleration, ErrKeyDecelerationIsRequired, ErrKeyDecelerationIsInvalid, ErrKeyDecelerationIsTooLow, ErrKeyDecelerationIsTooHigh); key != "" {
		fail(key)
	}

	if data.DefaultRunningSpeedKmH != nil && data.MaxRunningSpeedKmH != nil && *data.DefaultRunningSpeedKmH > *data.MaxRunningSpeedKmH {
		fail(ErrKeyRunningSpeedIsTooHigh)
	}

	if len(p.Nodes) >= 2 && p.Geography != nil &&
		(isMissing(data.TravelTimeWithoutDwellTimesSeconds) ||
			isMissing(data.OperatingSpeedMetersPerSecond) ||
			isMissing(data.OperatingTimeWithoutLayoverTimeSeconds)) {
		data.RoutingFailed = true
		canRoute = false
	}

	return canRoute, errs
}

func (p *Path) checkAccelerationRate(rate *float64, required, invalid, tooLow, tooHigh string) string {
	switch {
	case rate == nil:
		return required
	case *rate < 0:
		return invalid
	case *rate <= 0.3:
		return tooLow
	case *rate > 1.5 && p.Mode != modeTransferable:
		return tooHigh
	}
	return ""
}

// Validate runs CanRoute and records the routing failure, if any, as an error
func (p *Path) Validate() bool {
	canRoute, errs := p.CanRoute()
	p.isValid = canRoute
	p.errors = errs

	if p.Data.RoutingFailed {
		p.isValid = false
		if p.Data.GeographyErrors != nil && p.Data.GeographyErrors.Error != "" {
			p.errors = append(p.errors, p.Data.GeographyErrors.Error)
		} else {
			p.errors = append(p.errors, ErrKeyRoutingFailed)
		}
	}
	return p.isValid
}

func isMissing(v *float64) bool {
	return v == nil || *v == 0 || math.IsNaN(*v)
}
