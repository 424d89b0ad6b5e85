package physics

import "math"

// KphToMps converts a speed in km/h to m/s
func KphToMps(kph float64) float64 {
	return kph / 3.6
}

// MpsToKph converts a speed in m/s to km/h
func MpsToKph(mps float64) float64 {
	return mps * 3.6
}

// DurationFromAccelerationDecelerationDistanceAndRunningSpeed returns the time
// in seconds needed to travel distanceMeters from stop to stop, accelerating up
// to runningSpeedMps and decelerating back to 0. When the distance is too short
// to reach the running speed, a triangular speed profile is used instead.
// Returns -1 for invalid inputs.
func DurationFromAccelerationDecelerationDistanceAndRunningSpeed(accelerationMps2, decelerationMps2, distanceMeters, runningSpeedMps float64) float64 {
	if accelerationMps2 <= 0 || decelerationMps2 <= 0 || runningSpeedMps <= 0 || distanceMeters < 0 {
		return -1
	}
	if math.IsNaN(distanceMeters) || math.IsInf(runningSpeedMps, 0) || math.IsNaN(runningSpeedMps) {
		return -1
	}

	accelerationDistance := runningSpeedMps * runningSpeedMps / (2 * accelerationMps2)
	decelerationDistance := runningSpeedMps * runningSpeedMps / (2 * decelerationMps2)

	if distanceMeters >= accelerationDistance+decelerationDistance {
		cruiseDistance := distanceMeters - accelerationDistance - decelerationDistance
		return runningSpeedMps/accelerationMps2 + cruiseDistance/runningSpeedMps + runningSpeedMps/decelerationMps2
	}

	// Never reaches the running speed
	peakSpeed := math.Sqrt(2 * distanceMeters * accelerationMps2 * decelerationMps2 / (accelerationMps2 + decelerationMps2))
	return peakSpeed/accelerationMps2 + peakSpeed/decelerationMps2
}
