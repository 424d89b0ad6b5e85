package geography

import "github.com/dpup/transit.paths/server/internal/lib/path"

var (
	ErrSegmentDuration = &path.Error{
		Code:    "PUPDGEO0001",
		Key:     "TransitPathCannotUpdateGeographyBecauseErrorCalculatingSegmentDuration",
		Message: "error calculating segment duration",
	}
	ErrLegWithNoResult = &path.Error{
		Code:    "PUPDGEO0002",
		Key:     "TransitPathCannotUpdateGeographyBecauseAtLeastOneLegWithNoResult",
		Message: "some leg did not return any result",
	}
)
