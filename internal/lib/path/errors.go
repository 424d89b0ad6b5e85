package path

// Error is a path error with a stable code that editors can translate
type Error struct {
	Code    string
	Key     string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

var (
	ErrPathNoGeography         = &Error{Code: "PathNoGeography", Message: "path has no geography"}
	ErrPathInvalidSegmentIndex = &Error{Code: "PathInvalidSegmentIndex", Message: "invalid segment index"}
	ErrNodeNotFound            = &Error{Code: "PathNodeNotFound", Message: "node not found"}
	ErrLineNotFound            = &Error{Code: "PathLineNotFound", Message: "line not found"}
	ErrPathNotFound            = &Error{Code: "PathNotFound", Message: "path not found"}
)

// Validation error keys, as displayed by editors
const (
	ErrKeyNeedAtLeast2Nodes       = "transit:transitPath:errors:NeedAtLeast2NodesOrStops"
	ErrKeyDirectionIsRequired     = "transit:transitPath:errors:DirectionIsRequired"
	ErrKeyRunningSpeedRequired    = "transit:transitPath:errors:DefaultRunningSpeedIsRequiredForManualAndEngineCustomRoutingEngines"
	ErrKeyRoutingEngineIsRequired = "transit:transitPath:errors:RoutingEngineIsRequired"
	ErrKeyRoutingModeIsRequired   = "transit:transitPath:errors:RoutingModeIsRequired"
	ErrKeyRunningSpeedIsInvalid   = "transit:transitPath:errors:DefaultRunningSpeedIsInvalid"
	ErrKeyMinDwellTimeIsInvalid   = "transit:transitPath:errors:MinDwellTimeIsInvalid"
	ErrKeyAccelerationIsRequired  = "transit:transitPath:errors:DefaultAccelerationIsRequired"
	ErrKeyAccelerationIsInvalid   = "transit:transitPath:errors:DefaultAccelerationIsInvalid"
	ErrKeyAccelerationIsTooLow    = "transit:transitPath:errors:DefaultAccelerationIsTooLow"
	ErrKeyAccelerationIsTooHigh   = "transit:transitPath:errors:DefaultAccelerationIsTooHigh"
	ErrKeyDecelerationIsRequired  = "transit:transitPath:errors:DefaultDecelerationIsRequired"
	ErrKeyDecelerationIsInvalid   = "transit:transitPath:errors:DefaultDecelerationIsInvalid"
	ErrKeyDecelerationIsTooLow    = "transit:transitPath:errors:DefaultDecelerationIsTooLow"
	ErrKeyDecelerationIsTooHigh   = "transit:transitPath:errors:DefaultDecelerationIsTooHigh"
	ErrKeyRunningSpeedIsTooHigh   = "transit:transitPath:errors:DefaultRunningSpeedIsTooHigh"
	ErrKeyRoutingFailed           = "transit:transitPath:errors:RoutingFailed"
)
