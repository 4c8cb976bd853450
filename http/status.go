package http

// InternalStatus is the phase a file request is in. It is only read when a
// phase fails, to pick the response.
type InternalStatus int

const (
	StatusResolvingPath InternalStatus = iota
	StatusAcquiringHandle
	StatusStatingHandle
	StatusValidatingType
	StatusValidatingRange
	StatusServing
	StatusServed
)

var statusInfo = [...]struct {
	name     string
	progress string
	failure  string
}{
	StatusResolvingPath:   {"RESOLVING_PATH", "Resolving path...", "The path is not on the menu."},
	StatusAcquiringHandle: {"ACQUIRING_HANDLE", "Acquiring file handle...", "Failed to acquire file handle."},
	StatusStatingHandle:   {"STATING_HANDLE", "Getting file stats...", "Failed to get file stats."},
	StatusValidatingType:  {"VALIDATING_TYPE", "Validating handle type...", "The filesystem handle did not refer to a file."},
	StatusValidatingRange: {"VALIDATING_RANGE", "Validating requested range...", "Invalid range."},
	StatusServing:         {"SERVING", "Serving file...", "Failed to serve file."},
	StatusServed:          {"SERVED", "Served.", ""},
}

func (s InternalStatus) String() string {
	if s < 0 || int(s) >= len(statusInfo) {
		return "UNKNOWN"
	}
	return statusInfo[s].name
}

func (s InternalStatus) Progress() string {
	if s < 0 || int(s) >= len(statusInfo) {
		return ""
	}
	return statusInfo[s].progress
}

func (s InternalStatus) Failure() string {
	if s < 0 || int(s) >= len(statusInfo) {
		return ""
	}
	return statusInfo[s].failure
}
