package stream

import (
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrorCategory classifies GStreamer capture errors for telemetry
type ErrorCategory int

const (
	// ErrCategoryDevice indicates a missing, unplugged or busy camera
	ErrCategoryDevice ErrorCategory = iota
	// ErrCategoryFormat indicates caps negotiation or pixel format failures
	ErrCategoryFormat
	// ErrCategoryPermission indicates the device node cannot be opened
	ErrCategoryPermission
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryDevice:
		return "device"
	case ErrCategoryFormat:
		return "format"
	case ErrCategoryPermission:
		return "permission"
	default:
		return "unknown"
	}
}

// ClassifyGStreamerError categorizes a bus error.
// go-gst's GError does not expose the error domain, so classification is
// keyword based.
func ClassifyGStreamerError(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return ErrCategoryUnknown
	}
	return classifyMessage(gerr.Error(), gerr.DebugString())
}

func classifyMessage(errMsg, debug string) ErrorCategory {
	combined := strings.ToLower(errMsg + " " + debug)

	// Permission first: "cannot open device" messages also mention the device.
	if containsAny(combined, permissionKeywords) {
		return ErrCategoryPermission
	}
	if containsAny(combined, formatKeywords) {
		return ErrCategoryFormat
	}
	if containsAny(combined, deviceKeywords) {
		return ErrCategoryDevice
	}
	return ErrCategoryUnknown
}

var (
	permissionKeywords = []string{
		"permission denied",
		"not permitted",
		"eacces",
	}
	formatKeywords = []string{
		"not negotiated",
		"negotiation",
		"caps",
		"format",
		"missing plugin",
		"no such element",
	}
	deviceKeywords = []string{
		"no such device",
		"no such file",
		"not found",
		"device or resource busy",
		"busy",
		"cannot identify device",
		"failed to open",
		"could not open",
		"v4l2",
	}
)

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
