package rebase

import (
	"strings"

	"go.uber.org/zap"
)

const (
	releaseTagSeparatorConstant      = ":"
	releaseTagMissingMessageConstant = "Could not find tag in release, using it as is"
	releaseFieldNameConstant         = "release"
)

// ReleaseTag extracts the tag from a name:tag release reference.
// References that do not split into exactly two parts are returned unchanged and logged.
func ReleaseTag(release string, logger *zap.Logger) string {
	parts := strings.Split(release, releaseTagSeparatorConstant)
	if len(parts) == 2 {
		return parts[1]
	}

	if logger != nil {
		logger.Error(releaseTagMissingMessageConstant, zap.String(releaseFieldNameConstant, release))
	}
	return release
}
