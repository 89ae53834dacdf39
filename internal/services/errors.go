package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMetadataIncomplete = errors.New("metadata incomplete")
	ErrNotFound           = errors.New("not found")
	ErrFingerprintRace    = errors.New("fingerprint collision race")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrExternalTool       = errors.New("external tool error")
	ErrValidation         = errors.New("validation error")
	ErrConfiguration      = errors.New("configuration error")
)

// Pipeline stage names used as the stage argument of Wrap.
const (
	StageParse       = "parse"
	StageHash        = "hash"
	StageFingerprint = "fingerprint"
	StageResolve     = "resolve"
	StageClassify    = "classify"
	StagePersist     = "persist"
	StageBlob        = "blob"
	StageLookup      = "lookup"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrStorageUnavailable
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// OutcomeName returns the user-facing outcome label for err. Errors without a
// known marker report "Error".
func OutcomeName(err error) string {
	switch {
	case err == nil:
		return "OK"
	case errors.Is(err, ErrMetadataIncomplete):
		return "MetadataIncomplete"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrFingerprintRace):
		return "FingerprintCollisionRace"
	case errors.Is(err, ErrStorageUnavailable):
		return "StorageUnavailable"
	case errors.Is(err, ErrExternalTool):
		return "ExternalToolFailure"
	case errors.Is(err, ErrValidation):
		return "ValidationFailed"
	case errors.Is(err, ErrConfiguration):
		return "ConfigurationError"
	default:
		return "Error"
	}
}

// Retryable reports whether err is worth retrying at a storage boundary.
// Parsing and hashing failures are deterministic and never retryable.
// Fingerprint races are settled by the resolver's single re-run, not here.
func Retryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
