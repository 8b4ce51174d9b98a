package olm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	// ErrCSVTooOld is returned when an installed operator is older than the required floor.
	ErrCSVTooOld = errors.New("installed operator is older than required")
	// ErrInvalidCSVName is returned when no version can be read from a CSV name.
	ErrInvalidCSVName = errors.New("cannot read version from CSV name")
)

// CSVVersion extracts the version from names such as
// "kuadrant-operator.v1.3.0" or "rhods-operator.2.25.0".
func CSVVersion(csvName string) (*semver.Version, error) {
	raw := csvName
	if _, rest, found := strings.Cut(csvName, "."); found {
		raw = rest
	}

	version, err := semver.NewVersion(strings.TrimPrefix(raw, "v"))
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidCSVName, csvName, err)
	}

	return version, nil
}

// CheckCSVVersion fails with ErrCSVTooOld when installed is older than
// required. An empty required floor accepts any version.
func CheckCSVVersion(installed, required string) error {
	if required == "" {
		return nil
	}

	floor, err := semver.NewVersion(strings.TrimPrefix(required, "v"))
	if err != nil {
		return fmt.Errorf("parse required version %q: %w", required, err)
	}

	version, err := CSVVersion(installed)
	if err != nil {
		return err
	}

	if version.LessThan(floor) {
		return fmt.Errorf("%w: %s < %s", ErrCSVTooOld, installed, floor)
	}

	return nil
}
