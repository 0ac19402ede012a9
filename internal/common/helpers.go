// Package common provides general utility helper functions and types shared
// across the evidence pipeline packages.
package common

import (
	"errors"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"gopkg.in/yaml.v3"
)

// Round2 rounds a float64 to two decimal places, the locked precision for
// every numeric field in the canonical schema except temperature (Round1).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds a float64 to one decimal place, used only for temperature.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// TimeTrack tracks execution time of a function, logged at debug level.
func TimeTrack(start time.Time, name string, logger *slog.Logger) {
	elapsed := time.Since(start)
	logger.Debug(name, "duration", elapsed)
}

// SanitizeFloat replaces +/-Inf and NaN with zero so they never reach a
// JSON encoder, which cannot represent them.
func SanitizeFloat(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}

	return v
}

// GetUUIDFromString returns a reproducible UUID for a given slice of
// strings, using xxh3 for the underlying hash.
func GetUUIDFromString(stringSlice []string) (string, error) {
	s := strings.Join(stringSlice, "|")
	h := xxh3.HashString128(s).Bytes()

	id, err := uuid.FromBytes(h[:])

	return id.String(), err
}

// NewRunID returns a fresh random correlation id for a single CLI
// invocation. It is for logging only: it never enters a hashed payload
// and so has no bearing on determinism.
func NewRunID() string {
	return uuid.NewString()
}

// MakeConfig reads a YAML config file into a new *T, merging it over
// whatever zero-value/defaults T's UnmarshalYAML seeds.
func MakeConfig[T any](filePath string) (*T, error) {
	config := new(T)

	if filePath == "" {
		return config, errors.New("config file path missing")
	}

	configFile, err := os.ReadFile(filePath)
	if err != nil {
		return config, err
	}

	if err := yaml.Unmarshal(configFile, config); err != nil {
		return config, err
	}

	return config, nil
}
