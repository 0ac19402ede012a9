// Package registry loads the locked method registry: the versioned,
// YAML-defined set of constants (methodology version, import emission
// factor, HDD base temperature, PSR emission factors and the PSR-to-field
// mapping) that every sealed dataset and report
// pins a hash of. Any edit to the registry file changes registry_hash,
// which is the signal downstream consumers use to know a result was
// produced under a different methodology.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Registry is the locked methodology configuration.
type Registry struct {
	MethodologyVersion string            `yaml:"methodology_version" json:"methodology_version"`
	ImportEmissionGCO2 float64           `yaml:"import_emission_g_co2_per_kwh" json:"import_emission_g_co2_per_kwh"`
	HDDBaseTempC       float64           `yaml:"hdd_base_temp_c" json:"hdd_base_temp_c"`
	PSRFactors         map[string]float64 `yaml:"psr_factors" json:"psr_factors"`
	PSRFields          map[string]string  `yaml:"psr_fields" json:"psr_fields"`
}

// Load reads and parses the registry YAML file at path. It does not
// validate content against the hardcoded defaults in package emissions;
// callers that need the registry to actually govern behavior must read
// values from the loaded Registry rather than the emissions package
// constants directly.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}

	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", path, err)
	}

	return &r, nil
}

// Hash returns the SHA-256 hex digest of the registry's canonical JSON
// form (Go's struct-field-order-stable, map-key-sorted encoding/json
// output), recorded downstream as registry_hash.
func (r *Registry) Hash() (string, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("registry: marshal: %w", err)
	}

	sum := sha256.Sum256(body)

	return hex.EncodeToString(sum[:]), nil
}
