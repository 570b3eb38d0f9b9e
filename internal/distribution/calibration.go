package distribution

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Calibration is a checked-in snapshot of a region's distribution, read by
// the scoring engine in place of a live percentile query.
type Calibration struct {
	GeneratedAt  time.Time                    `yaml:"generated_at"`
	RadiusMeters float64                      `yaml:"radius_meters"`
	Regions      map[string]RegionCalibration `yaml:"regions"`
}

// RegionCalibration holds the thresholds for one state.
type RegionCalibration struct {
	Overall   Percentiles  `yaml:"overall"`
	Breakdown []ClassStats `yaml:"breakdown,omitempty"`
	Buckets   []Bucket     `yaml:"buckets,omitempty"`
}

// Region returns the calibration for a state code.
func (c *Calibration) Region(state string) (RegionCalibration, bool) {
	if c == nil {
		return RegionCalibration{}, false
	}
	rc, ok := c.Regions[state]
	return rc, ok
}

// Set stores a region, allocating the map on first use.
func (c *Calibration) Set(state string, rc RegionCalibration) {
	if c.Regions == nil {
		c.Regions = make(map[string]RegionCalibration)
	}
	c.Regions[state] = rc
}

// LoadCalibration reads a calibration YAML file.
func LoadCalibration(path string) (*Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "distribution: read calibration %s", path)
	}
	var c Calibration
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrapf(err, "distribution: parse calibration %s", path)
	}
	return &c, nil
}

// SaveCalibration writes c as YAML, replacing any existing file.
func SaveCalibration(path string, c *Calibration) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "distribution: marshal calibration")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "distribution: write calibration %s", path)
	}
	return nil
}
