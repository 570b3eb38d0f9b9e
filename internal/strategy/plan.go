// Package strategy turns a road's score and data-quality report into a
// bounded, prioritized crawl plan.
package strategy

import (
	"github.com/sells-group/road-crawl-cli/internal/geo"
	"github.com/sells-group/road-crawl-cli/pkg/google"
)

// Mode is the crawl approach chosen for a road.
type Mode string

// Crawl modes.
const (
	ModeDiscovery    Mode = "discovery"
	ModeTargeted     Mode = "targeted"
	ModeVerification Mode = "verification"
)

// Priority ranks plans against each other.
type Priority string

// Plan priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities high > medium > low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Focus names the data gap a targeted plan is meant to fill.
type Focus string

// Targeted plan focus.
const (
	FocusContactInfo    Focus = "contact_info"
	FocusOperatingHours Focus = "operating_hours"
)

// Header is shared by every plan variant.
type Header struct {
	Mode              Mode        `json:"mode"`
	Tier              google.Tier `json:"tier"`
	Reason            string      `json:"reason"`
	Priority          Priority    `json:"priority"`
	EstimatedAPICalls int         `json:"estimated_api_calls"`
}

// Search is one location-biased text search the executor will issue.
// TargetName and OSMID are set when the search aims at a known POI.
type Search struct {
	Location     geo.Point `json:"location"`
	RadiusMeters float64   `json:"radius_meters"`
	TargetName   string    `json:"target_name,omitempty"`
	TargetBrand  string    `json:"target_brand,omitempty"`
	VerifyPhone  string    `json:"verify_phone,omitempty"`
	OSMID        int64     `json:"osm_id,omitempty"`
	Priority     int       `json:"priority,omitempty"`
}

// Plan is one of Discovery, Targeted, or Verification.
type Plan interface {
	Head() Header
	Searches() []Search
	isPlan()
}

// Discovery samples along the road to find businesses missing from OSM.
type Discovery struct {
	Header
	Points []Search `json:"points"`
}

// Targeted enriches known POIs that are missing contact data.
type Targeted struct {
	Header
	Focus   Focus    `json:"focus"`
	Targets []Search `json:"points"`
}

// Verification re-checks the highest-value POIs on a well-covered road.
type Verification struct {
	Header
	Targets []Search `json:"points"`
}

func (p *Discovery) Head() Header { return p.Header }
func (p *Discovery) Searches() []Search { return p.Points }
func (*Discovery) isPlan() {}

func (p *Targeted) Head() Header { return p.Header }
func (p *Targeted) Searches() []Search { return p.Targets }
func (*Targeted) isPlan() {}

func (p *Verification) Head() Header { return p.Header }
func (p *Verification) Searches() []Search { return p.Targets }
func (*Verification) isPlan() {}
