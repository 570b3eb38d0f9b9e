package strategy

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/sells-group/road-crawl-cli/internal/config"
	"github.com/sells-group/road-crawl-cli/internal/geo"
	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/quality"
	"github.com/sells-group/road-crawl-cli/internal/spatial"
)

// Reasons attached to plans.
const (
	ReasonNoPOIs  = "No POI data"
	ReasonFewPOIs = "Few POIs - likely missing businesses"
	ReasonVerify  = "Good coverage - verify accuracy"
)

// Roads with fewer POIs than this get a discovery pass even when coverage
// is good.
const minCoveredPOIs = 5

// Input is everything the selector needs about one road.
type Input struct {
	Road     *model.RoadSegment
	POIs     []model.BusinessPOI
	Quality  quality.Report
	Score    float64
	POICount int
}

// DefaultConfig returns the plan-generation defaults.
func DefaultConfig() config.CrawlConfig {
	return config.CrawlConfig{
		MaxPoints:          50,
		DiscoveryStep:      200,
		DiscoveryExclusion: 100,
		DiscoveryRadius:    200,
		DiscoveryMaxPoints: 30,
		TargetedRadius:     50,
		VerificationRadius: 30,
		VerificationTopN:   20,
	}
}

// Selector builds crawl plans. It holds no mutable state.
type Selector struct {
	cfg config.CrawlConfig
}

// NewSelector creates a Selector; zero fields in cfg take their defaults.
func NewSelector(cfg config.CrawlConfig) *Selector {
	d := DefaultConfig()
	if cfg.MaxPoints <= 0 {
		cfg.MaxPoints = d.MaxPoints
	}
	if cfg.DiscoveryStep <= 0 {
		cfg.DiscoveryStep = d.DiscoveryStep
	}
	if cfg.DiscoveryExclusion <= 0 {
		cfg.DiscoveryExclusion = d.DiscoveryExclusion
	}
	if cfg.DiscoveryRadius <= 0 {
		cfg.DiscoveryRadius = d.DiscoveryRadius
	}
	if cfg.DiscoveryMaxPoints <= 0 {
		cfg.DiscoveryMaxPoints = d.DiscoveryMaxPoints
	}
	if cfg.TargetedRadius <= 0 {
		cfg.TargetedRadius = d.TargetedRadius
	}
	if cfg.VerificationRadius <= 0 {
		cfg.VerificationRadius = d.VerificationRadius
	}
	if cfg.VerificationTopN <= 0 {
		cfg.VerificationTopN = d.VerificationTopN
	}
	return &Selector{cfg: cfg}
}

// Select chooses a mode and builds its searches. It never fails: a road
// with neither POIs nor geometry gets an empty discovery plan.
func (s *Selector) Select(in Input) Plan {
	h := Header{Tier: SelectTier(in.Score, in.POICount)}
	phonePct := in.Quality.PhoneCoverage * 100
	hoursPct := in.Quality.HoursCoverage * 100

	switch {
	case in.POICount == 0:
		h.Mode, h.Priority, h.Reason = ModeDiscovery, PriorityHigh, ReasonNoPOIs
		return s.discovery(h, in)
	case phonePct < 30:
		h.Mode, h.Priority = ModeTargeted, PriorityHigh
		h.Reason = fmt.Sprintf("Low phone coverage (%.0f%%)", phonePct)
		return s.targeted(h, FocusContactInfo, in)
	case hoursPct < 40:
		h.Mode, h.Priority = ModeTargeted, PriorityMedium
		h.Reason = fmt.Sprintf("Low hours coverage (%.0f%%)", hoursPct)
		return s.targeted(h, FocusOperatingHours, in)
	case in.POICount < minCoveredPOIs:
		h.Mode, h.Priority, h.Reason = ModeDiscovery, PriorityHigh, ReasonFewPOIs
		return s.discovery(h, in)
	default:
		h.Mode, h.Priority, h.Reason = ModeVerification, PriorityLow, ReasonVerify
		return s.verification(h, in)
	}
}

func (s *Selector) discovery(h Header, in Input) *Discovery {
	var line []geo.Point
	if in.Road != nil && !in.Road.Degenerate() {
		line = in.Road.Points()
	}

	points := []Search{}
	for _, pt := range spatial.SampleAlong(line, s.cfg.DiscoveryStep) {
		if d, ok := DistanceToNearestPOI(pt, in.POIs); ok && d <= s.cfg.DiscoveryExclusion {
			continue
		}
		points = append(points, Search{Location: pt, RadiusMeters: s.cfg.DiscoveryRadius})
		if len(points) == s.cfg.DiscoveryMaxPoints {
			break
		}
	}
	points = capSearches(points, s.cfg.MaxPoints)
	h.EstimatedAPICalls = len(points)
	return &Discovery{Header: h, Points: points}
}

func (s *Selector) targeted(h Header, focus Focus, in Input) *Targeted {
	targets := []Search{}
	for i := range in.POIs {
		p := &in.POIs[i]
		if !NeedsEnrichment(p, POIScore(p)) {
			continue
		}
		targets = append(targets, Search{
			Location:     p.Location,
			RadiusMeters: s.cfg.TargetedRadius,
			TargetName:   p.DisplayName(),
			TargetBrand:  p.BrandName(),
			OSMID:        p.ID,
			Priority:     EnrichmentPriority(p),
		})
	}
	slices.SortStableFunc(targets, func(a, b Search) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.OSMID, b.OSMID)
	})
	targets = capSearches(targets, s.cfg.MaxPoints)
	h.EstimatedAPICalls = len(targets)
	return &Targeted{Header: h, Focus: focus, Targets: targets}
}

func (s *Selector) verification(h Header, in Input) *Verification {
	type scored struct {
		poi   *model.BusinessPOI
		score int
	}
	ranked := make([]scored, 0, len(in.POIs))
	for i := range in.POIs {
		ranked = append(ranked, scored{poi: &in.POIs[i], score: POIScore(&in.POIs[i])})
	}
	slices.SortStableFunc(ranked, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.poi.ID, b.poi.ID)
	})

	targets := []Search{}
	for _, r := range ranked {
		if len(targets) == s.cfg.VerificationTopN {
			break
		}
		targets = append(targets, Search{
			Location:     r.poi.Location,
			RadiusMeters: s.cfg.VerificationRadius,
			TargetName:   r.poi.DisplayName(),
			VerifyPhone:  deref(r.poi.Phone),
			OSMID:        r.poi.ID,
			Priority:     r.score,
		})
	}
	targets = capSearches(targets, s.cfg.MaxPoints)
	h.EstimatedAPICalls = len(targets)
	return &Verification{Header: h, Targets: targets}
}

func capSearches(s []Search, n int) []Search {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
