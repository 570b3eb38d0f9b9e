package model

import "time"

// RoadBusinessStats is the cached aggregate of POIs within the proximity
// buffer of a road. It is rebuilt in batch and never edited by hand.
type RoadBusinessStats struct {
	RoadID              int64        `json:"road_id"`
	RoadName            string       `json:"road_name,omitempty"`
	Highway             HighwayClass `json:"highway"`
	Region              Region       `json:"region"`
	POICount            int          `json:"poi_count"`
	BusinessTypeVariety int          `json:"business_type_variety"`
	BrandCount          int          `json:"brand_count"`
	Shops               int          `json:"shops"`
	FoodPlaces          int          `json:"food_places"`
	EssentialServices   int          `json:"essential_services"`
	HasPhone            int          `json:"has_phone"`
	HasHours            int          `json:"has_hours"`
	TopCategories       []string     `json:"top_categories,omitempty"`
	TopBrands           []string     `json:"top_brands,omitempty"`
	Score               float64      `json:"business_potential_score"`
	Formula             string       `json:"formula"`
	RadiusMeters        float64      `json:"radius_meters"`
	ComputedAt          time.Time    `json:"computed_at"`
}
