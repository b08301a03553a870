// Package avm generates synthetic Automated Valuation Model reports. Unlike
// form filling, AVM reports are built from an HTML template rendered to PDF,
// so the data is structured rather than keyed by form fields.
package avm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/daniel/formsynth/internal/generate"
	"github.com/daniel/formsynth/internal/oracle"
	"github.com/daniel/formsynth/internal/prompts"
)

const (
	dataMaxTokens   = 4000
	dataTemperature = 0.9
)

// ReportInfo identifies one generated report.
type ReportInfo struct {
	ReportID         string `json:"report_id" validate:"required"`
	ReportDate       string `json:"report_date" validate:"required"`
	EffectiveDate    string `json:"effective_date" validate:"required"`
	PreparedBy       string `json:"prepared_by" validate:"required"`
	ClientName       string `json:"client_name" validate:"required"`
	AppraiserLicense string `json:"appraiser_license"`
}

// Property describes the subject property.
type Property struct {
	Address      string  `json:"address" validate:"required"`
	City         string  `json:"city" validate:"required"`
	State        string  `json:"state" validate:"required"`
	ZipCode      string  `json:"zip_code" validate:"required"`
	APN          string  `json:"apn"`
	PropertyType string  `json:"property_type" validate:"required"`
	YearBuilt    int     `json:"year_built" validate:"gt=1800"`
	SquareFeet   int     `json:"square_feet" validate:"gt=0"`
	LotSize      string  `json:"lot_size"`
	Bedrooms     int     `json:"bedrooms" validate:"gte=0"`
	Bathrooms    float64 `json:"bathrooms" validate:"gte=0"`
	Garage       string  `json:"garage"`
	Pool         string  `json:"pool"`
	Condition    string  `json:"condition"`
	Occupancy    string  `json:"occupancy"`
}

// Valuation holds the estimate and its range.
type Valuation struct {
	EstimatedValue  int    `json:"estimated_value" validate:"gt=0"`
	ValueRangeLow   int    `json:"value_range_low" validate:"gt=0"`
	ValueRangeHigh  int    `json:"value_range_high" validate:"gt=0"`
	ConfidenceScore int    `json:"confidence_score" validate:"gte=0,lte=100"`
	PricePerSqFt    int    `json:"price_per_sqft" validate:"gt=0"`
	Methodology     string `json:"methodology"`
	DataSources     string `json:"data_sources"`
}

// MarketAnalysis holds local market indicators.
type MarketAnalysis struct {
	MedianPricePerSqFt int    `json:"median_price_per_sqft"`
	DaysOnMarketAvg    int    `json:"days_on_market_avg"`
	PriceTrend6M       string `json:"price_trend_6m" validate:"required"`
	InventoryLevel     string `json:"inventory_level"`
	MarketConditions   string `json:"market_conditions"`
	AbsorptionRate     string `json:"absorption_rate"`
}

// NeighborhoodInfo describes the area around the subject property.
type NeighborhoodInfo struct {
	SchoolDistrict   string   `json:"school_district"`
	SchoolRating     string   `json:"school_rating"`
	CrimeRate        string   `json:"crime_rate"`
	WalkabilityScore string   `json:"walkability_score"`
	NearbyAmenities  []string `json:"nearby_amenities"`
}

// Comparable is one comparable sale.
type Comparable struct {
	CompNumber    int     `json:"comp_number"`
	Address       string  `json:"address" validate:"required"`
	SaleDate      string  `json:"sale_date" validate:"required"`
	SalePrice     int     `json:"sale_price" validate:"gt=0"`
	SquareFeet    int     `json:"square_feet" validate:"gt=0"`
	Bedrooms      int     `json:"bedrooms"`
	Bathrooms     float64 `json:"bathrooms"`
	Distance      string  `json:"distance"`
	AdjustedPrice int     `json:"adjusted_price" validate:"gt=0"`
}

// Report is one complete AVM report document.
type Report struct {
	ReportInfo       ReportInfo       `json:"report_info" validate:"required"`
	Property         Property         `json:"property" validate:"required"`
	Valuation        Valuation        `json:"valuation" validate:"required"`
	MarketAnalysis   MarketAnalysis   `json:"market_analysis" validate:"required"`
	NeighborhoodInfo NeighborhoodInfo `json:"neighborhood_info"`
	Comparables      []Comparable     `json:"comparables" validate:"min=1,dive"`
	RiskFactors      []string         `json:"risk_factors"`
	Disclaimers      []string         `json:"disclaimers"`
}

// TrendClass maps the signed six-month trend to the CSS class the template
// styles it with.
func (r *Report) TrendClass() string {
	if strings.Contains(r.MarketAnalysis.PriceTrend6M, "+") {
		return "trend-positive"
	}
	return "trend-negative"
}

var structValidator = validator.New()

// GenerateData asks the model for one complete AVM report and validates the
// structured response before it is trusted.
func GenerateData(ctx context.Context, client oracle.Client) (*Report, error) {
	seed := generate.RandomSeed()
	user := prompts.MustGet("avm.json", "data-generation") +
		"\n\n### VARIABILITY\nRandomization seed: " + strconv.Itoa(seed)

	resp, err := client.Complete(ctx, oracle.Request{
		System:      prompts.MustGet("avm.json", "data-generation-system"),
		Prompt:      user,
		JSONMode:    true,
		Temperature: dataTemperature,
		MaxTokens:   dataMaxTokens,
		Tier:        oracle.TierLite,
	})
	if err != nil {
		return nil, fmt.Errorf("AVM data generation failed: %w", err)
	}

	var report Report
	if err := json.Unmarshal([]byte(resp.Text), &report); err != nil {
		return nil, fmt.Errorf("AVM response is not valid JSON: %w", err)
	}
	if err := structValidator.Struct(&report); err != nil {
		return nil, fmt.Errorf("AVM response failed validation: %w", err)
	}
	return &report, nil
}
