// Package sourcefmt decodes the public source streams (day-ahead prices,
// generation, cross-border flows, weather reanalysis, FX rates, and
// parliamentary documents/speeches) into typed in-memory records.
//
// These are the only shapes this pipeline ever sees: fetching them over
// HTTP, with retries and backoff, is an external collaborator's job.
// Everything here is pure decoding from already-fetched bytes.
package sourcefmt

import (
	"encoding/json"
	"fmt"
	"time"
)

// Resolution is the native step size of a source stream.
type Resolution string

const (
	ResolutionPT60M Resolution = "PT60M"
	ResolutionPT15M Resolution = "PT15M"
)

// StepsPerHour returns how many points of this resolution make up an hour.
func (r Resolution) StepsPerHour() int {
	if r == ResolutionPT15M {
		return 4
	}

	return 1
}

// Point is a single position/value pair in a source series. Position is
// 1-based, per the §6 source contract.
type Point struct {
	Position int     `json:"position"`
	Value    float64 `json:"value"`
}

// DayAheadSeries decodes an A44 day-ahead price record.
type DayAheadSeries struct {
	ZoneCode    string     `json:"zone_code"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	Resolution  Resolution `json:"resolution"`
	Prices      []Point    `json:"prices"`
}

// DecodeDayAheadPrices decodes a day-ahead price payload.
func DecodeDayAheadPrices(data []byte) (*DayAheadSeries, error) {
	var series struct {
		ZoneCode    string     `json:"zone_code"`
		PeriodStart time.Time  `json:"period_start"`
		PeriodEnd   time.Time  `json:"period_end"`
		Resolution  Resolution `json:"resolution"`
		Prices      []struct {
			Position int     `json:"position"`
			Price    float64 `json:"price_eur_mwh"`
		} `json:"prices"`
	}

	if err := json.Unmarshal(data, &series); err != nil {
		return nil, fmt.Errorf("decode day-ahead prices: %w", err)
	}

	out := &DayAheadSeries{
		ZoneCode:    series.ZoneCode,
		PeriodStart: series.PeriodStart.UTC(),
		PeriodEnd:   series.PeriodEnd.UTC(),
		Resolution:  series.Resolution,
	}
	for _, p := range series.Prices {
		out.Prices = append(out.Prices, Point{Position: p.Position, Value: p.Price})
	}

	return out, nil
}

// GenerationSeries decodes an A75 generation-per-type record. PSRType is
// the `B01`..`B20` fuel-class code. InDomain is false for series that
// carry only an out-domain mRID (consumption/pumping legs), which must be
// excluded from production accounting.
type GenerationSeries struct {
	ZoneCode    string     `json:"zone_code"`
	PSRType     string     `json:"psr_type"`
	InDomain    bool       `json:"-"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	Resolution  Resolution `json:"resolution"`
	Values      []Point    `json:"values"`
}

// DecodeGeneration decodes a generation-per-type payload. A series is
// in-domain unless the payload sets out_domain_only; in_domain_mrid is
// decoded but not consulted.
func DecodeGeneration(data []byte) (*GenerationSeries, error) {
	var series struct {
		ZoneCode     string     `json:"zone_code"`
		PSRType      string     `json:"psr_type"`
		InDomainMRID string     `json:"in_domain_mrid"`
		OutDomainOnly bool      `json:"out_domain_only"`
		PeriodStart  time.Time  `json:"period_start"`
		PeriodEnd    time.Time  `json:"period_end"`
		Resolution   Resolution `json:"resolution"`
		Values       []struct {
			Position int     `json:"position"`
			MW       float64 `json:"mw"`
		} `json:"values"`
	}

	if err := json.Unmarshal(data, &series); err != nil {
		return nil, fmt.Errorf("decode generation: %w", err)
	}

	out := &GenerationSeries{
		ZoneCode:    series.ZoneCode,
		PSRType:     series.PSRType,
		InDomain:    !series.OutDomainOnly,
		PeriodStart: series.PeriodStart.UTC(),
		PeriodEnd:   series.PeriodEnd.UTC(),
		Resolution:  series.Resolution,
	}
	for _, v := range series.Values {
		out.Values = append(out.Values, Point{Position: v.Position, Value: v.MW})
	}

	return out, nil
}

// FlowDirection is the direction of a cross-border flow leg relative to
// the pair's stated (in_zone, out_zone) ordering.
type FlowDirection string

const (
	FlowInbound  FlowDirection = "inbound"
	FlowOutbound FlowDirection = "outbound"
)

// FlowSeries decodes an A11 cross-border flow record for one leg of one
// interconnection. Month-boundary membership for a leg is decided by its
// own decoded PeriodStart/PeriodEnd, not by the calendar month of the
// zone being built, since legs never get reshaped to fit a boundary.
type FlowSeries struct {
	InZone      string        `json:"in_zone"`
	OutZone     string        `json:"out_zone"`
	Direction   FlowDirection `json:"direction"`
	PeriodStart time.Time     `json:"period_start"`
	PeriodEnd   time.Time     `json:"period_end"`
	Resolution  Resolution    `json:"resolution"`
	Points      []Point       `json:"points"`
}

// DecodeFlow decodes a cross-border flow payload.
func DecodeFlow(data []byte) (*FlowSeries, error) {
	var series struct {
		InZone      string        `json:"in_zone"`
		OutZone     string        `json:"out_zone"`
		Direction   FlowDirection `json:"direction"`
		PeriodStart time.Time     `json:"period_start"`
		PeriodEnd   time.Time     `json:"period_end"`
		Resolution  Resolution    `json:"resolution"`
		Points      []struct {
			Position int     `json:"position"`
			MW       float64 `json:"mw"`
		} `json:"points"`
	}

	if err := json.Unmarshal(data, &series); err != nil {
		return nil, fmt.Errorf("decode flow: %w", err)
	}

	out := &FlowSeries{
		InZone:      series.InZone,
		OutZone:     series.OutZone,
		Direction:   series.Direction,
		PeriodStart: series.PeriodStart.UTC(),
		PeriodEnd:   series.PeriodEnd.UTC(),
		Resolution:  series.Resolution,
	}
	for _, p := range series.Points {
		out.Points = append(out.Points, Point{Position: p.Position, Value: p.MW})
	}

	return out, nil
}

// WeatherHour is one hourly ERA5 reanalysis reading for a zone.
type WeatherHour struct {
	TS    time.Time `json:"ts"`
	Temp  *float64  `json:"temp"`
	Wind  *float64  `json:"wind"`
	Solar *float64  `json:"solar"`
}

// WeatherYear decodes a zone's full year of hourly weather.
type WeatherYear struct {
	ZoneCode string        `json:"zone_code"`
	Year     int           `json:"year"`
	Hours    []WeatherHour `json:"hours"`
}

// DecodeWeatherYear decodes a per-zone per-year weather payload.
func DecodeWeatherYear(data []byte) (*WeatherYear, error) {
	var wy WeatherYear
	if err := json.Unmarshal(data, &wy); err != nil {
		return nil, fmt.Errorf("decode weather year: %w", err)
	}

	for i := range wy.Hours {
		wy.Hours[i].TS = wy.Hours[i].TS.UTC()
	}

	return &wy, nil
}

// FXTable decodes the locked monthly EUR/SEK map, keyed "YYYY-MM".
type FXTable map[string]float64

// DecodeFXTable decodes the FX payload.
func DecodeFXTable(data []byte) (FXTable, error) {
	var table FXTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode fx table: %w", err)
	}

	return table, nil
}

// ParliamentDocument is a decoded parliamentary document record, the input
// to the topic classifier.
type ParliamentDocument struct {
	DocumentID          string   `json:"document_id"`
	Title                string   `json:"title"`
	ResponsibleCommittee string   `json:"responsible_committee"`
	ExpenditureArea      string   `json:"expenditure_area"`
	SearchOrigin         bool     `json:"search_origin"`
	Keywords             []string `json:"keywords"`
}

// DecodeParliamentDocument decodes a single document record.
func DecodeParliamentDocument(data []byte) (*ParliamentDocument, error) {
	var doc ParliamentDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode parliament document: %w", err)
	}

	return &doc, nil
}

// Speech is a decoded parliamentary speech/statement record, the input to
// the statement-to-decision linker.
type Speech struct {
	StatementID    string   `json:"statement_id"`
	Text           string   `json:"text"`
	ReferencedDocs []string `json:"referenced_docs"`
}

// DecodeSpeech decodes a single speech record.
func DecodeSpeech(data []byte) (*Speech, error) {
	var s Speech
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode speech: %w", err)
	}

	return &s, nil
}
