// Package render turns a resolved selection into the map model, the filtered
// table and the HTML page that draws them.
package render

import (
	"fmt"

	"github.com/sells-group/crimemap/internal/geo"
	"github.com/sells-group/crimemap/internal/model"
	"github.com/sells-group/crimemap/internal/state"
)

// Defaults for MapOptions.
const (
	DefaultZoomStart    = 5
	DefaultMarkerRadius = 10
	DefaultTileURL      = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution  = "&copy; OpenStreetMap contributors"
)

// MapOptions configures the base map and its layers.
type MapOptions struct {
	ZoomStart    int
	ZoomControl  bool
	TileURL      string
	Attribution  string
	MarkerRadius int
	Choropleth   ChoroplethOptions
}

// DefaultMapOptions returns the options used when nothing is configured.
func DefaultMapOptions() MapOptions {
	return MapOptions{
		ZoomStart:    DefaultZoomStart,
		TileURL:      DefaultTileURL,
		Attribution:  DefaultAttribution,
		MarkerRadius: DefaultMarkerRadius,
		Choropleth:   ChoroplethOptions{Aggregation: AggregateLast, Bins: DefaultBins},
	}
}

func (o MapOptions) withDefaults() MapOptions {
	d := DefaultMapOptions()
	if o.ZoomStart == 0 {
		o.ZoomStart = d.ZoomStart
	}
	if o.TileURL == "" {
		o.TileURL = d.TileURL
	}
	if o.Attribution == "" {
		o.Attribution = d.Attribution
	}
	if o.MarkerRadius == 0 {
		o.MarkerRadius = d.MarkerRadius
	}
	return o
}

// Marker is a filled circle at a department centroid, one per record.
type Marker struct {
	Lat       float64        `json:"lat"`
	Lon       float64        `json:"lon"`
	Radius    int            `json:"radius"`
	Color     string         `json:"color"`
	Fill      bool           `json:"fill"`
	FillColor string         `json:"fill_color"`
	Severity  model.Severity `json:"severity"`
	Popup     []string       `json:"popup"`
}

// Legend is the severity key drawn over the map.
type Legend struct {
	Title    string           `json:"title"`
	Position string           `json:"position"`
	Items    []geo.LegendItem `json:"items"`
}

// BuildLegend returns the fixed bottom-left severity legend.
func BuildLegend() Legend {
	return Legend{
		Title:    "Taux pour mille",
		Position: "bottomleft",
		Items:    geo.LegendItems(),
	}
}

// Map is the complete, serializable map model for one view.
type Map struct {
	Center      model.LatLon `json:"center"`
	Zoom        int          `json:"zoom"`
	ZoomControl bool         `json:"zoom_control"`
	TileURL     string       `json:"tile_url"`
	Attribution string       `json:"attribution"`
	Markers     []Marker     `json:"markers"`
	Choropleth  Choropleth   `json:"choropleth"`
	Legend      Legend       `json:"legend"`
}

// AllRecords is the dataset surface the choropleth reads.
type AllRecords interface {
	Records() []model.CrimeRecord
}

// Regions is the boundary index surface the choropleth reads.
type Regions interface {
	Codes() []string
}

// BuildMap centers the map on the selected department, adds one marker per
// record of that department and colors every department by its aggregated rate.
func BuildMap(view state.View, ds AllRecords, idx Regions, opts MapOptions) (*Map, error) {
	opts = opts.withDefaults()

	choropleth, err := BuildChoropleth(ds.Records(), idx.Codes(), opts.Choropleth)
	if err != nil {
		return nil, err
	}

	markers := make([]Marker, 0, len(view.Records))
	for _, r := range view.Records {
		markers = append(markers, NewMarker(view, r, opts.MarkerRadius))
	}

	return &Map{
		Center:      view.Center,
		Zoom:        opts.ZoomStart,
		ZoomControl: opts.ZoomControl,
		TileURL:     opts.TileURL,
		Attribution: opts.Attribution,
		Markers:     markers,
		Choropleth:  choropleth,
		Legend:      BuildLegend(),
	}, nil
}

// NewMarker builds the marker of a single record at the view's centroid.
func NewMarker(view state.View, r model.CrimeRecord, radius int) Marker {
	sev := geo.Classify(r.RatePerThousand)
	color := geo.MarkerColor(sev)
	return Marker{
		Lat:       view.Center.Lat,
		Lon:       view.Center.Lon,
		Radius:    radius,
		Color:     color,
		Fill:      true,
		FillColor: color,
		Severity:  sev,
		Popup:     PopupLines(view.Selection.Department, r),
	}
}

// PopupLines returns the marker popup text, one line per field.
func PopupLines(label string, r model.CrimeRecord) []string {
	return []string{
		"Département: " + label,
		"Taux pour mille: " + r.RateString(),
		"Indicateur: " + r.Indicator,
		"Unité de compte: " + r.UnitOfCount,
		fmt.Sprintf("Nombre de crimes: %d", r.Count),
		"Année: " + r.Year,
	}
}
