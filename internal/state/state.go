// Package state holds the crime map selection and derives what to render from it.
//
// Apply and Resolve are pure: the same inputs always give the same output, so
// every render path can be tested without a browser or a server.
package state

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crimemap/internal/geo"
	"github.com/sells-group/crimemap/internal/model"
)

// EventKind names the control that triggered a recomputation.
type EventKind string

const (
	EventNone       EventKind = ""
	EventDepartment EventKind = "department"
	EventIndicator  EventKind = "indicator"
	EventUnit       EventKind = "unit"
)

// ParseEventKind maps a form value to an EventKind; unknown values are EventNone.
func ParseEventKind(s string) EventKind {
	switch k := EventKind(s); k {
	case EventDepartment, EventIndicator, EventUnit:
		return k
	default:
		return EventNone
	}
}

// Event is a single control change.
type Event struct {
	Kind  EventKind
	Value string
}

// Apply returns the selection after ev. Changing department clears the
// indicator and unit filters.
func Apply(sel model.Selection, ev Event) model.Selection {
	switch ev.Kind {
	case EventDepartment:
		return model.Selection{Department: ev.Value}
	case EventIndicator:
		sel.Indicator = ev.Value
	case EventUnit:
		sel.Unit = ev.Value
	}
	return sel
}

// Records is the dataset surface Resolve reads.
type Records interface {
	ForDepartment(code string) []model.CrimeRecord
	Filter(code, indicator, unit string) []model.CrimeRecord
	Indicators(code string) []string
	Units(code string) []string
}

// Boundaries is the boundary index surface Resolve reads.
type Boundaries interface {
	Labels() []string
	Name(code string) string
	Position(code string) (model.LatLon, error)
}

// View is everything the map and table renderers need for one selection.
type View struct {
	Selection   model.Selection     `json:"selection"`
	Code        string              `json:"code"`
	Name        string              `json:"name"`
	Center      model.LatLon        `json:"center"`
	Departments []string            `json:"departments"`
	Indicators  []string            `json:"indicators"`
	Units       []string            `json:"units"`
	Records     []model.CrimeRecord `json:"records"`
	Table       []model.CrimeRecord `json:"table"`
}

// Resolve derives the view for sel:
//   - an empty department resolves to the first indexed label;
//   - a bare code or a label with an indexed code resolves to that code's label;
//   - an indicator or unit missing from the department's options resolves to
//     the first option, or "" when the department has no records.
//
// A department whose code is not indexed fails with an error matching geo.ErrLookup.
func Resolve(ds Records, idx Boundaries, sel model.Selection) (View, error) {
	labels := idx.Labels()
	if len(labels) == 0 {
		return View{}, eris.New("state: boundary index is empty")
	}

	label, err := resolveDepartment(idx, labels, sel.Department)
	if err != nil {
		return View{}, err
	}
	code := geo.CodeFromLabel(label)

	center, err := idx.Position(code)
	if err != nil {
		return View{}, eris.Wrapf(err, "state: resolve department %s", code)
	}

	indicators := ds.Indicators(code)
	units := ds.Units(code)

	resolved := model.Selection{
		Department: label,
		Indicator:  pick(indicators, sel.Indicator),
		Unit:       pick(units, sel.Unit),
	}

	return View{
		Selection:   resolved,
		Code:        code,
		Name:        idx.Name(code),
		Center:      center,
		Departments: labels,
		Indicators:  indicators,
		Units:       units,
		Records:     ds.ForDepartment(code),
		Table:       ds.Filter(code, resolved.Indicator, resolved.Unit),
	}, nil
}

func resolveDepartment(idx Boundaries, labels []string, department string) (string, error) {
	if department == "" {
		return labels[0], nil
	}
	if slices.Contains(labels, department) {
		return department, nil
	}

	code := geo.CodeFromLabel(department)
	if name := idx.Name(code); name != "" {
		return code + "-" + name, nil
	}
	return "", eris.Wrap(&geo.LookupError{Code: code}, "state: resolve department")
}

func pick(options []string, want string) string {
	if slices.Contains(options, want) {
		return want
	}
	if len(options) == 0 {
		return ""
	}
	return options[0]
}
