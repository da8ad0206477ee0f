package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crimemap/internal/state"
)

//go:embed templates/index.html
var templates embed.FS

var pageTemplate = template.Must(template.New("index.html").ParseFS(templates, "templates/index.html"))

// PageOptions carries the page chrome and the URLs the page links to.
type PageOptions struct {
	Title         string
	BoundariesURL string
	ExportPath    string
}

// DefaultPageOptions returns the options the server uses.
func DefaultPageOptions() PageOptions {
	return PageOptions{
		Title:         "Carte de la criminalité par département",
		BoundariesURL: "/api/boundaries",
		ExportPath:    "/export/table",
	}
}

type pageData struct {
	Title         string
	View          state.View
	Table         Table
	Rows          [][]string
	Legend        Legend
	Choropleth    Choropleth
	ScaleStyles   []template.CSS
	MapJSON       template.JS
	BoundariesURL string
	CSVURL        string
	XLSXURL       string
}

// SelectionQuery encodes a resolved selection as URL query parameters.
func SelectionQuery(v state.View) url.Values {
	q := url.Values{}
	q.Set("department", v.Selection.Department)
	q.Set("indicator", v.Selection.Indicator)
	q.Set("unit", v.Selection.Unit)
	return q
}

// Page renders the full HTML page for a view.
func Page(view state.View, m *Map, table Table, opts PageOptions) ([]byte, error) {
	if m == nil {
		return nil, eris.New("render: page needs a map")
	}
	d := DefaultPageOptions()
	if opts.Title == "" {
		opts.Title = d.Title
	}
	if opts.BoundariesURL == "" {
		opts.BoundariesURL = d.BoundariesURL
	}
	if opts.ExportPath == "" {
		opts.ExportPath = d.ExportPath
	}

	mapJSON, err := marshalTemplateJS(m)
	if err != nil {
		return nil, eris.Wrap(err, "render: marshal map")
	}

	query := SelectionQuery(view).Encode()
	data := pageData{
		Title:         opts.Title,
		View:          view,
		Table:         table,
		Rows:          table.Rows(),
		Legend:        m.Legend,
		Choropleth:    m.Choropleth,
		ScaleStyles:   scaleStyles(m.Choropleth.Colors),
		MapJSON:       mapJSON,
		BoundariesURL: opts.BoundariesURL,
		CSVURL:        opts.ExportPath + ".csv?" + query,
		XLSXURL:       opts.ExportPath + ".xlsx?" + query,
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, eris.Wrap(err, "render: execute page template")
	}
	return buf.Bytes(), nil
}

// scaleStyles returns inline styles for the palette swatches. Palette colors
// are compile-time hex constants.
func scaleStyles(colors []string) []template.CSS {
	styles := make([]template.CSS, 0, len(colors))
	for _, c := range colors {
		styles = append(styles, template.CSS("background: "+c)) //nolint:gosec
	}
	return styles
}

// marshalTemplateJS encodes a value as JSON for embedding in a script block.
func marshalTemplateJS(value any) (template.JS, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return template.JS(""), err
	}
	return template.JS(payload), nil
}
