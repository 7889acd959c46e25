package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"sync"

	"github.com/afrinbhuiyan/sales-dashboard/internal/dashboard"
)

// Version is reported by /version and appended to asset URLs. Set with -ldflags.
var Version = "dev"

//go:embed templates static
var embedded embed.FS

// TemplateSet holds all parsed page templates
// Each page is stored as a completely separate template.Template
// to avoid {{define "content"}} block collisions
type TemplateSet struct {
	pages map[string]*template.Template
	mu    sync.RWMutex
}

// Execute renders the "base" layout using the blocks defined by pageName
func (ts *TemplateSet) Execute(w io.Writer, pageName string, data interface{}) error {
	ts.mu.RLock()
	tmpl, ok := ts.pages[pageName]
	ts.mu.RUnlock()

	if !ok {
		return fmt.Errorf("template %q not found", pageName)
	}

	return tmpl.ExecuteTemplate(w, "base", data)
}

// ExecuteTemplate executes a named template (like "sales-table") from a specific page's template set
func (ts *TemplateSet) ExecuteTemplate(w io.Writer, pageName string, templateName string, data interface{}) error {
	ts.mu.RLock()
	tmpl, ok := ts.pages[pageName]
	ts.mu.RUnlock()

	if !ok {
		return fmt.Errorf("page template %q not found", pageName)
	}

	return tmpl.ExecuteTemplate(w, templateName, data)
}

// Has checks if a template exists
func (ts *TemplateSet) Has(pageName string) bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	_, ok := ts.pages[pageName]
	return ok
}

// Names returns all available template names, sorted
func (ts *TemplateSet) Names() []string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	names := make([]string, 0, len(ts.pages))
	for name := range ts.pages {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Funcs are the helpers available to every template
func Funcs() template.FuncMap {
	return template.FuncMap{
		"renderMarkdown": Markdown,
		"formatMoney":    dashboard.FormatMoney,
		"formatDate":     dashboard.FormatSaleDate,
		"formatPrice":    dashboard.FormatPrice,
		// barPercent is the bar width in percent of the peak day, at least 1
		"barPercent": func(v, peak float64) int {
			if peak <= 0 || v <= 0 {
				return 0
			}
			return max(1, int(v/peak*100+0.5))
		},
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"assetURL": func(filename string) string {
			return "/static/" + Version + "/" + filename
		},
	}
}

// Static returns the stylesheets and other assets compiled into the binary
func Static() fs.FS {
	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// LoadTemplates parses the templates compiled into the binary
func LoadTemplates() (*TemplateSet, error) {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	return LoadTemplatesFS(sub)
}

// LoadTemplatesFS parses layouts/base.html, components/*.html and pages/*.html
// from fsys. Each page is parsed together with the base and components only.
func LoadTemplatesFS(fsys fs.FS) (*TemplateSet, error) {
	componentFiles, err := fs.Glob(fsys, "components/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list component templates: %w", err)
	}

	pageFiles, err := fs.Glob(fsys, "pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list page templates: %w", err)
	}

	if len(pageFiles) == 0 {
		return nil, fmt.Errorf("no page templates found in pages/")
	}

	ts := &TemplateSet{
		pages: make(map[string]*template.Template),
	}

	funcMap := Funcs()
	for _, pageFile := range pageFiles {
		pageName := path.Base(pageFile)

		filesToParse := []string{"layouts/base.html"}
		filesToParse = append(filesToParse, componentFiles...)
		filesToParse = append(filesToParse, pageFile)

		pageTemplate, err := template.New("base").Funcs(funcMap).ParseFS(fsys, filesToParse...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", pageName, err)
		}

		ts.pages[pageName] = pageTemplate
	}

	return ts, nil
}

// LogTemplateNames logs all available template names
func LogTemplateNames(ts *TemplateSet, log *slog.Logger) {
	log.Debug("loaded templates", slog.Any("names", ts.Names()))
}
