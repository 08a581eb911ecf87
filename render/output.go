package render

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"

	"github.com/vsariola/scrawl"
)

const DefaultOutputTemplate = "{{.Name}}-{{.Height}}p{{.FPS}}.mp4"

// OutputInfo is the data available in output path templates.
type OutputInfo struct {
	Name          string // input file name without extension
	Dir           string // input directory
	Width, Height int
	FPS           int
	Duration      scrawl.Time
	Date          time.Time
}

// OutputPath renders the output file name template. The template has the
// sprig functions available, e.g.
//
//	{{.Name | lower}}-{{.Date | date "2006-01-02"}}.mp4
//
// A relative result is placed next to the input.
func OutputPath(tmpl string, info OutputInfo) (string, error) {
	if tmpl == "" {
		tmpl = DefaultOutputTemplate
	}
	t, err := template.New("output").Funcs(sprig.TxtFuncMap()).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("could not parse output template: %w", err)
	}
	var b strings.Builder
	if err := t.Execute(&b, info); err != nil {
		return "", fmt.Errorf("could not execute output template: %w", err)
	}
	p := strings.TrimSpace(b.String())
	if p == "" {
		return "", fmt.Errorf("output template %q produced an empty path", tmpl)
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(info.Dir, p)
	}
	return p, nil
}

// InfoFor fills the OutputInfo for exporting the file at path.
func InfoFor(path string, d *Driver, width, height int) OutputInfo {
	base := filepath.Base(path)
	return OutputInfo{
		Name:     strings.TrimSuffix(base, filepath.Ext(base)),
		Dir:      filepath.Dir(path),
		Width:    width,
		Height:   height,
		FPS:      d.FPS(),
		Duration: d.src.Duration(),
		Date:     time.Now(),
	}
}
