package convert

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	"go.uber.org/zap"

	"s2z/misc"
)

//go:embed report.html.tmpl
var reportTemplate string

type reportExtension struct {
	Ext   string
	Files []string
}

// reportValues holds everything the report template can reference.
type reportValues struct {
	App       string
	Version   string
	Source    string
	Output    string
	Generated string
	Elapsed   string

	Files     int
	Documents int
	External  int
	Optimized int
	Saved     int64

	Removed      []string
	MissingIndex []string
	Errors       []string
	UnknownExts  []reportExtension
}

// writeReport renders the conversion summary next to the bundle.
func writeReport(outputName, root string, removed []string, diag *Diagnostics, stats *processStats, elapsed time.Duration, log *zap.Logger) error {
	tmpl, err := template.New("report").Funcs(template.FuncMap(sprig.FuncMap())).Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("unable to parse report template: %w", err)
	}

	var exts []reportExtension
	for ext, files := range diag.UnknownExtensions() {
		exts = append(exts, reportExtension{Ext: ext, Files: files})
	}
	sort.Slice(exts, func(i, j int) bool { return exts[i].Ext < exts[j].Ext })

	values := reportValues{
		App:          misc.GetAppName(),
		Version:      misc.GetVersion(),
		Source:       root,
		Output:       outputName,
		Generated:    time.Now().Format(time.RFC1123),
		Elapsed:      elapsed.Round(time.Millisecond).String(),
		Files:        stats.files,
		Documents:    stats.documents,
		External:     stats.external,
		Optimized:    stats.optimized,
		Saved:        stats.saved,
		Removed:      removed,
		MissingIndex: diag.MissingIndexWarnings(),
		Errors:       diag.Errors(),
		UnknownExts:  exts,
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return fmt.Errorf("unable to render report: %w", err)
	}

	name := strings.TrimSuffix(outputName, filepath.Ext(outputName)) + "-report.html"
	if err := os.WriteFile(name, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("unable to save report: %w", err)
	}
	log.Info("Conversion report written", zap.String("file", name))
	return nil
}
