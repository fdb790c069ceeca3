package convert

import (
	"sort"
	"sync"
)

// Diagnostics accumulates non-fatal findings across the whole run. All
// methods are safe for concurrent use, file processing may be parallelized.
type Diagnostics struct {
	mu sync.Mutex

	missingIndex []string
	missingSeen  map[string]bool
	unknownExt   map[string][]string
	errors       []string
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{
		missingSeen: make(map[string]bool),
		unknownExt:  make(map[string][]string),
	}
}

// MissingIndex records a missing-index warning, deduplicated by exact message.
func (d *Diagnostics) MissingIndex(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.missingSeen[msg] {
		return
	}
	d.missingSeen[msg] = true
	d.missingIndex = append(d.missingIndex, msg)
}

// UnknownExtension records a file whose extension has no MIME table entry.
func (d *Diagnostics) UnknownExtension(ext, file string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unknownExt[ext] = append(d.unknownExt[ext], file)
}

// Error records a per-file processing failure that did not abort the run.
func (d *Diagnostics) Error(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors = append(d.errors, msg)
}

// MissingIndexWarnings returns recorded warnings in first-seen order.
func (d *Diagnostics) MissingIndexWarnings() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.missingIndex))
	copy(out, d.missingIndex)
	return out
}

// UnknownExtensions returns the extension list sorted for stable output.
func (d *Diagnostics) UnknownExtensions() map[string][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string][]string, len(d.unknownExt))
	for ext, files := range d.unknownExt {
		cp := make([]string, len(files))
		copy(cp, files)
		sort.Strings(cp)
		out[ext] = cp
	}
	return out
}

// Errors returns recorded per-file errors.
func (d *Diagnostics) Errors() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.errors))
	copy(out, d.errors)
	return out
}
