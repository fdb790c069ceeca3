package convert

import (
	"path/filepath"

	"github.com/gosimple/slug"

	"s2z/config"
	"s2z/state"
)

const bundleExt = ".wzb"

// buildOutputPath derives the bundle file name from the site root directory
// name, optionally transliterated, always cleaned up for the target OS.
func buildOutputPath(root, dst string, env *state.LocalEnv) string {
	baseName := filepath.Base(filepath.Clean(root))
	if env.Cfg.Bundle.FileNameTransliterate {
		baseName = slug.Make(baseName)
	}
	return filepath.Join(dst, config.CleanFileName(baseName)+bundleExt)
}
