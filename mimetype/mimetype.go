// Package mimetype maps file extensions to MIME types for bundle entries.
//
// The table covers types commonly seen in static website trees, see
// https://developer.mozilla.org/en-US/docs/Web/HTTP/MIME_types/Common_types
// Extensions without an entry are treated as HTML by the pipeline.
package mimetype

import (
	"strings"

	"github.com/h2non/filetype"
)

// DefaultType is used for files with unknown extensions.
const DefaultType = "text/html"

var types = map[string]string{
	"bin":   "application/octet-stream",
	"bmp":   "image/bmp",
	"bz":    "application/x-bzip",
	"bz2":   "application/x-bzip2",
	"pdf":   "application/pdf",
	"css":   "text/css",
	"csv":   "text/csv",
	"doc":   "application/msword",
	"docx":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"eot":   "application/vnd.ms-fontobject",
	"epub":  "application/epub+zip",
	"gif":   "image/gif",
	"htm":   "text/html",
	"html":  "text/html",
	"ico":   "image/x-icon",
	"ics":   "text/calendar",
	"jar":   "application/java-archive",
	"js":    "application/javascript",
	"json":  "application/json",
	"mid":   "audio/midi",
	"midi":  "audio/midi",
	"mpeg":  "video/mpeg",
	"mp4":   "video/mp4",
	"odp":   "application/vnd.oasis.opendocument.presentation",
	"ods":   "application/vnd.oasis.opendocument.spreadsheet",
	"odt":   "application/vnd.oasis.opendocument.text",
	"otf":   "font/otf",
	"ppt":   "application/vnd.ms-powerpoint",
	"pptx":  "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"rar":   "application/x-rar-compressed",
	"scss":  "text/x-scss",
	"sh":    "application/x-sh",
	"svg":   "image/svg+xml",
	"png":   "image/png",
	"jpg":   "image/jpeg",
	"jpeg":  "image/jpeg",
	"tif":   "image/tiff",
	"txt":   "text/plain",
	"ts":    "application/typescript",
	"ttf":   "font/ttf",
	"wav":   "audio/x-wav",
	"webp":  "image/webp",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"xls":   "application/vnd.ms-excel",
	"xlsx":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"xml":   "application/xml",
	"zip":   "application/zip",
}

// Lookup returns MIME type registered for the extension (without leading
// dot, case does not matter).
func Lookup(ext string) (string, bool) {
	m, ok := types[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return m, ok
}

// Detect sniffs content bytes and returns MIME type and canonical extension.
// Used for diagnostics when a file has no registered extension.
func Detect(data []byte) (mime string, ext string, ok bool) {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "", "", false
	}
	return kind.MIME.Value, kind.Extension, true
}
