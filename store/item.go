package store

import (
	"io/fs"
	"mime"
	"path/filepath"
	"strings"
	"time"
)

const DefaultMime = "application/octet-stream"

// fallbackMime covers common static types missing from the builtin table
// when the host has no mime.types file.
var fallbackMime = map[string]string{
	".txt":   "text/plain; charset=utf-8",
	".md":    "text/markdown; charset=utf-8",
	".csv":   "text/csv; charset=utf-8",
	".ico":   "image/x-icon",
	".mp3":   "audio/mpeg",
	".mp4":   "video/mp4",
	".webm":  "video/webm",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".zip":   "application/zip",
}

// Item describes a servable resource at the time it was stated.
type Item struct {
	Path    string
	Size    int64
	Mime    string
	ModTime time.Time
}

func NewItem(path string, info fs.FileInfo) *Item {
	return &Item{
		Path:    path,
		Size:    info.Size(),
		Mime:    MimeOf(path),
		ModTime: info.ModTime(),
	}
}

// MimeOf looks the content type up by file extension.
func MimeOf(path string) string {
	ext := filepath.Ext(path)
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	if t, ok := fallbackMime[strings.ToLower(ext)]; ok {
		return t
	}
	return DefaultMime
}
