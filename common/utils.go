package common

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spaolacci/murmur3"
)

func Success(args ...interface{}) {
	if err, ok := args[len(args)-1].(error); ok && err != nil {
		panic(err)
	}
}

func Hash64(data []byte) uint64 {
	return murmur3.Sum64(data)
}

// ParseSize parses sizes like "16KiB", "1MB" or "4096" into bytes.
func ParseSize(size string) (int64, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(size))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size format: %s", size)
	}
	return int64(n), nil
}

// SplitPatterns splits a ':' separated CLI value into menu patterns. A value
// starting with "regexp:" is a single pattern and is kept whole.
func SplitPatterns(value string) []string {
	if strings.HasPrefix(value, RegexpPrefix) {
		return []string{value}
	}

	items := make([]string, 0)
	for _, item := range strings.Split(value, ":") {
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
