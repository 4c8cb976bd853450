package ranges

import (
	"regexp"
	"strconv"
	"strings"
)

const unitPrefix = "bytes="

var (
	boundedSpec = regexp.MustCompile(`^(\d+)-(\d*)$`)
	suffixSpec  = regexp.MustCompile(`^-(\d+)$`)
	specSplit   = regexp.MustCompile(`,\s*`)
)

// Parse resolves a Range header value against a resource of size bytes.
// An empty header yields the whole resource. ok is false when any spec is
// malformed or out of bounds; ranges keep header order and are not merged.
func Parse(header string, size int64) (set Set, ok bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Whole(size), true
	}

	if !strings.HasPrefix(header, unitPrefix) {
		return nil, false
	}

	specs := specSplit.Split(header[len(unitPrefix):], -1)
	set = make(Set, 0, len(specs))
	for _, spec := range specs {
		r, ok := parseSpec(strings.TrimSpace(spec), size)
		if !ok {
			return nil, false
		}
		set = append(set, r)
	}
	return set, true
}

func parseSpec(spec string, size int64) (ByteRange, bool) {
	if m := boundedSpec.FindStringSubmatch(spec); m != nil {
		start, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return ByteRange{}, false
		}

		end := size - 1
		if m[2] != "" {
			if end, err = strconv.ParseInt(m[2], 10, 64); err != nil {
				return ByteRange{}, false
			}
		}

		if start > end || start < 0 || end < 0 {
			return ByteRange{}, false
		}
		if start > size-1 || end > size-1 {
			return ByteRange{}, false
		}
		return ByteRange{Start: start, Length: end - start + 1}, true
	}

	if m := suffixSpec.FindStringSubmatch(spec); m != nil {
		lastN, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || lastN == 0 {
			return ByteRange{}, false
		}

		start := size - lastN
		if start < 0 {
			return ByteRange{}, false
		}
		// size - start == lastN
		return ByteRange{Start: start, Length: size - start}, true
	}

	return ByteRange{}, false
}
