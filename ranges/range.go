package ranges

import "fmt"

// ByteRange is a window of Length bytes starting at Start.
type ByteRange struct {
	// Start is the offset of the first byte (starting at 0).
	Start int64

	// Length is the number of bytes in the window.
	Length int64
}

// End is the offset of the last byte in the window.
func (r ByteRange) End() int64 {
	return r.Start + r.Length - 1
}

// ContentRange formats the Content-Range header value for a resource of size bytes.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End(), size)
}

func (r ByteRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End())
}

// Set is the ordered list of ranges requested for one resource. It always
// holds at least one range and is not modified after Parse returns it.
type Set []ByteRange

// Whole returns the set covering a resource of size bytes.
func Whole(size int64) Set {
	return Set{{Start: 0, Length: size}}
}

// Total is the sum of all range lengths.
func (s Set) Total() int64 {
	var total int64
	for _, r := range s {
		total += r.Length
	}
	return total
}

// Unsatisfiable formats the Content-Range value sent with a 416 response.
func Unsatisfiable(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}
