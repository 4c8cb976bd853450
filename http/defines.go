package http

// Headers
const (
	HeaderRange          = "Range"
	HeaderContentRange   = "Content-Range"
	HeaderAcceptRanges   = "Accept-Ranges"
	HeaderServedBy       = "Served-By"
	HeaderCafeVersion    = "Cafe-Version"
	HeaderFailureReason  = "Cafe-Failure-Reason"
	MultipartContentType = "multipart/byteranges; boundary="
)

// Routes
const (
	StaffRoute = "/_cafe_/"
	IndexFile  = "index.html"
)

// Bodies
const (
	bodyStaff      = "Hello from staff!"
	bodyNotOnMenu  = "It seems the item you ordered is not on the menu."
	bodyBadRange   = "Sorry. The chef doesn't know how to make that."
	bodyInDisarray = "Umm... It seems the café is in disarray at the moment."
)

var crlf = []byte("\r\n")
