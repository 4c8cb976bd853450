package http

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"cafe/common"
)

const content = "Hello Cafe World"

// newFixture lays out <tmp>/secret.txt next to the served <tmp>/base.
func newFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	base := filepath.Join(root, "base")

	files := map[string]string{
		"secret.txt":           "top secret",
		"base/test.txt":        content,
		"base/data.json":       `{"cafe":true}`,
		"base/docs/index.html": "<h1>docs</h1>",
		"base/empty.txt":       "",
	}
	for name, data := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(base, "bare"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(base, "nested", "index.html"), 0755); err != nil {
		t.Fatal(err)
	}
	return base
}

func newServer(t *testing.T, mutate func(*common.Config)) *CafeServer {
	t.Helper()
	conf := common.DefaultConfig()
	conf.Common.Name = "test-cafe"
	conf.Cafe.BasePath = newFixture(t)
	if mutate != nil {
		mutate(conf)
	}
	common.Success(conf.Cafe.Canonicalize())

	svr, err := NewCafeServer(conf, Options{Version: "1.2.3", Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("NewCafeServer: %v", err)
	}
	return svr
}

type request struct {
	method string
	uri    string
	rng    string
}

func do(svr *CafeServer, req request) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	if req.method != "" {
		ctx.Request.Header.SetMethod(req.method)
	}
	ctx.Request.SetRequestURI(req.uri)
	if req.rng != "" {
		ctx.Request.Header.Set(HeaderRange, req.rng)
	}
	svr.cafeHandler(ctx)
	return ctx
}

func header(ctx *fasthttp.RequestCtx, name string) string {
	return string(ctx.Response.Header.Peek(name))
}

func Test_Scenarios(t *testing.T) {

	type testCase struct {
		name         string
		req          request
		status       int
		body         string
		contentRange string
	}

	cases := []testCase{
		{"whole file", request{uri: "/test.txt"}, 200, content, ""},
		{"prefix", request{uri: "/test.txt", rng: "bytes=0-4"}, 206, "Hello", "bytes 0-4/16"},
		{"suffix", request{uri: "/test.txt", rng: "bytes=-5"}, 206, "World", "bytes 11-15/16"},
		{"open ended", request{uri: "/test.txt", rng: "bytes=6-"}, 206, "Cafe World", "bytes 6-15/16"},
		{"beyond size", request{uri: "/test.txt", rng: "bytes=100-200"}, 416, bodyBadRange, "bytes */16"},
		{"reversed", request{uri: "/test.txt", rng: "bytes=5-4"}, 416, bodyBadRange, "bytes */16"},
		{"not bytes", request{uri: "/test.txt", rng: "items=0-4"}, 416, bodyBadRange, "bytes */16"},
		{"missing", request{uri: "/nope.txt"}, 404, bodyNotOnMenu, ""},
		{"traversal", request{uri: "/../secret.txt"}, 404, bodyNotOnMenu, ""},
		{"encoded traversal", request{uri: "/%2e%2e/secret.txt"}, 404, bodyNotOnMenu, ""},
		{"directory index", request{uri: "/docs"}, 200, "<h1>docs</h1>", ""},
		{"directory without index", request{uri: "/bare/"}, 404, bodyNotOnMenu, ""},
		{"index is a directory", request{uri: "/nested"}, 500, bodyInDisarray, ""},
		{"empty file", request{uri: "/empty.txt"}, 200, "", ""},
		{"staff", request{uri: "/_cafe_/"}, 200, bodyStaff, ""},
		{"post", request{method: "POST", uri: "/test.txt"}, 404, bodyNotOnMenu, ""},
	}

	svr := newServer(t, nil)
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := do(svr, c.req)
			if got := ctx.Response.StatusCode(); got != c.status {
				t.Fatalf("status %d, expected %d", got, c.status)
			}
			if got := string(ctx.Response.Body()); got != c.body {
				t.Errorf("body %q, expected %q", got, c.body)
			}
			if got := header(ctx, HeaderContentRange); got != c.contentRange {
				t.Errorf("Content-Range %q, expected %q", got, c.contentRange)
			}
			if got := header(ctx, HeaderServedBy); got != "test-cafe" {
				t.Errorf("Served-By %q", got)
			}
		})
	}
}

func Test_SuccessHeaders(t *testing.T) {
	svr := newServer(t, nil)

	ctx := do(svr, request{uri: "/test.txt", rng: "bytes=0-4"})
	if got := ctx.Response.Header.ContentLength(); got != 5 {
		t.Errorf("Content-Length %d, expected 5", got)
	}
	if got := header(ctx, HeaderAcceptRanges); got != "bytes" {
		t.Errorf("Accept-Ranges %q", got)
	}
	if got := string(ctx.Response.Header.ContentType()); !strings.HasPrefix(got, "text/plain") {
		t.Errorf("Content-Type %q", got)
	}

	ctx = do(svr, request{uri: "/data.json"})
	if got := string(ctx.Response.Header.ContentType()); got != "application/json" {
		t.Errorf("Content-Type %q", got)
	}

	ctx = do(svr, request{uri: "/nope.txt"})
	if got := header(ctx, HeaderAcceptRanges); got != "" {
		t.Errorf("Accept-Ranges on failure %q", got)
	}
	if got := header(ctx, HeaderCafeVersion); got != "1.2.3" {
		t.Errorf("Cafe-Version %q, expected the version by default", got)
	}
	if got := header(ctx, HeaderFailureReason); got != "" {
		t.Errorf("failure reason exposed by default: %q", got)
	}
}

func Test_Idempotent(t *testing.T) {
	svr := newServer(t, nil)

	first := do(svr, request{uri: "/test.txt"})
	firstBody := string(first.Response.Body())
	for i := 0; i < 5; i++ {
		ctx := do(svr, request{uri: "/test.txt"})
		if got := string(ctx.Response.Body()); got != firstBody {
			t.Fatalf("body %q, expected %q", got, firstBody)
		}
		if got := ctx.Response.Header.ContentLength(); got != len(content) {
			t.Fatalf("Content-Length %d", got)
		}
	}
}

func Test_MenuExclusion(t *testing.T) {
	svr := newServer(t, func(conf *common.Config) {
		conf.Cafe.Menu.Include = []string{"*.json"}
	})

	if ctx := do(svr, request{uri: "/test.txt"}); ctx.Response.StatusCode() != 404 {
		t.Errorf("excluded file served with %d", ctx.Response.StatusCode())
	}
	if ctx := do(svr, request{uri: "/data.json"}); ctx.Response.StatusCode() != 200 {
		t.Errorf("included file answered %d", ctx.Response.StatusCode())
	}
	// index.html is not on this menu either.
	if ctx := do(svr, request{uri: "/docs"}); ctx.Response.StatusCode() != 404 {
		t.Errorf("directory index served with %d", ctx.Response.StatusCode())
	}
}

func Test_DebugAndVersionHeaders(t *testing.T) {
	svr := newServer(t, func(conf *common.Config) {
		conf.Cafe.DebugResponseHeaders = true
		conf.Cafe.BroadcastVersion = true
		conf.Cafe.Menu.Exclude = []string{"*.json"}
	})

	type testCase struct {
		name   string
		req    request
		reason string
	}

	cases := []testCase{
		{"off menu", request{uri: "/data.json"}, "RESOLVING_PATH"},
		{"missing", request{uri: "/nope.txt"}, "ACQUIRING_HANDLE"},
		{"bad range", request{uri: "/test.txt", rng: "bytes=20-"}, "VALIDATING_RANGE"},
		{"not a file", request{uri: "/nested"}, "VALIDATING_TYPE"},
		{"served", request{uri: "/test.txt"}, ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := do(svr, c.req)
			if got := header(ctx, HeaderFailureReason); got != c.reason {
				t.Errorf("reason %q, expected %q", got, c.reason)
			}
			if got := header(ctx, HeaderCafeVersion); got != "1.2.3" {
				t.Errorf("version %q", got)
			}
		})
	}
}

func Test_Alias(t *testing.T) {
	svr := newServer(t, func(conf *common.Config) {
		conf.Cafe.Alias = map[string]string{"home": "https://example.com/"}
	})

	ctx := do(svr, request{uri: "/home"})
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusFound {
		t.Fatalf("status %d", got)
	}
	if got := header(ctx, "Location"); got != "https://example.com/" {
		t.Errorf("Location %q", got)
	}
}

func Test_Multipart(t *testing.T) {
	svr := newServer(t, nil)

	ctx := do(svr, request{uri: "/test.txt", rng: "bytes=0-4, 11-15, 6-9"})
	if got := ctx.Response.StatusCode(); got != 206 {
		t.Fatalf("status %d", got)
	}

	mediaType, params, err := mime.ParseMediaType(string(ctx.Response.Header.ContentType()))
	if err != nil {
		t.Fatal(err)
	}
	if mediaType != "multipart/byteranges" || params["boundary"] == "" {
		t.Fatalf("Content-Type %s %v", mediaType, params)
	}

	body := ctx.Response.Body()
	if got := ctx.Response.Header.ContentLength(); got != len(body) {
		t.Errorf("Content-Length %d, body %d", got, len(body))
	}

	expected := []struct{ data, contentRange string }{
		{"Hello", "bytes 0-4/16"},
		{"World", "bytes 11-15/16"},
		{"Cafe", "bytes 6-9/16"},
	}
	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	for i, e := range expected {
		part, err := reader.NextPart()
		if err != nil {
			t.Fatalf("part %d: %v", i, err)
		}
		if got := part.Header.Get(HeaderContentRange); got != e.contentRange {
			t.Errorf("part %d Content-Range %q, expected %q", i, got, e.contentRange)
		}
		if got := part.Header.Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
			t.Errorf("part %d Content-Type %q", i, got)
		}
		data, err := io.ReadAll(part)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != e.data {
			t.Errorf("part %d %q, expected %q", i, data, e.data)
		}
	}
	if _, err := reader.NextPart(); err != io.EOF {
		t.Errorf("expected end of parts, got %v", err)
	}
}

func Test_MultipartBoundaryPerResponse(t *testing.T) {
	svr := newServer(t, nil)

	first := do(svr, request{uri: "/test.txt", rng: "bytes=0-0,2-2"})
	second := do(svr, request{uri: "/test.txt", rng: "bytes=0-0,2-2"})
	a := string(first.Response.Header.ContentType())
	b := string(second.Response.Header.ContentType())
	if a == b {
		t.Errorf("boundary reused: %q", a)
	}
}

func Test_HandlerPanic(t *testing.T) {
	svr := newServer(t, nil)
	svr.dispatcher = nil

	ctx := do(svr, request{uri: "/test.txt"})
	if got := ctx.Response.StatusCode(); got != 500 {
		t.Fatalf("status %d", got)
	}
	if got := string(ctx.Response.Body()); got != bodyInDisarray {
		t.Errorf("body %q", got)
	}
	if got := header(ctx, HeaderServedBy); got != "test-cafe" {
		t.Errorf("Served-By %q", got)
	}
}

func Test_TraversalGuard(t *testing.T) {
	svr := newServer(t, nil)

	for _, rel := range []string{"../secret.txt", "docs/../../secret.txt", "/../secret.txt"} {
		ctx := &fasthttp.RequestCtx{}
		trans := NewTrans(ctx)
		svr.dispatcher.serveFile(ctx, trans, rel, true)
		if got := ctx.Response.StatusCode(); got != 404 {
			t.Errorf("%s: status %d", rel, got)
		}
		if trans.Status != StatusResolvingPath {
			t.Errorf("%s: got past %s", rel, trans.Status)
		}
		if got := string(ctx.Response.Body()); got != bodyNotOnMenu {
			t.Errorf("%s: body %q", rel, got)
		}
	}
}

func Test_VersionHeaderDisabled(t *testing.T) {
	svr := newServer(t, func(conf *common.Config) {
		conf.Cafe.BroadcastVersion = false
	})

	ctx := do(svr, request{uri: "/test.txt"})
	if got := header(ctx, HeaderCafeVersion); got != "" {
		t.Errorf("Cafe-Version %q with broadcast disabled", got)
	}
}

// revokingMenu allows each path once and refuses it afterwards.
type revokingMenu struct {
	Menu
	seen map[string]bool
}

func (m *revokingMenu) IsServable(relativePath string) bool {
	if m.seen[relativePath] {
		return false
	}
	m.seen[relativePath] = true
	return m.Menu.IsServable(relativePath)
}

func Test_MenuCheckedAfterOpen(t *testing.T) {
	svr := newServer(t, func(conf *common.Config) {
		conf.Cafe.DebugResponseHeaders = true
		conf.Cafe.CacheSize = -1
	})
	d := svr.dispatcher
	d.policy = &revokingMenu{Menu: d.policy, seen: map[string]bool{}}

	for _, uri := range []string{"/test.txt", "/docs"} {
		ctx := do(svr, request{uri: uri})
		if got := ctx.Response.StatusCode(); got != 404 {
			t.Errorf("%s: status %d", uri, got)
		}
		if got := string(ctx.Response.Body()); got != bodyNotOnMenu {
			t.Errorf("%s: body %q", uri, got)
		}
		if got := header(ctx, HeaderFailureReason); got != StatusAcquiringHandle.String() {
			t.Errorf("%s: reason %q", uri, got)
		}
	}
}
