package http

import (
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"cafe/common"
)

// Transaction tracks one request from routing to the final response.
type Transaction struct {
	Path    string
	Range   string
	Status  InternalStatus
	Time    time.Time
	Elapsed time.Duration
}

func NewTrans(ctx *fasthttp.RequestCtx) *Transaction {
	return &Transaction{
		Path:   string(ctx.Path()),
		Range:  string(ctx.Request.Header.Peek(HeaderRange)),
		Status: StatusResolvingPath,
		Time:   time.Now(),
	}
}

// Enter records the phase that is about to run.
func (t *Transaction) Enter(s InternalStatus) {
	t.Status = s
}

// Finish closes the transaction and returns its access log record.
func (t *Transaction) Finish(ctx *fasthttp.RequestCtx) *common.LogData {
	t.Elapsed = time.Since(t.Time)
	return &common.LogData{
		Path:     t.Path,
		Status:   ctx.Response.StatusCode(),
		Phase:    t.Status.String(),
		Range:    t.Range,
		Bytes:    int64(ctx.Response.Header.ContentLength()),
		Duration: t.Elapsed,
	}
}

func (t *Transaction) String() string {
	return fmt.Sprintf("%v %v %v %v %v", t.Time.UnixMilli(), t.Elapsed, t.Path, t.Range, t.Status)
}
