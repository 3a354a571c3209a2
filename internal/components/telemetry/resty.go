package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
	report_resty_error    = "resty.error"
)

type exchangeKey struct{}

// exchange tags a request so its response can be matched up in the logs.
type exchange struct {
	id    uint64
	start time.Time
}

func exchangeOf(req *resty.Request) (exchange, bool) {
	ex, ok := req.Context().Value(exchangeKey{}).(exchange)
	return ex, ok
}

// InstrumentResty reports every request made by `client` to `tel` as debug output, and
// transport errors as warnings.
func InstrumentResty(client *resty.Client, tel API) {
	var counter atomic.Uint64

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		ex := exchange{id: counter.Add(1), start: time.Now()}
		req.SetContext(context.WithValue(req.Context(), exchangeKey{}, ex))
		tel.ReportDebug(report_resty_request, ex.id, req.Method, req.URL)
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		ex, ok := exchangeOf(res.Request)
		if !ok {
			return nil
		}
		tel.ReportDebug(report_resty_response, ex.id, res.StatusCode(), time.Since(ex.start).String())
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		var elapsed time.Duration
		ex, ok := exchangeOf(req)
		if ok {
			elapsed = time.Since(ex.start)
		}
		tel.ReportWarning(report_resty_error, err, ex.id, req.Method, req.URL, elapsed.String())
	})
}
