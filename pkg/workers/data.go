package workers

import (
	"fmt"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/getmockd/scriptd/pkg/metrics"
	"github.com/getmockd/scriptd/pkg/response"
)

// ParamsJSON dumps the request, temporary and persistent parameters as a
// JSON document with sorted keys. The optional select parameter is a
// JSONPath applied to that document, e.g. select=$.persistent.bgcolor.
type ParamsJSON struct{}

func (w *ParamsJSON) ProcessRequest(ctx *response.Context) error {
	temp := make(map[string]any)
	for _, name := range ctx.TempParamNames() {
		temp[name], _ = ctx.TempParam(name)
	}
	doc := map[string]any{
		"session":    ctx.SessionID(),
		"params":     toAny(ctx.Params()),
		"temporary":  temp,
		"persistent": toAny(ctx.Persistent().Snapshot()),
	}

	var out any = doc
	if sel, ok := ctx.Param("select"); ok && sel != "" {
		expr, err := jp.ParseString(sel)
		if err != nil {
			if err := ctx.SetStatus(400); err != nil {
				return err
			}
			out = map[string]any{"error": fmt.Sprintf("invalid select expression: %v", err)}
		} else {
			out = expr.Get(doc)
		}
	}

	if err := ctx.SetMimeType("application/json"); err != nil {
		return err
	}
	_, err := ctx.WriteString(oj.JSON(out, &ojg.Options{Sort: true}))
	return err
}

func toAny(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Metrics writes the server metrics in the Prometheus text format.
type Metrics struct {
	metrics *metrics.Server
}

func (w *Metrics) ProcessRequest(ctx *response.Context) error {
	w.metrics.Refresh()
	if err := ctx.SetMimeType(metrics.ContentType); err != nil {
		return err
	}
	return w.metrics.Registry.WriteText(ctx)
}
