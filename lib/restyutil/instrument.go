package restyutil

import (
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

// DumpExchanges writes every request/response pair made by `client` to
// `output` while debug logging is enabled.
// `output` can be nil, if it is, then the function is a no-op
func DumpExchanges(client *resty.Client, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		ctx := res.Request.Context()
		if !slog.Default().Enabled(ctx, slog.LevelDebug) {
			return nil
		}
		messageId := strconv.FormatUint(atomic.AddUint64(&idcounter, 1), 10)
		output.Write(messageId, formatHttpMessage(res))
		slog.DebugContext(
			ctx, "request completed",
			"method", res.Request.Method,
			"url", res.Request.URL,
			"status", res.StatusCode(),
			"message_id", messageId,
		)
		return nil
	})
}
