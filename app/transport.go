package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const redacted = "[redacted]"

var (
	discordHosts = []string{"discord.com", "discordapp.com"}
	tokenRoutes  = []string{"webhooks", "interactions"}
)

// NewTransport returns the RoundTripper shared by every outbound HTTP client.
func NewTransport(log *zap.Logger) http.RoundTripper {
	return &transport{http.DefaultTransport, log}
}

type transport struct {
	base http.RoundTripper
	log  *zap.Logger
}

func (tpt *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := tpt.base.RoundTrip(req)
	elapsed := int(time.Since(start).Milliseconds())

	path := logPath(req)
	if err != nil {
		tpt.log.Sugar().Warnw("HTTP request failed", "method", req.Method, "host", req.URL.Host, "path", path, "elapsed_msecs", elapsed, "err", err)
		return resp, err
	}
	tpt.log.Sugar().Debugw("HTTP request", "method", req.Method, "host", req.URL.Host, "path", path, "status", resp.StatusCode, "elapsed_msecs", elapsed)
	return resp, nil
}

// logPath masks interaction tokens in Discord webhook and interaction routes,
// e.g. /api/v9/webhooks/{app_id}/{token}/messages/@original.
func logPath(req *http.Request) string {
	host := req.URL.Hostname()
	isDiscord := lo.ContainsBy(discordHosts, func(h string) bool {
		return host == h || strings.HasSuffix(host, "."+h)
	})
	if !isDiscord {
		return req.URL.Path
	}

	segs := strings.Split(req.URL.Path, "/")
	for i, seg := range segs {
		if lo.Contains(tokenRoutes, seg) && i+2 < len(segs) {
			segs[i+2] = redacted
		}
	}
	return strings.Join(segs, "/")
}
