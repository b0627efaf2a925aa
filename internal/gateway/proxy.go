package gateway

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
)

const (
	messageNotFound    = "not found"
	messageBadUpstream = "upstream unavailable"
)

// newProxy forwards requests to target. The edge filter has already replaced
// the X-User-* headers on the inbound request, and Rewrite copies them out.
func newProxy(target *url.URL, logger *slog.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.WarnContext(r.Context(), "upstream request failed",
				"path", r.URL.Path,
				"upstream", target.Host,
				"error", err,
			)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"success":false,"message":"` + messageBadUpstream + `"}`))
		},
	}
}

// handleNoRoute proxies unmatched paths upstream, or answers 404 without one.
func (s *Server) handleNoRoute() gin.HandlerFunc {
	if s.proxy == nil {
		return func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": messageNotFound})
		}
	}
	return func(c *gin.Context) {
		s.proxy.ServeHTTP(c.Writer, c.Request)
	}
}
