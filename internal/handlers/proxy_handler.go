package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/joegr/ReTurni/internal/middleware"
	"github.com/joegr/ReTurni/internal/proxy"
)

// ProxyHandler relays /api/v1 traffic to the downstream service named
// in the path. Access policy and throttling have already run by the
// time it is invoked; it only moves bytes.
type ProxyHandler struct {
	router *proxy.Router
}

func NewProxyHandler(router *proxy.Router) *ProxyHandler {
	return &ProxyHandler{router: router}
}

// Handle forwards the request and writes the downstream answer back
// verbatim. Routing failures surface as the gateway's own 404/503
// envelopes; downstream error bodies pass through untouched.
func (h *ProxyHandler) Handle(c *gin.Context) {
	resp, err := h.router.Forward(c.Request.Context(), &proxy.ForwardRequest{
		Service:   c.Param("service"),
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		Query:     c.Request.URL.RawQuery,
		Header:    c.Request.Header,
		Body:      c.Request.Body,
		Principal: middleware.PrincipalFromContext(c),
		RequestID: middleware.RequestIDFromContext(c),
		ClientIP:  c.ClientIP(),
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	header := c.Writer.Header()
	for k, vv := range resp.Header {
		// The gateway owns the correlation and version headers; a
		// downstream echo must not duplicate them.
		if k == "X-Request-Id" || k == "X-Api-Version" {
			continue
		}
		for _, v := range vv {
			header.Add(k, v)
		}
	}

	c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), resp.Body)
}
