package middleware

import (
	"regexp"

	"github.com/valyala/fasthttp"
)

// localhostOrigin matches any localhost origin regardless of port, so local
// dev clients keep working without listing every port in config.
var localhostOrigin = regexp.MustCompile(`^https?://localhost:\d+$`)

type CORS struct {
	origins  []string
	wildcard bool
}

func NewCORS(origins []string) *CORS {
	wildcard := len(origins) == 0 || (len(origins) == 1 && origins[0] == "*")
	return &CORS{origins: origins, wildcard: wildcard}
}

func (c *CORS) Handle(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		origin := string(ctx.Request.Header.Peek("Origin"))

		if c.allowed(origin) {
			// Credentialed requests require the concrete origin, never "*".
			ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
			ctx.Response.Header.Set("Access-Control-Allow-Credentials", "true")
		} else if c.wildcard {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
		}

		ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		ctx.Response.Header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		ctx.Response.Header.Set("Access-Control-Max-Age", "86400")

		if string(ctx.Method()) == fasthttp.MethodOptions {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		next(ctx)
	}
}

func (c *CORS) allowed(origin string) bool {
	if origin == "" {
		return false
	}
	for _, o := range c.origins {
		if o == origin {
			return true
		}
	}
	// Dev convenience: wildcard config accepts localhost on any port.
	return c.wildcard && localhostOrigin.MatchString(origin)
}
