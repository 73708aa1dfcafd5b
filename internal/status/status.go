package status

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

// Counter reports how many items a catalog currently holds in memory.
type Counter interface {
	Len() int
}

type StatusEndpoints struct {
	version string
	started time.Time
	katas   Counter
	posts   Counter
}

func NewEndpoints(version string, katas, posts Counter) *StatusEndpoints {
	return &StatusEndpoints{
		version: version,
		started: time.Now(),
		katas:   katas,
		posts:   posts,
	}
}

type StatusResponse struct {
	Health        string `json:"health"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	Katas         int    `json:"katas"`
	Posts         int    `json:"posts"`
}

func (se *StatusEndpoints) Status(ctx *fasthttp.RequestCtx) {
	response := StatusResponse{
		Health:        "OK",
		Version:       se.version,
		UptimeSeconds: int64(time.Since(se.started).Seconds()),
		Katas:         se.katas.Len(),
		Posts:         se.posts.Len(),
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)

	responseJSON, err := json.Marshal(response)
	if err != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetBody(responseJSON)
}
