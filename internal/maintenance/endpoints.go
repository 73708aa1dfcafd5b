package maintenance

import (
	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

type Endpoints struct {
	scheduler *Scheduler
}

func NewEndpoints(scheduler *Scheduler) *Endpoints {
	return &Endpoints{scheduler: scheduler}
}

// Run handles POST /maintenance/run (admin). It executes the nightly pass
// immediately instead of waiting for the 2 AM slot.
func (e *Endpoints) Run(ctx *fasthttp.RequestCtx) {
	e.scheduler.RunNow()

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(map[string]string{"status": "completed"})
}
