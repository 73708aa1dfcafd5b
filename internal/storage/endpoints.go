package storage

import (
	"io"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

type Endpoints struct {
	service *Service
}

func NewEndpoints(service *Service) *Endpoints {
	return &Endpoints{service: service}
}

// GetFile handles GET /storage/{id}
func (e *Endpoints) GetFile(ctx *fasthttp.RequestCtx) {
	storageID, _ := ctx.UserValue("storageID").(string)
	if storageID == "" {
		ctx.Error("Missing storage id", fasthttp.StatusBadRequest)
		return
	}

	reader, stored, err := e.service.GetData(ctx, storageID)
	if err != nil {
		log.Debug().Err(err).Str("storageId", storageID).Msg("Storage object not found")
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return
	}
	defer reader.Close()

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType(stored.ContentType)
	ctx.Response.Header.Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(ctx, reader); err != nil {
		log.Warn().Err(err).Str("storageId", storageID).Msg("Failed to stream storage object")
	}
}

// GetThumbnail handles GET /storage/{id}/thumb
func (e *Endpoints) GetThumbnail(ctx *fasthttp.RequestCtx) {
	storageID, _ := ctx.UserValue("storageID").(string)
	if storageID == "" {
		ctx.Error("Missing storage id", fasthttp.StatusBadRequest)
		return
	}

	reader, _, err := e.service.GetThumbnail(ctx, storageID)
	if err != nil {
		log.Debug().Err(err).Str("storageId", storageID).Msg("Thumbnail not found")
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return
	}
	defer reader.Close()

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("image/jpeg")
	ctx.Response.Header.Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(ctx, reader); err != nil {
		log.Warn().Err(err).Str("storageId", storageID).Msg("Failed to stream thumbnail")
	}
}
