package kata

import (
	"errors"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/kataclub/kataclub_server/internal/user"
)

type KataEndpoints struct {
	service *Service
}

func NewEndpoints(service *Service) *KataEndpoints {
	return &KataEndpoints{service: service}
}

// CatalogResponse is the snapshot the app renders from: the visible items for
// the active query plus the store's state flags.
type CatalogResponse struct {
	Items   []*Kata `json:"items"`
	Query   string  `json:"query"`
	Loading bool    `json:"loading"`
	Error   string  `json:"error,omitempty"`
}

// GetKatas handles GET /katas?q=
func (ke *KataEndpoints) GetKatas(ctx *fasthttp.RequestCtx) {
	query := string(ctx.QueryArgs().Peek("q"))
	items := ke.service.Search(query)
	if items == nil {
		items = []*Kata{}
	}

	st := ke.service.Store()
	response := CatalogResponse{
		Items:   items,
		Query:   st.Query(),
		Loading: st.Loading(),
		Error:   st.Err(),
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(response)
}

// CreateKata handles POST /katas. The request is multipart: a "kata" part
// carrying the JSON fields and zero or more "images" file parts.
func (ke *KataEndpoints) CreateKata(ctx *fasthttp.RequestCtx) {
	authenticatedUser, ok := ctx.UserValue("user").(*user.User)
	if !ok || authenticatedUser == nil {
		ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		ctx.Error("Expected multipart form", fasthttp.StatusBadRequest)
		return
	}

	k := &Kata{}
	if values := form.Value["kata"]; len(values) > 0 {
		if err := json.Unmarshal([]byte(values[0]), k); err != nil {
			ctx.Error("Invalid kata payload", fasthttp.StatusBadRequest)
			return
		}
	}

	images, err := readImageParts(form.File["images"])
	if err != nil {
		log.Error().Err(err).Msg("Failed to read image parts")
		ctx.Error("Failed to read images", fasthttp.StatusBadRequest)
		return
	}

	created, err := ke.service.Create(ctx, authenticatedUser.ID, k, images)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			ctx.Error(err.Error(), fasthttp.StatusBadRequest)
			return
		}
		log.Error().Err(err).Msg("Failed to create kata")
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusCreated)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(created)
}

// UpdateKata handles PUT /katas/{id}. Multipart like CreateKata, with an
// optional "imageOrder" part carrying the full reordered reference list.
func (ke *KataEndpoints) UpdateKata(ctx *fasthttp.RequestCtx) {
	authenticatedUser, ok := ctx.UserValue("user").(*user.User)
	if !ok || authenticatedUser == nil {
		ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
		return
	}

	id, err := kataIDFromCtx(ctx)
	if err != nil {
		ctx.Error("Invalid kata id", fasthttp.StatusBadRequest)
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		ctx.Error("Expected multipart form", fasthttp.StatusBadRequest)
		return
	}

	var fields UpdateFieldsRequest
	if values := form.Value["kata"]; len(values) > 0 {
		if err := json.Unmarshal([]byte(values[0]), &fields); err != nil {
			ctx.Error("Invalid kata payload", fasthttp.StatusBadRequest)
			return
		}
	}

	var imageOrder []string
	if values := form.Value["imageOrder"]; len(values) > 0 {
		if err := json.Unmarshal([]byte(values[0]), &imageOrder); err != nil {
			ctx.Error("Invalid image order payload", fasthttp.StatusBadRequest)
			return
		}
	}

	images, err := readImageParts(form.File["images"])
	if err != nil {
		log.Error().Err(err).Msg("Failed to read image parts")
		ctx.Error("Failed to read images", fasthttp.StatusBadRequest)
		return
	}

	result, err := ke.service.Update(ctx, id, authenticatedUser.ID, fields, images, imageOrder)
	if err != nil && result == nil {
		if errors.Is(err, ErrValidation) {
			ctx.Error(err.Error(), fasthttp.StatusBadRequest)
			return
		}
		log.Error().Err(err).Int64("kataId", id).Msg("Failed to update kata")
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}

	// Partial success still carries the structured result so the client can
	// tell which step failed.
	if result.Partial() {
		ctx.SetStatusCode(fasthttp.StatusMultiStatus)
	} else {
		ctx.SetStatusCode(fasthttp.StatusOK)
	}
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(result)
}

// DeleteKata handles DELETE /katas/{id}
func (ke *KataEndpoints) DeleteKata(ctx *fasthttp.RequestCtx) {
	id, err := kataIDFromCtx(ctx)
	if err != nil {
		ctx.Error("Invalid kata id", fasthttp.StatusBadRequest)
		return
	}

	if err := ke.service.Delete(ctx, id); err != nil {
		log.Error().Err(err).Int64("kataId", id).Msg("Failed to delete kata")
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// ReorderKatas handles POST /katas/reorder
func (ke *KataEndpoints) ReorderKatas(ctx *fasthttp.RequestCtx) {
	var req struct {
		OldIndex int `json:"oldIndex"`
		NewIndex int `json:"newIndex"`
	}
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.Error("Invalid reorder payload", fasthttp.StatusBadRequest)
		return
	}

	if err := ke.service.Reorder(ctx, req.OldIndex, req.NewIndex); err != nil {
		log.Error().Err(err).Msg("Failed to reorder katas")
		ctx.Error(err.Error(), fasthttp.StatusConflict)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(ke.service.Store().Items())
}

// CleanupImages handles POST /katas/cleanup-images (admin only, routed
// through RequireRole).
func (ke *KataEndpoints) CleanupImages(ctx *fasthttp.RequestCtx) {
	report, err := ke.service.CleanupOrphanedImages(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Orphaned image cleanup failed")
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(report)
}

func kataIDFromCtx(ctx *fasthttp.RequestCtx) (int64, error) {
	raw, _ := ctx.UserValue("kataID").(string)
	return strconv.ParseInt(raw, 10, 64)
}

func readImageParts(headers []*multipart.FileHeader) ([]ImageUpload, error) {
	images := make([]ImageUpload, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, err
		}
		images = append(images, ImageUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return images, nil
}
