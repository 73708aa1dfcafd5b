package post

import (
	"errors"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/kataclub/kataclub_server/internal/user"
)

type PostEndpoints struct {
	service *Service
}

func NewEndpoints(service *Service) *PostEndpoints {
	return &PostEndpoints{service: service}
}

type ForumResponse struct {
	Items   []*Post `json:"items"`
	Query   string  `json:"query"`
	Loading bool    `json:"loading"`
	Error   string  `json:"error,omitempty"`
}

// GetPosts handles GET /posts?q=
func (pe *PostEndpoints) GetPosts(ctx *fasthttp.RequestCtx) {
	query := string(ctx.QueryArgs().Peek("q"))
	items := pe.service.Search(query)
	if items == nil {
		items = []*Post{}
	}

	st := pe.service.Store()
	response := ForumResponse{
		Items:   items,
		Query:   st.Query(),
		Loading: st.Loading(),
		Error:   st.Err(),
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(response)
}

// CreatePost handles POST /posts
func (pe *PostEndpoints) CreatePost(ctx *fasthttp.RequestCtx) {
	author, ok := ctx.UserValue("user").(*user.User)
	if !ok || author == nil {
		ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
		return
	}

	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.Error("Invalid post payload", fasthttp.StatusBadRequest)
		return
	}

	created, err := pe.service.Create(ctx, author, req.Title, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, ErrMuted):
			ctx.Error("You are muted and cannot post", fasthttp.StatusForbidden)
		case errors.Is(err, ErrValidation):
			ctx.Error(err.Error(), fasthttp.StatusBadRequest)
		default:
			log.Error().Err(err).Msg("Failed to create post")
			ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		}
		return
	}

	ctx.SetStatusCode(fasthttp.StatusCreated)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(created)
}

// UpdatePost handles PUT /posts/{id}
func (pe *PostEndpoints) UpdatePost(ctx *fasthttp.RequestCtx) {
	actor, ok := ctx.UserValue("user").(*user.User)
	if !ok || actor == nil {
		ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
		return
	}

	id, _ := ctx.UserValue("postID").(string)
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.Error("Invalid post payload", fasthttp.StatusBadRequest)
		return
	}

	updated, err := pe.service.Update(ctx, actor, id, req.Title, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, ErrForbidden):
			ctx.Error(err.Error(), fasthttp.StatusForbidden)
		case errors.Is(err, ErrValidation):
			ctx.Error(err.Error(), fasthttp.StatusBadRequest)
		default:
			log.Error().Err(err).Str("postId", id).Msg("Failed to update post")
			ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		}
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(updated)
}

// DeletePost handles DELETE /posts/{id}
func (pe *PostEndpoints) DeletePost(ctx *fasthttp.RequestCtx) {
	actor, ok := ctx.UserValue("user").(*user.User)
	if !ok || actor == nil {
		ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
		return
	}

	id, _ := ctx.UserValue("postID").(string)
	if err := pe.service.Delete(ctx, actor, id); err != nil {
		if errors.Is(err, ErrForbidden) {
			ctx.Error(err.Error(), fasthttp.StatusForbidden)
			return
		}
		log.Error().Err(err).Str("postId", id).Msg("Failed to delete post")
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusNoContent)
}
