package mute

import (
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/kataclub/kataclub_server/internal/user"
)

type MuteEndpoints struct {
	service *MuteService
}

func NewEndpoints(service *MuteService) *MuteEndpoints {
	return &MuteEndpoints{service: service}
}

// MuteUser handles POST /mutes (moderator+)
func (me *MuteEndpoints) MuteUser(ctx *fasthttp.RequestCtx) {
	moderator, ok := ctx.UserValue("user").(*user.User)
	if !ok || moderator == nil {
		ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
		return
	}

	var req struct {
		UserID          string `json:"userId"`
		Reason          string `json:"reason"`
		DurationMinutes int    `json:"durationMinutes"`
	}
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.Error("Invalid mute payload", fasthttp.StatusBadRequest)
		return
	}

	m, err := me.service.MuteUser(req.UserID, req.Reason, time.Duration(req.DurationMinutes)*time.Minute, moderator.ID)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			ctx.Error(err.Error(), fasthttp.StatusBadRequest)
			return
		}
		log.Error().Err(err).Str("userId", req.UserID).Msg("Failed to mute user")
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusCreated)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(m)
}

// Unmute handles DELETE /mutes/{userID} (moderator+)
func (me *MuteEndpoints) Unmute(ctx *fasthttp.RequestCtx) {
	userID, _ := ctx.UserValue("muteUserID").(string)
	if userID == "" {
		ctx.Error("Missing user id", fasthttp.StatusBadRequest)
		return
	}

	if err := me.service.Unmute(userID); err != nil {
		if errors.Is(err, ErrNotMuted) {
			ctx.Error(err.Error(), fasthttp.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("userId", userID).Msg("Failed to unmute user")
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// GetMute handles GET /mutes/{userID} (moderator+)
func (me *MuteEndpoints) GetMute(ctx *fasthttp.RequestCtx) {
	userID, _ := ctx.UserValue("muteUserID").(string)
	if userID == "" {
		ctx.Error("Missing user id", fasthttp.StatusBadRequest)
		return
	}

	m, err := me.service.ActiveMute(userID, time.Now())
	if err != nil {
		if errors.Is(err, ErrNotMuted) {
			ctx.Error(err.Error(), fasthttp.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("userId", userID).Msg("Failed to look up mute")
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(m)
}

// GetHistory handles GET /mutes/{userID}/history (moderator+)
func (me *MuteEndpoints) GetHistory(ctx *fasthttp.RequestCtx) {
	userID, _ := ctx.UserValue("muteUserID").(string)
	if userID == "" {
		ctx.Error("Missing user id", fasthttp.StatusBadRequest)
		return
	}

	mutes, err := me.service.History(userID)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			ctx.Error(err.Error(), fasthttp.StatusBadRequest)
			return
		}
		log.Error().Err(err).Str("userId", userID).Msg("Failed to list mute history")
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	if mutes == nil {
		mutes = []*Mute{}
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(mutes)
}
