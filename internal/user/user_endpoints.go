package user

import (
	"crypto/rsa"
	"errors"

	"github.com/goccy/go-json"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

type UserEndpoints struct {
	userService *UserService
	publicKey   *rsa.PublicKey
}

func NewEndpoints(userService *UserService, publicKey *rsa.PublicKey) *UserEndpoints {
	return &UserEndpoints{
		userService: userService,
		publicKey:   publicKey,
	}
}

// Register handles POST /users/register
func (ue *UserEndpoints) Register(ctx *fasthttp.RequestCtx) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.Error("Invalid registration payload", fasthttp.StatusBadRequest)
		return
	}

	newUser, err := ue.userService.Register(req.Email, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			ctx.Error(err.Error(), fasthttp.StatusBadRequest)
			return
		}
		log.Error().Err(err).Msg("Failed to register user")
		ctx.Error("Failed to register user", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusCreated)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(newUser)
}

// Login handles POST /users/login
func (ue *UserEndpoints) Login(ctx *fasthttp.RequestCtx) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.Error("Invalid login payload", fasthttp.StatusBadRequest)
		return
	}

	response, err := ue.userService.Login(req.Email, req.Password)
	if err != nil {
		log.Error().Err(err).Msg("Login failed")
		ctx.Error("Invalid email or password", fasthttp.StatusUnauthorized)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(response)
}

// Me handles GET /users/me
func (ue *UserEndpoints) Me(ctx *fasthttp.RequestCtx) {
	authenticatedUser, ok := ctx.UserValue("user").(*User)
	if !ok || authenticatedUser == nil {
		ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(authenticatedUser)
}

// ListUsers handles GET /users (moderator+)
func (ue *UserEndpoints) ListUsers(ctx *fasthttp.RequestCtx) {
	users, err := ue.userService.userRepository.ListUsers()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		ctx.Error("Failed to list users", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(users)
}

// UpdateRole handles PUT /users/{id}/role (admin only)
func (ue *UserEndpoints) UpdateRole(ctx *fasthttp.RequestCtx) {
	targetID, _ := ctx.UserValue("userID").(string)
	if targetID == "" {
		ctx.Error("Missing user id", fasthttp.StatusBadRequest)
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.Error("Invalid role payload", fasthttp.StatusBadRequest)
		return
	}

	if err := ue.userService.SetRole(targetID, req.Role); err != nil {
		if errors.Is(err, ErrValidation) {
			ctx.Error(err.Error(), fasthttp.StatusBadRequest)
			return
		}
		log.Error().Err(err).Str("userId", targetID).Msg("Failed to update role")
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// JWKS handles GET /.well-known/jwks.json, publishing the server's signing
// key so clients can verify tokens offline.
func (ue *UserEndpoints) JWKS(ctx *fasthttp.RequestCtx) {
	key, err := jwk.Import(ue.publicKey)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build JWK from public key")
		ctx.Error("Internal server error", fasthttp.StatusInternalServerError)
		return
	}
	if err := jwk.AssignKeyID(key); err != nil {
		log.Error().Err(err).Msg("Failed to assign key id")
		ctx.Error("Internal server error", fasthttp.StatusInternalServerError)
		return
	}
	key.Set(jwk.KeyUsageKey, "sig")
	key.Set(jwk.AlgorithmKey, jwa.RS256())

	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		log.Error().Err(err).Msg("Failed to build JWK set")
		ctx.Error("Internal server error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(set)
}
