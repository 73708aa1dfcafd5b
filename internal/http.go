package internal

import (
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/kataclub/kataclub_server/internal/health"
	"github.com/kataclub/kataclub_server/internal/kata"
	"github.com/kataclub/kataclub_server/internal/maintenance"
	"github.com/kataclub/kataclub_server/internal/middleware"
	"github.com/kataclub/kataclub_server/internal/mute"
	"github.com/kataclub/kataclub_server/internal/post"
	"github.com/kataclub/kataclub_server/internal/status"
	"github.com/kataclub/kataclub_server/internal/storage"
	"github.com/kataclub/kataclub_server/internal/user"
	"github.com/kataclub/kataclub_server/internal/websocket"
)

func NewRequestHandler(config *Config, userEndpoints *user.UserEndpoints, kataEndpoints *kata.KataEndpoints, postEndpoints *post.PostEndpoints, muteEndpoints *mute.MuteEndpoints, storageEndpoints *storage.Endpoints, statusEndpoints *status.StatusEndpoints, healthEndpoints *health.HealthEndpoints, maintenanceEndpoints *maintenance.Endpoints, userService *user.UserService, wsHandler *websocket.Handler) fasthttp.RequestHandler {
	authMiddleware := middleware.NewAuthMiddleware(userService)
	cors := middleware.NewCORS(config.Server.AllowedOrigins)

	handler := func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case path == "/users/register":
			if method == "POST" {
				userEndpoints.Register(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case path == "/users/login":
			if method == "POST" {
				userEndpoints.Login(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case path == "/users/me":
			authMiddleware.RequireAuth(userEndpoints.Me)(ctx)
		case path == "/users":
			authMiddleware.RequireRole(user.RoleModerator, userEndpoints.ListUsers)(ctx)
		case strings.HasPrefix(path, "/users/") && strings.HasSuffix(path, "/role"):
			parts := strings.Split(path, "/")
			if len(parts) == 4 && parts[3] == "role" && method == "PUT" {
				ctx.SetUserValue("userID", parts[2])
				authMiddleware.RequireRole(user.RoleAdmin, userEndpoints.UpdateRole)(ctx)
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}
		case path == "/.well-known/jwks.json":
			userEndpoints.JWKS(ctx)

		case path == "/health":
			healthEndpoints.Health(ctx)
		case path == "/status":
			authMiddleware.RequireAuth(statusEndpoints.Status)(ctx)
		case path == "/maintenance/run":
			if method == "POST" {
				authMiddleware.RequireRole(user.RoleAdmin, maintenanceEndpoints.Run)(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}

		case path == "/katas":
			switch method {
			case "GET":
				authMiddleware.RequireAuth(kataEndpoints.GetKatas)(ctx)
			case "POST":
				authMiddleware.RequireAuth(kataEndpoints.CreateKata)(ctx)
			default:
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case path == "/katas/reorder":
			if method == "POST" {
				authMiddleware.RequireAuth(kataEndpoints.ReorderKatas)(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case path == "/katas/cleanup-images":
			if method == "POST" {
				authMiddleware.RequireRole(user.RoleAdmin, kataEndpoints.CleanupImages)(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case strings.HasPrefix(path, "/katas/"):
			parts := strings.Split(path, "/")
			if len(parts) == 3 {
				ctx.SetUserValue("kataID", parts[2])
				switch method {
				case "PUT":
					authMiddleware.RequireAuth(kataEndpoints.UpdateKata)(ctx)
				case "DELETE":
					authMiddleware.RequireAuth(kataEndpoints.DeleteKata)(ctx)
				default:
					ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
				}
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}

		case path == "/posts":
			switch method {
			case "GET":
				authMiddleware.RequireAuth(postEndpoints.GetPosts)(ctx)
			case "POST":
				authMiddleware.RequireAuth(postEndpoints.CreatePost)(ctx)
			default:
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case strings.HasPrefix(path, "/posts/"):
			parts := strings.Split(path, "/")
			if len(parts) == 3 {
				ctx.SetUserValue("postID", parts[2])
				switch method {
				case "PUT":
					authMiddleware.RequireAuth(postEndpoints.UpdatePost)(ctx)
				case "DELETE":
					authMiddleware.RequireAuth(postEndpoints.DeletePost)(ctx)
				default:
					ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
				}
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}

		case path == "/mutes":
			if method == "POST" {
				authMiddleware.RequireRole(user.RoleModerator, muteEndpoints.MuteUser)(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case strings.HasPrefix(path, "/mutes/"):
			parts := strings.Split(path, "/")
			if len(parts) == 4 && parts[3] == "history" && method == "GET" {
				ctx.SetUserValue("muteUserID", parts[2])
				authMiddleware.RequireRole(user.RoleModerator, muteEndpoints.GetHistory)(ctx)
			} else if len(parts) == 3 {
				ctx.SetUserValue("muteUserID", parts[2])
				switch method {
				case "GET":
					authMiddleware.RequireRole(user.RoleModerator, muteEndpoints.GetMute)(ctx)
				case "DELETE":
					authMiddleware.RequireRole(user.RoleModerator, muteEndpoints.Unmute)(ctx)
				default:
					ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
				}
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}

		case strings.HasPrefix(path, "/storage/") && strings.HasSuffix(path, "/thumb"):
			parts := strings.Split(path, "/")
			if len(parts) == 4 && parts[3] == "thumb" {
				ctx.SetUserValue("storageID", parts[2])
				authMiddleware.RequireAuth(storageEndpoints.GetThumbnail)(ctx)
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}
		case strings.HasPrefix(path, "/storage/"):
			parts := strings.Split(path, "/")
			if len(parts) == 3 && method == "GET" {
				ctx.SetUserValue("storageID", parts[2])
				authMiddleware.RequireAuth(storageEndpoints.GetFile)(ctx)
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}

		case path == "/ws":
			wsHandler.HandleFastHTTP(ctx)

		default:
			ctx.Error("Not Found", fasthttp.StatusNotFound)
		}
	}

	return cors.Handle(handler)
}
