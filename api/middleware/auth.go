package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/rosterhub-backend/api/responses"
	pkgAuth "github.com/angelmondragon/rosterhub-backend/pkg/auth"
	"github.com/angelmondragon/rosterhub-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
)

// accessTokenParam carries the token on WebSocket upgrades, where browsers cannot set headers.
const accessTokenParam = "access_token"

// Auth validates a bearer token from the identity provider and seeds the request context
// with the caller's user and team.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseIdentityToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			identity := claims.Identity()

			ctx := WithUserID(r.Context(), identity.UserID)
			if identity.TeamID != "" {
				ctx = WithTeamID(ctx, identity.TeamID)
			}

			if logg != nil {
				ctx = logg.WithUserID(ctx, identity.UserID)
				if identity.TeamID != "" {
					ctx = logg.WithScope(ctx, identity.TeamID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		if isWebSocketUpgrade(r) {
			return strings.TrimSpace(r.URL.Query().Get(accessTokenParam))
		}
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
