// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/taskhub/internal/model"
)

const sessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// authContextKey はリクエストコンテキストに認証情報を格納するためのキー。
var authContextKey = contextKey("auth")

// AuthMethod はPrincipalを解決した認証方式。
type AuthMethod string

const (
	AuthNone    AuthMethod = ""
	AuthSession AuthMethod = "session"
	AuthBearer  AuthMethod = "bearer"
)

type authInfo struct {
	principal model.Principal
	method    AuthMethod
}

// principalHolderKey は外側のミドルウェアが解決結果を受け取るためのキー。
var principalHolderKey = contextKey("principal_holder")

// principalHolder はPrincipal解決ミドルウェアが解決結果を書き戻す入れ物。
type principalHolder struct {
	principal model.Principal
}

func withPrincipalHolder(ctx context.Context, h *principalHolder) context.Context {
	return context.WithValue(ctx, principalHolderKey, h)
}

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// TokenVerifier はBearerトークンを検証し、ユーザーIDを返す。
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// ErrInvalidToken はBearerトークンが不正な場合のエラー。
var ErrInvalidToken = errors.New("invalid bearer token")

// JWTVerifier はHS256で署名されたJWTを検証するTokenVerifier。
// subクレームをユーザーIDとして扱う。
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTVerifier はJWTVerifierを生成する。
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify はトークンの署名と有効期限を検証し、subクレームを返す。
// subはユーザーIDとしてUUID形式である必要がある。
func (v *JWTVerifier) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// PrincipalConfig はPrincipal解決ミドルウェアの設定。
type PrincipalConfig struct {
	Sessions SessionFinder
	// Tokens がnilの場合、Bearerトークン認証は無効。
	Tokens TokenVerifier
	// Logger がnilの場合はslog.Default()を使う。
	Logger *slog.Logger
}

// NewPrincipalMiddleware はリクエストの主体を解決してコンテキストに注入するミドルウェアを返す。
// 解決順:
//   - Authorizationヘッダーがある場合はBearerトークンを検証する。不正な場合は401
//   - session_id Cookieがある場合は有効なセッションを検索する。見つからない場合は匿名
//   - どちらもない場合は匿名
//
// 認証の要否はサービス層が操作ごとに判定するため、ここでは匿名リクエストを拒否しない。
func NewPrincipalMiddleware(config PrincipalConfig) func(next http.Handler) http.Handler {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := authInfo{principal: model.Anonymous()}

			if header := r.Header.Get("Authorization"); header != "" {
				userID, err := verifyBearer(config.Tokens, header)
				if err != nil {
					logger.Warn("bearer authentication failed",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
					WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
					return
				}
				info = authInfo{principal: model.Authenticated(userID), method: AuthBearer}
			} else if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" && config.Sessions != nil {
				session, err := config.Sessions.FindByID(r.Context(), cookie.Value)
				if err != nil {
					logger.Error("failed to find session",
						slog.String("error", err.Error()),
					)
					WriteInternalServerError(w)
					return
				}
				if session != nil {
					info = authInfo{principal: model.Authenticated(session.UserID), method: AuthSession}
				}
			}

			if h, ok := r.Context().Value(principalHolderKey).(*principalHolder); ok {
				h.principal = info.principal
			}
			ctx := context.WithValue(r.Context(), authContextKey, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verifyBearer(tokens TokenVerifier, header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: malformed authorization header", ErrInvalidToken)
	}
	if tokens == nil {
		return "", fmt.Errorf("%w: bearer authentication is disabled", ErrInvalidToken)
	}
	return tokens.Verify(strings.TrimSpace(token))
}

// PrincipalFromContext はリクエストコンテキストから主体を取得する。
// Principal解決ミドルウェアを通過していない場合は匿名を返す。
func PrincipalFromContext(ctx context.Context) model.Principal {
	info, _ := ctx.Value(authContextKey).(authInfo)
	return info.principal
}

// AuthMethodFromContext は主体を解決した認証方式を返す。
func AuthMethodFromContext(ctx context.Context) AuthMethod {
	info, _ := ctx.Value(authContextKey).(authInfo)
	return info.method
}

// ContextWithPrincipal はコンテキストに主体を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, p model.Principal, method AuthMethod) context.Context {
	return context.WithValue(ctx, authContextKey, authInfo{principal: p, method: method})
}
