package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/bwise1/gunaso/util"
	"github.com/bwise1/gunaso/util/logger"
	"github.com/bwise1/gunaso/util/tracing"
	"github.com/bwise1/gunaso/util/values"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt"
	"github.com/lucsky/cuid"
	"go.uber.org/zap"
)

var (
	errTokenExpired = errors.New("token expired")
	errInvalidToken = errors.New("invalid token")
)

const contextOfficeKey contextKey = "office_code"

type contextKey string

// RequestTracing handles the request tracing context
func RequestTracing(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestSource := r.Header.Get(values.HeaderRequestSource)
		if requestSource == "" {
			errM := errors.New("X-Request-Source is empty")

			writeErrorResponse(w, errM, values.BadRequestBody, errM.Error())
			return
		}

		requestID := r.Header.Get(values.HeaderRequestID)
		if requestID == "" {
			requestID = cuid.New()
		}
		w.Header().Set(values.HeaderRequestID, requestID)

		tracingContext := tracing.Context{
			RequestID:     requestID,
			RequestSource: requestSource,
		}

		ctx = context.WithValue(ctx, values.ContextTracingKey, tracingContext)
		next.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(fn)
}

func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", ww.Header().Get(values.HeaderRequestID)),
		)
	})
}

func tracingFrom(r *http.Request) tracing.Context {
	tc, _ := r.Context().Value(values.ContextTracingKey).(tracing.Context)
	return tc
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	authorization := strings.Split(header, " ")
	if len(authorization) != 2 || authorization[0] != "Bearer" {
		return "", true
	}
	return authorization[1], true
}

// RequireLogin verifies the access token and loads the user so a deleted
// account cannot keep using a live token.
func (api *API) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok || token == "" {
			writeErrorResponse(w, errors.New(values.NotAuthorised), values.NotAuthorised, "not-authorized")
			return
		}

		claims, err := api.verifyToken(token, false)
		if err != nil {
			if errors.Is(err, errTokenExpired) {
				writeErrorResponse(w, err, values.TokenExpired, "token-expired")
				return
			}
			writeErrorResponse(w, err, values.NotAuthorised, "invalid-token")
			return
		}

		dbCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		user, err := api.GetUserByID(dbCtx, claims.UserID)
		if err != nil {
			writeErrorResponse(w, err, values.NotAuthorised, "user-not-found")
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, values.ContextUserIDKey, user.ID.String())
		ctx = context.WithValue(ctx, values.ContextUserRole, user.Role)
		if user.OfficeCode != nil {
			ctx = context.WithValue(ctx, contextOfficeKey, *user.OfficeCode)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalLogin attaches the caller's identity when a bearer token is sent.
// A malformed or expired token is still rejected.
func (api *API) OptionalLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, present := bearerToken(r)
		if !present {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := api.verifyToken(token, false)
		if err != nil {
			if errors.Is(err, errTokenExpired) {
				writeErrorResponse(w, err, values.TokenExpired, "token-expired")
				return
			}
			writeErrorResponse(w, err, values.NotAuthorised, "invalid-token")
			return
		}

		ctx := context.WithValue(r.Context(), values.ContextUserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, values.ContextUserRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if util.GetUserRoleFromContext(r.Context()) != role {
				writeErrorResponse(w, errors.New("role required: "+role), values.NotAllowed, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allow reports whether key may take another attempt within window. A missing
// or failing limiter lets the attempt through.
func (api *API) allow(ctx context.Context, key string, limit int, windowSetting string, fallback time.Duration) bool {
	if api.Limiter == nil || limit <= 0 {
		return true
	}

	window, err := time.ParseDuration(windowSetting)
	if err != nil || window <= 0 {
		window = fallback
	}

	allowed, err := api.Limiter.Allow(ctx, key, limit, window)
	if err != nil {
		logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
		return true
	}
	return allowed
}

// RateLimitSubmissions throttles complaint submissions per client address.
func (api *API) RateLimitSubmissions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "submit:" + api.clientIP(r)
		if !api.allow(r.Context(), key, api.Config.SubmitRateLimit, api.Config.SubmitRateWindow, time.Hour) {
			writeErrorResponse(w, errors.New("rate limit exceeded"), values.TooManyRequest, "too many complaints submitted, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the peer address unless the peer is a trusted proxy, in which
// case X-Forwarded-For is read right to left up to the first untrusted hop.
func (api *API) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !api.trustedProxy(host) {
		return host
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !api.trustedProxy(hop) {
			return hop
		}
		host = hop
	}
	return host
}

func (api *API) trustedProxy(host string) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, entry := range api.Config.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			if prefix.Contains(addr) {
				return true
			}
			continue
		}
		if proxy, err := netip.ParseAddr(entry); err == nil && proxy.Unmap() == addr {
			return true
		}
	}
	return false
}

func (api *API) verifyToken(tokenString string, isRefresh bool) (*TokenClaims, error) {
	secret := api.Config.JwtSecret
	if isRefresh {
		secret = api.Config.RefreshSecret
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if ve, ok := err.(*jwt.ValidationError); ok {
		if ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, errTokenExpired
		}
	}

	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}

	tokenType, _ := claims["typ"].(string)
	if (isRefresh && tokenType != "refresh") || (!isRefresh && tokenType != "access") {
		return nil, fmt.Errorf("%w: wrong token type", errInvalidToken)
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("%w: missing subject", errInvalidToken)
	}
	role, _ := claims["role"].(string)
	exp, _ := claims["exp"].(float64)

	return &TokenClaims{
		UserID: userID,
		Type:   tokenType,
		Role:   role,
		Exp:    int64(exp),
	}, nil
}
