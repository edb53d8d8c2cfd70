package util

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"strconv"

	"github.com/bwise1/gunaso/util/tracing"
	"github.com/bwise1/gunaso/util/values"
	"github.com/google/go-querystring/query"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 10000

	// MaxJSONBodyBytes caps every JSON request body.
	MaxJSONBodyBytes = 1 << 20
)

var ErrBodyTooLarge = errors.New("request body too large")

// StatusCode returns the status code represented
// by the specified status. Note that this function
// returns a status code of 200 by default
func StatusCode(status string) int {
	switch status {
	case values.Error, values.Failed:
		return http.StatusInternalServerError
	case values.Created:
		return http.StatusCreated
	case values.BadRequestBody:
		return http.StatusBadRequest
	case values.Unprocessable:
		return http.StatusUnprocessableEntity
	case values.NotAllowed:
		return http.StatusForbidden
	case values.Conflict:
		return http.StatusConflict
	case values.NotFound:
		return http.StatusNotFound
	case values.NotAuthorised, values.TokenExpired:
		return http.StatusUnauthorized
	case values.ActiveLogin:
		return http.StatusForbidden
	case values.TooManyRequest:
		return http.StatusTooManyRequests
	default:
		return http.StatusOK
	}
}

// DecodeJSONBody ...
func DecodeJSONBody(tc *tracing.Context, body io.ReadCloser, target interface{}) error {
	if body == nil {
		return fmt.Errorf("missing request body for request: %v", tc)
	}
	defer func() {
		_ = body.Close()
	}()

	limited := &io.LimitedReader{R: body, N: MaxJSONBodyBytes + 1}
	if err := json.NewDecoder(limited).Decode(target); err != nil {
		if limited.N <= 0 {
			return errors.Wrapf(ErrBodyTooLarge, "json body over %d bytes for request: %v", MaxJSONBodyBytes, tc)
		}
		return errors.Wrapf(err, "Error parsing json body for request: %v", tc)
	}

	return nil
}

func ValidEmail(email string) error {
	if email == "" {
		return errors.New("invalid email address")
	}
	_, err := mail.ParseAddress(email)
	return err
}

func GenerateUUID() uuid.UUID {
	return uuid.New()
}

// GetUserIDFromContext extracts the user ID from the context.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	userIDStr, ok := ctx.Value(values.ContextUserIDKey).(string)
	if !ok || userIDStr == "" {
		return uuid.Nil, errors.New("user ID not found in context")
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, errors.New("invalid user ID format")
	}

	return userID, nil
}

func GetUserRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(values.ContextUserRole).(string)
	return role
}

// string to UUID
func StringToUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// PageParams reads page and page_size from the query string, clamped to sane bounds.
func PageParams(q url.Values) (int, int) {
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	pageSize, err := strconv.Atoi(q.Get("page_size"))
	if err != nil || pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// PageLink encodes a filter struct (tagged with `url`) onto base. It returns an
// empty string when the filter cannot be encoded.
func PageLink(base string, filter interface{}) string {
	v, err := query.Values(filter)
	if err != nil {
		return ""
	}
	if len(v) == 0 {
		return base
	}
	return base + "?" + v.Encode()
}

func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
