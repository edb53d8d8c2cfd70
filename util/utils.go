package util

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/bwise1/gunaso/util/logger"
	"github.com/twpayne/go-polyline"
	"go.uber.org/zap"
)

const (
	trackingPrefix = "GRV"
	// no 0/O or 1/I so IDs survive being read over the phone
	trackingCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	trackingSuffix  = 6
)

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

// StringPtr returns nil for blank strings.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func randomFrom(charset string, length int) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(charset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}

// GenerateTrackingID returns an id of the form GRV-20260102-AB3CD9.
func GenerateTrackingID(now time.Time) (string, error) {
	suffix, err := randomFrom(trackingCharset, trackingSuffix)
	if err != nil {
		return "", fmt.Errorf("generating tracking id: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s", trackingPrefix, now.UTC().Format("20060102"), suffix), nil
}

// NormalizeTrackingID upper-cases and trims user input.
func NormalizeTrackingID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func ValidTrackingID(s string) bool {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || parts[0] != trackingPrefix {
		return false
	}
	if _, err := time.Parse("20060102", parts[1]); err != nil {
		return false
	}
	if len(parts[2]) != trackingSuffix {
		return false
	}
	for _, r := range parts[2] {
		if !strings.ContainsRune(trackingCharset, r) {
			return false
		}
	}
	return true
}

// GenerateAccessKey returns a random url-safe secret for complaints without an owner account.
func GenerateAccessKey() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func GenerateVerificationCode() string {
	code, err := randomFrom("0123456789", 4)
	if err != nil {
		logger.Error("failed to generate verification code", zap.Error(err))
		return fmt.Sprintf("%04d", time.Now().UnixNano()%10000)
	}
	return code
}

// DecodePolyLines decodes a precision-5 polyline into [lat, lng] pairs.
func DecodePolyLines(shape string) ([][]float64, error) {
	decoded, _, err := polyline.DecodeCoords([]byte(shape))
	if err != nil {
		logger.Warn("error decoding polyline", zap.Error(err))
		return nil, fmt.Errorf("failed to decode polyline %w", err)
	}
	return decoded, nil
}

func IntPtr(i int) *int {
	return &i
}
