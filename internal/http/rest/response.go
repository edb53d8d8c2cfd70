package rest

import (
	"encoding/json"
	"net/http"

	"github.com/bwise1/gunaso/util"
	"github.com/bwise1/gunaso/util/logger"
	"github.com/bwise1/gunaso/util/tracing"
	"go.uber.org/zap"
)

type ServerResponse struct {
	Message    string      `json:"message"`
	Status     string      `json:"status"`
	StatusCode int         `json:"-"`
	Data       interface{} `json:"data,omitempty"`
}

func respondWithError(err error, message string, status string, tc *tracing.Context) *ServerResponse {
	code := util.StatusCode(status)
	fields := []zap.Field{
		zap.String("status", status),
		zap.Int("code", code),
		zap.Error(err),
	}
	if tc != nil {
		fields = append(fields, zap.String("request_id", tc.RequestID), zap.String("source", tc.RequestSource))
	}
	if code >= http.StatusInternalServerError {
		logger.Error(message, fields...)
	} else {
		logger.Info(message, fields...)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: code,
	}
}

func writeJSONResponse(w http.ResponseWriter, body []byte, statusCode int) {
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		logger.Warn("failed to write response", zap.Error(err))
	}
}

func writeErrorResponse(w http.ResponseWriter, err error, status string, message string) {
	logger.Info(message, zap.String("status", status), zap.Error(err))
	body, _ := json.Marshal(ServerResponse{Message: message, Status: status})
	writeJSONResponse(w, body, util.StatusCode(status))
}
