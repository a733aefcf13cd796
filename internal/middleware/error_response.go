package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/teetimes/internal/model"
)

// ErrorResponseBody は404/405/429/500で返すJSONボディ。
// /courses と /tee_times の正常系はこの形式を使わない。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

func bodyFromAPIError(e *model.APIError) ErrorResponseBody {
	return ErrorResponseBody{
		Code:     e.Code,
		Message:  e.Message,
		Category: e.Category,
		Action:   e.Action,
	}
}

// WriteErrorResponse はAPIErrorをstatusCodeとともにJSONで書き込む。
// ヘッダーは呼び出し側で事前に設定しておく（Retry-Afterなど）。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(bodyFromAPIError(apiErr)); err != nil {
		slog.Debug("failed to write error response",
			slog.String("code", apiErr.Code),
			slog.String("error", err.Error()),
		)
	}
}

// WriteInternalServerError は500を書き込む。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}
