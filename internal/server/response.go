// Package server — HTTP-слой сервиса: роутер, middleware и хелперы ответов.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError — тело ошибки в ответе API.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ErrorEnvelope — конверт ошибки.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError отправляет ошибку в едином формате.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondOK отправляет успешный ответ.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondCreated отправляет ответ о созданном ресурсе.
func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
