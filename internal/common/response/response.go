package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uae-home-services/service-booking/internal/common/domain"
	"github.com/uae-home-services/service-booking/internal/common/validation"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    any         `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Pagination `json:"meta,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Pagination is attached to list responses.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// Success writes 200 with data.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes 201 with data.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated writes 200 with a page of items and pagination metadata.
func Paginated(c *gin.Context, items any, total int64, page, limit int) {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    items,
		Meta:    &Pagination{Total: total, Page: page, Limit: limit, TotalPages: totalPages},
	})
}

// BadRequest writes 400 with a validation error code.
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, &ErrorBody{Code: string(domain.CodeValidation), Message: message})
}

// Unauthorized writes 401.
func Unauthorized(c *gin.Context, message string) {
	abort(c, http.StatusUnauthorized, &ErrorBody{Code: string(domain.CodeUnauthorized), Message: message})
}

// Forbidden writes 403.
func Forbidden(c *gin.Context, message string) {
	abort(c, http.StatusForbidden, &ErrorBody{Code: string(domain.CodeForbidden), Message: message})
}

// BindError writes 400 for a failed request binding, listing field errors when present.
func BindError(c *gin.Context, err error) {
	fields := validation.FieldErrors(err)
	if fields == nil {
		BadRequest(c, err.Error())
		return
	}
	abort(c, http.StatusBadRequest, &ErrorBody{
		Code:    string(domain.CodeValidation),
		Message: validation.Format(fields),
		Fields:  fields,
	})
}

// Error maps an error to an HTTP status through its AppError code.
// Errors without a code are reported as 500 without leaking their message.
func Error(c *gin.Context, err error) {
	code := domain.CodeOf(err)
	status := StatusFor(code)

	message := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		message = "internal server error"
	}
	abort(c, status, &ErrorBody{Code: string(code), Message: message})
}

// StatusFor returns the HTTP status used for an error code.
func StatusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeUnauthorized:
		return http.StatusUnauthorized
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeConflict, domain.CodeInvalidTransition:
		return http.StatusConflict
	case domain.CodeRescheduleLimitExceeded:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, status int, body *ErrorBody) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: body})
}
