package directory

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// Envelope is the uniform response shape for every JSON endpoint.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Meta    *PageMeta  `json:"meta,omitempty"`
}

// ErrorBody carries the stable error kind plus a human readable message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PageMeta describes the pagination window of a list response.
type PageMeta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPageMeta computes the meta block for a list response.
func NewPageMeta(page, perPage, total int) *PageMeta {
	pages := 0
	if perPage > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return &PageMeta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: pages,
	}
}

// RespondData writes a success envelope.
func RespondData(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(Envelope{
		Success: true,
		Data:    data,
	})
}

// RespondPage writes a success envelope with pagination meta.
func RespondPage(c *fiber.Ctx, data any, meta *PageMeta) error {
	return c.Status(http.StatusOK).JSON(Envelope{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// RespondError maps a structured error onto the envelope. Unknown errors
// become opaque 500s so internals never leak to clients.
func RespondError(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	body := &ErrorBody{
		Code:    "INTERNAL",
		Message: "an unexpected error occurred",
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		if richErr.Code > 0 {
			status = int(richErr.Code)
		}
		if richErr.TextCode != "" {
			body.Code = richErr.TextCode
		}
		if richErr.Message != "" && status < http.StatusInternalServerError {
			body.Message = richErr.Message
		}
	} else if fiberErr, ok := err.(*fiber.Error); ok {
		status = fiberErr.Code
		body.Message = fiberErr.Message
		body.Code = http.StatusText(fiberErr.Code)
	}

	return c.Status(status).JSON(Envelope{
		Success: false,
		Error:   body,
	})
}
