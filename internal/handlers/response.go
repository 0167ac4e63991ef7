package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-authgate/pairgate/internal/services"
	"github.com/go-authgate/pairgate/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var kindStatus = map[services.Kind]int{
	services.KindValidation:       http.StatusBadRequest,
	services.KindRateLimited:      http.StatusTooManyRequests,
	services.KindNotFound:         http.StatusNotFound,
	services.KindInvalidOrExpired: http.StatusGone,
	services.KindAlreadyUsed:      http.StatusConflict,
	services.KindSelfPairing:      http.StatusConflict,
	services.KindSelfTrust:        http.StatusBadRequest,
	services.KindConflict:         http.StatusConflict,
	services.KindRetryNotAllowed:  http.StatusConflict,
	services.KindUnauthorized:     http.StatusUnauthorized,
	services.KindInternal:         http.StatusInternalServerError,
}

// statusForKind maps an error kind onto its HTTP status code.
func statusForKind(kind services.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError writes the JSON error body for err. Internal errors are logged
// and their message is not exposed.
func respondError(c *gin.Context, err error) {
	kind := services.ErrorKind(err)
	status := statusForKind(kind)

	body := gin.H{
		"success":           false,
		"error":             string(kind),
		"error_description": err.Error(),
	}

	var rl *services.RateLimitError
	if errors.As(err, &rl) {
		retryAfter := rl.RetryAfterSeconds()
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		body["retry_after"] = retryAfter
	}

	if kind == services.KindInternal {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
		body["error_description"] = "Internal server error"
	}

	c.AbortWithStatusJSON(status, body)
}

// badRequest reports a malformed request body or parameter.
func badRequest(c *gin.Context, description string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success":           false,
		"error":             string(services.KindValidation),
		"error_description": description,
	})
}

// paginationFromQuery reads page and page_size, falling back to the store
// defaults for missing or malformed values.
func paginationFromQuery(c *gin.Context) store.PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	return store.NewPaginationParams(page, pageSize, c.Query("search"))
}

func paginationJSON(p store.PaginationResult) gin.H {
	return gin.H{
		"total":        p.Total,
		"total_pages":  p.TotalPages,
		"current_page": p.CurrentPage,
		"page_size":    p.PageSize,
		"has_prev":     p.HasPrev,
		"has_next":     p.HasNext,
	}
}
