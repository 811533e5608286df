package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rcastell/shop-backend/internal/auth"
	"github.com/rcastell/shop-backend/internal/core/domain"
)

// statusForError is the single error-kind to HTTP-status table. Unknown
// errors collapse to 500 with a generic message so internals never leak.
func statusForError(err error) (int, string) {
	if _, ok := domain.IsInsufficientStock(err); ok {
		return http.StatusBadRequest, err.Error()
	}

	switch {
	case errors.Is(err, domain.ErrEmptyBasket),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrPurchaseNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrDuplicateRequest),
		errors.Is(err, domain.ErrProductInUse):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// respondError renders err through the status table. Internal failures are
// logged with full context but surfaced generically.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, message := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": message})
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// respondBindingError renders request validation failures as a structured
// field-error list, never touching storage.
func respondBindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldError{
				Field:   fe.Namespace(),
				Message: "failed validation on '" + fe.Tag() + "'",
			})
		}
		c.JSON(http.StatusBadRequest, gin.H{"errors": out})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}

// pagination reads ?page and ?limit. page defaults to 1; limit 0 means
// return everything, matching the listing contract.
func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.Query("limit"))
	if limit < 0 {
		limit = 0
	}
	return page, limit
}

// totalPages is ceil(total/limit) for paginated listing responses.
func totalPages(total, limit int) int {
	if limit <= 0 {
		return 1
	}
	return (total + limit - 1) / limit
}
