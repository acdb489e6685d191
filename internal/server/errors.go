package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	invoicedomain "github.com/tracklane/tracklane/internal/invoice/domain"
	issuedomain "github.com/tracklane/tracklane/internal/issue/domain"
	notificationdomain "github.com/tracklane/tracklane/internal/notification/domain"
	projectdomain "github.com/tracklane/tracklane/internal/project/domain"
	"github.com/tracklane/tracklane/internal/quota"
	timedomain "github.com/tracklane/tracklane/internal/timeentry/domain"
	userdomain "github.com/tracklane/tracklane/internal/user/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var limitErr *quota.LimitError
	if errors.As(err, &limitErr) {
		return http.StatusTooManyRequests, errorPayload{
			Type:    "quota_exceeded",
			Message: limitErr.Error(),
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Code:    err.Error(),
					Message: "invalid value",
				},
			},
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger's error_type/error_code
// fields without re-serializing the response payload.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, userdomain.ErrInvalidUsername),
		errors.Is(err, projectdomain.ErrIdentifierRequired),
		errors.Is(err, issuedomain.ErrInvalidStatus),
		errors.Is(err, issuedomain.ErrInvalidPriority),
		errors.Is(err, issuedomain.ErrInvalidLinkType),
		errors.Is(err, issuedomain.ErrTooManyAssignees),
		errors.Is(err, issuedomain.ErrSelfLink),
		errors.Is(err, issuedomain.ErrProjectMismatch),
		errors.Is(err, invoicedomain.ErrInvalidPeriod),
		errors.Is(err, invoicedomain.ErrInvalidStatus):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, projectdomain.ErrNotAuthorized),
		errors.Is(err, notificationdomain.ErrNotAuthorized),
		errors.Is(err, timedomain.ErrNotAuthorized),
		errors.Is(err, invoicedomain.ErrNotAuthorized),
		errors.Is(err, invoicedomain.ErrEntryNotOwned):
		return true
	default:
		return false
	}
}

// isConflictError covers draft staleness: the client is told to refresh
// and retry, so the server echoes the reason verbatim.
func isConflictError(err error) bool {
	switch {
	case errors.Is(err, userdomain.ErrUsernameTaken),
		errors.Is(err, userdomain.ErrEmailTaken),
		errors.Is(err, projectdomain.ErrCannotRemoveCreator),
		errors.Is(err, invoicedomain.ErrEntryUnavailable),
		errors.Is(err, invoicedomain.ErrEntryWrongProject),
		errors.Is(err, invoicedomain.ErrEntryStillRunning),
		errors.Is(err, invoicedomain.ErrEntryAlreadyBilled),
		errors.Is(err, invoicedomain.ErrEntryOutsidePeriod):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, userdomain.ErrUserNotFound),
		errors.Is(err, projectdomain.ErrProjectNotFound),
		errors.Is(err, projectdomain.ErrMemberNotFound),
		errors.Is(err, issuedomain.ErrIssueNotFound),
		errors.Is(err, issuedomain.ErrParentIssueNotFound),
		errors.Is(err, issuedomain.ErrCommentNotFound),
		errors.Is(err, notificationdomain.ErrNotificationNotFound),
		errors.Is(err, timedomain.ErrTimeEntryNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
