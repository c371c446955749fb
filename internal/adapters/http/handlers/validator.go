// Package handlers contains the HTTP handlers of the REST API.
//
// A handler is an adapter: it binds the HTTP request into a command or
// query DTO, calls the use case, and renders the result into the response
// envelope. Handlers hold no business rules; everything they reject is a
// malformed request, everything else is the use case's verdict translated
// by common.HandleDomainError.
package handlers

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/centralpay/paycore/internal/adapters/http/common"
)

var setupOnce sync.Once

// SetupValidator registers the custom binding validators with gin's
// validator engine. Safe to call more than once.
func SetupValidator() {
	setupOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			// Report field names from json tags so validation errors
			// match the wire format.
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				return name
			})

			_ = v.RegisterValidation("money_amount", validateMoneyAmount)
			_ = v.RegisterValidation("transaction_type", validateTransactionType)
			_ = v.RegisterValidation("transaction_status", validateTransactionStatus)
		}
	})
}

// ============================================
// Custom Validators
// ============================================

// moneyPattern mirrors what valueobjects.NewMoney accepts: a non-negative
// decimal with at most two fractional digits and at most thirteen integral
// digits. Binding rejects the obvious garbage early; the domain still
// re-validates.
var moneyPattern = regexp.MustCompile(`^\d{1,13}(\.\d{1,2})?$`)

func validateMoneyAmount(fl validator.FieldLevel) bool {
	return moneyPattern.MatchString(fl.Field().String())
}

func validateTransactionType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "TRANSFER", "DEPOSIT", "WITHDRAWAL", "REFUND", "FEE":
		return true
	}
	return false
}

func validateTransactionStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "PENDING", "PROCESSING", "COMPLETED", "FAILED", "CANCELLED":
		return true
	}
	return false
}

// ============================================
// Validation Error Handling
// ============================================

// HandleValidationErrors renders binding failures as a 400 with per-field
// details where the validator provides them.
func HandleValidationErrors(c *gin.Context, err error) {
	var fieldErrors []common.FieldError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range validationErrors {
			fieldErrors = append(fieldErrors, common.FieldError{
				Field:   fieldErr.Field(),
				Message: getValidationMessage(fieldErr),
				Code:    fieldErr.Tag(),
			})
		}
	}

	if len(fieldErrors) == 0 {
		// Not a validator error, e.g. malformed JSON.
		common.BadRequestResponse(c, "Invalid request body: "+err.Error())
		return
	}

	common.ValidationErrorResponse(c, fieldErrors)
}

// getValidationMessage maps a validator tag to a readable message.
func getValidationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "uuid":
		return "Invalid UUID format"
	case "min":
		return "Value is too short (minimum: " + fe.Param() + ")"
	case "max":
		return "Value is too long (maximum: " + fe.Param() + ")"
	case "len":
		return "Value must be exactly " + fe.Param() + " characters"
	case "alpha":
		return "Value must contain only letters"
	case "oneof":
		return "Value must be one of: " + fe.Param()
	case "money_amount":
		return "Invalid amount format (use a decimal string like '100.50')"
	case "transaction_type":
		return "Invalid transaction type"
	case "transaction_status":
		return "Invalid transaction status"
	default:
		return "Invalid value"
	}
}

// ============================================
// Request Parsing Helpers
// ============================================

// BindJSON binds the JSON body into req. Returns false after writing the
// error response when binding fails.
func BindJSON[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		HandleValidationErrors(c, err)
		return false
	}
	return true
}

// BindQuery binds query string parameters.
func BindQuery[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		HandleValidationErrors(c, err)
		return false
	}
	return true
}

// BindURI binds URI path parameters.
func BindURI[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindUri(req); err != nil {
		HandleValidationErrors(c, err)
		return false
	}
	return true
}

// ============================================
// Pagination
// ============================================

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// PaginationParams carries the offset/limit window the list endpoints
// accept. Out-of-range values fall back to defaults rather than erroring.
type PaginationParams struct {
	Offset int
	Limit  int
}

// DefaultPaginationParams returns the first page with the default size.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{Offset: 0, Limit: defaultPageLimit}
}

// ParsePagination reads offset and limit from the query string.
func ParsePagination(c *gin.Context) PaginationParams {
	params := DefaultPaginationParams()

	if offset := c.Query("offset"); offset != "" {
		if v, ok := parseInt(offset); ok {
			params.Offset = v
		}
	}
	if limit := c.Query("limit"); limit != "" {
		if v, ok := parseInt(limit); ok && v > 0 && v <= maxPageLimit {
			params.Limit = v
		}
	}

	return params
}

// parseInt parses a non-negative decimal integer.
func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	var n int
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
		if n > 1<<30 {
			return 0, false
		}
	}
	return n, true
}
