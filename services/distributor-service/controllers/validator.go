package controllers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
)

// FieldError names one request field that failed validation
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("productkey", func(fl validator.FieldLevel) bool {
			return models.ValidateProductKey(fl.Field().String()) == nil
		})
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// bindJSON decodes the body into req and responds with a ValidationError
// when decoding or a binding rule fails.
func bindJSON(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	appErr := apperrors.Validation("Invalid request", err)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		appErr = appErr.WithDetails(fields)
	}
	apperrors.Respond(c, appErr)
	return false
}
