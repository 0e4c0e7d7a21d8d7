package api

import (
	"errors"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"audiostory-backend-go/internal/core"
	"audiostory-backend-go/internal/models"
)

var registerOnce sync.Once

// RegisterValidators adds the domain rules used in binding tags to Gin's
// validator: "tier" and "uploadkind".
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		if err = v.RegisterValidation("tier", func(fl validator.FieldLevel) bool {
			return models.Tier(fl.Field().String()).Valid()
		}); err != nil {
			return
		}
		err = v.RegisterValidation("uploadkind", func(fl validator.FieldLevel) bool {
			return core.UploadKind(fl.Field().String()).Valid()
		})
	})
	return err
}

// validationDetails flattens validator errors into a short message.
func validationDetails(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msg := ""
	for i, fe := range verrs {
		if i > 0 {
			msg += "; "
		}
		msg += fe.Field() + " failed '" + fe.Tag() + "'"
	}
	return msg
}
