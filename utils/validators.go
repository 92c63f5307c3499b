package utils

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func RegisterCustomValidators(v *validator.Validate) {
	_ = v.RegisterValidation("objectid", ValidateObjectIDRule)
	_ = v.RegisterValidation("notetag", ValidateTagRule)
	v.RegisterTagNameFunc(fieldName)
}

// fieldName reports fields by their wire name in validation errors.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "uri", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

var (
	Validate      *validator.Validate
	validatorOnce sync.Once
)

// InitValidator registers the custom rules on both the standalone validator
// and the engine gin uses for binding tags. Safe to call more than once.
func InitValidator() {
	validatorOnce.Do(func() {
		Validate = validator.New()
		RegisterCustomValidators(Validate)
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			RegisterCustomValidators(v)
		}
	})
}

func ValidateObjectIDRule(fl validator.FieldLevel) bool {
	return IsValidNoteID(fl.Field().String())
}

func ValidateTagRule(fl validator.FieldLevel) bool {
	return ValidateTag(fl.Field().String())
}

// IsValidNoteID reports whether id has the store's 24 hex character form.
func IsValidNoteID(id string) bool {
	return primitive.IsValidObjectID(id)
}

// ValidateTag rejects separators that would break comma separated tag input
func ValidateTag(tag string) bool {
	return !strings.ContainsAny(tag, ",\n\r\t")
}
