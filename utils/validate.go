package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs validator tags on s and returns one message per
// violated field, or nil when the struct is valid. All violations are
// reported at once rather than failing on the first.
func ValidateStruct(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}
	messages := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		messages[fieldName(fe)] = fieldMessage(fe)
	}
	return messages
}

func fieldName(fe validator.FieldError) string {
	// Strip the top-level struct name from the namespace:
	// "RegisterUserRequest.Email" -> "email", "Product.Price.Original"
	// -> "price.original".
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldName(fe))
	case "email":
		return "invalid email address"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters long", fieldName(fe), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fieldName(fe), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fieldName(fe), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fieldName(fe), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fieldName(fe))
	}
}
