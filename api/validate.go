package api

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// amountRule bounds the number of questions per interview on every path.
const amountRule = "min=1,max=50"

// validationMessage maps a validator error to the client-facing message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				return "Missing fields"
			}
		}
	}
	return "Invalid request"
}
