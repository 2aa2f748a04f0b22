package announcement

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/chuo/core"
)

var (
	audienceTag  = "audience"
	audienceText = "audience must be one of: all, registrars, professors"
)

func init() {
	_ = core.Validate.RegisterValidation(audienceTag, audienceValidation)
	core.RegisterCustomTranslation(audienceTag, audienceText)
}

func audienceValidation(fl validator.FieldLevel) bool {
	audience := fl.Field().String()
	for _, aud := range AllAudiences {
		if audience == aud {
			return true
		}
	}
	return false
}
