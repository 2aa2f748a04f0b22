package student

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/chuo/core"
)

var (
	schoolYearTag  = "schoolyear"
	schoolYearText = "school year must be two consecutive years like 2024-2025"
)

func init() {
	_ = core.Validate.RegisterValidation(schoolYearTag, schoolYearValidation)
	core.RegisterCustomTranslation(schoolYearTag, schoolYearText)
}

// schoolYearValidation checks a "YYYY-YYYY" school year string covering two
// consecutive calendar years.
func schoolYearValidation(fl validator.FieldLevel) bool {
	parts := strings.SplitN(fl.Field().String(), "-", 2)
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 4 {
		return false
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	return end == start+1
}
