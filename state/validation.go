package state

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var namePattern, _ = regexp.Compile("^[0-9a-z._-]+$")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("simname", func(fl validator.FieldLevel) bool {
		return NameValidator(fl.Field().String()) == nil
	})
	if err != nil {
		panic(err)
	}
	return v
}

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func SimConfigValidator(cfg *SimCfg) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
