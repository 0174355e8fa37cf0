package compiler

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

// validatorInstance returns the package-wide validator, built once.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New()
	})
	return validatorInst
}

type stepAttrs struct {
	Name string `validate:"required"`
	Exec string `validate:"required"`
}

type groupAttrs struct {
	Name string `validate:"required"`
}
