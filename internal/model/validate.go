package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

// ErrInvalid marks records rejected by Validate.
var ErrInvalid = eris.New("model: invalid record")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags on v and returns an error wrapping ErrInvalid
// that lists every failing field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return eris.Wrap(err, "model: validate")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return eris.Wrap(ErrInvalid, strings.Join(msgs, "; "))
}
