package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidTransaction wraps every validation failure.
var ErrInvalidTransaction = errors.New("invalid transaction")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateTransaction checks a user-entered transaction before it is stored.
// The type is normalized first so legacy "transfer" values pass as lent.
func ValidateTransaction(t *Transaction) error {
	t.Type = NormalizeType(t.Type)
	if err := validatorInstance().Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidTransaction, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	return nil
}
