package utils

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"studynotion/backend/apperrors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
	return v
}

// ValidationError carries per-field failures next to the classified error.
type ValidationError struct {
	Fields map[string]string
	cause  *apperrors.Error
}

func (e *ValidationError) Error() string { return e.cause.Message }

func (e *ValidationError) Unwrap() error { return e.cause }

// Validate runs the struct tags of v. Missing required fields collapse to
// apperrors.ErrMissingFields; any other rule produces a validation error naming the field.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apperrors.New(apperrors.KindValidation, "Invalid input")
	}

	fields := make(map[string]string, len(ve))
	var cause *apperrors.Error
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
		switch {
		case fe.Tag() == "required":
			cause = apperrors.ErrMissingFields
		case cause == nil:
			cause = apperrors.New(apperrors.KindValidation, "Invalid "+fe.Field())
		}
	}
	return &ValidationError{Fields: fields, cause: cause}
}

// ParseBody decodes JSON, form or multipart fields into dst and validates it.
func ParseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.New(apperrors.KindValidation, "Invalid request body")
	}
	return Validate(dst)
}

// ParseUUID parses a path, query or body identifier.
func ParseUUID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperrors.ErrInvalidID
	}
	return id, nil
}

// ParseUUIDs parses every id, failing on the first malformed one.
func ParseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := ParseUUID(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
