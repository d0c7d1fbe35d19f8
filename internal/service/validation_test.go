package service

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counseling-api/internal/dto"
)

func TestFieldErrorsUseJSONNames(t *testing.T) {
	err := NewValidator().Struct(dto.LoginRequest{Email: "not-an-email"})

	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))

	fields := FieldErrors(validationErrors)
	require.ElementsMatch(t, []FieldError{
		{Field: "email", Message: "must be a valid email address"},
		{Field: "password", Message: "is required"},
	}, fields)
}

func TestCustomRulesRejectMalformedDigits(t *testing.T) {
	type contact struct {
		Phone   string `json:"phone" validate:"digits10"`
		Pincode string `json:"pincode" validate:"pincode"`
	}

	validate := NewValidator()
	require.NoError(t, validate.Struct(contact{Phone: "9876543210", Pincode: "560001"}))

	err := validate.Struct(contact{Phone: "98765", Pincode: "56OO01"})
	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))
	require.Len(t, FieldErrors(validationErrors), 2)
}
