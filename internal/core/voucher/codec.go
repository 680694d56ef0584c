// Package voucher converts vouchers to and from the QR payload text.
//
// The payload is plain JSON with exactly four fields:
//
//	{"action":"ADD_MEAL","uid":"...","timestamp":1718000000000,"currentMeals":3}
//
// It is not signed; possession of a fresh payload is the only proof.
package voucher

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
)

var validate = validator.New()

// DecodeError reports why a payload could not be turned into a voucher.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s", domain.ErrMalformedVoucher, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return domain.ErrMalformedVoucher
}

// wirePayload uses pointers so that absent fields are distinguishable from
// zero values.
type wirePayload struct {
	Action       *string `json:"action"       validate:"required,min=1"`
	UID          *string `json:"uid"          validate:"required,min=1"`
	Timestamp    *int64  `json:"timestamp"    validate:"required,gt=0"`
	CurrentMeals *int    `json:"currentMeals" validate:"required,gte=0"`
}

// Encode serialises v into its payload text.
func Encode(v domain.Voucher) (string, error) {
	action := string(v.Action)
	p := wirePayload{
		Action:       &action,
		UID:          &v.UID,
		Timestamp:    &v.Timestamp,
		CurrentMeals: &v.CurrentMeals,
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode voucher: %w", err)
	}
	return string(b), nil
}

// Decode parses payload text. Any problem yields a *DecodeError; there is no
// partial result.
func Decode(text string) (domain.Voucher, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Voucher{}, &DecodeError{Reason: "empty payload"}
	}

	var p wirePayload
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	if err := dec.Decode(&p); err != nil {
		return domain.Voucher{}, &DecodeError{Reason: "invalid json"}
	}
	// Exactly one JSON value; a stray closer or a second value is malformed.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return domain.Voucher{}, &DecodeError{Reason: "trailing data"}
	}

	if err := validate.Struct(p); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return domain.Voucher{}, &DecodeError{Reason: fieldReason(ve[0])}
		}
		return domain.Voucher{}, &DecodeError{Reason: err.Error()}
	}

	return domain.Voucher{
		Action:       domain.VoucherAction(*p.Action),
		UID:          *p.UID,
		Timestamp:    *p.Timestamp,
		CurrentMeals: *p.CurrentMeals,
	}, nil
}

func fieldReason(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must not be empty"
	case "gt", "gte":
		return field + " is out of range"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
