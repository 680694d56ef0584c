package voucher

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
)

func TestEncode_FieldLayout(t *testing.T) {
	v := domain.Voucher{Action: domain.ActionAddMeal, UID: "u1", Timestamp: 1718000000000, CurrentMeals: 3}

	text, err := Encode(v)
	require.NoError(t, err)
	assert.Equal(t,
		`{"action":"ADD_MEAL","uid":"u1","timestamp":1718000000000,"currentMeals":3}`,
		text)
}

func TestDecode_ValidPayload(t *testing.T) {
	v, err := Decode(`{"action":"ADD_MEAL","uid":"abc","timestamp":1718000000000,"currentMeals":0}`)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionAddMeal, v.Action)
	assert.Equal(t, "abc", v.UID)
	assert.Equal(t, int64(1718000000000), v.Timestamp)
	assert.Equal(t, 0, v.CurrentMeals)
}

func TestDecode_UnknownActionIsNotMalformed(t *testing.T) {
	v, err := Decode(`{"action":"REMOVE_MEAL","uid":"abc","timestamp":1,"currentMeals":2}`)
	require.NoError(t, err)
	assert.Equal(t, domain.VoucherAction("REMOVE_MEAL"), v.Action)
}

func TestDecode_IgnoresExtraFields(t *testing.T) {
	_, err := Decode(`{"action":"ADD_MEAL","uid":"abc","timestamp":1,"currentMeals":2,"version":1}`)
	assert.NoError(t, err)
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":          "not json",
		"empty":             "",
		"null":              "null",
		"array":             `[1,2,3]`,
		"missing uid":       `{"action":"ADD_MEAL","timestamp":1,"currentMeals":0}`,
		"empty uid":         `{"action":"ADD_MEAL","uid":"","timestamp":1,"currentMeals":0}`,
		"missing action":    `{"uid":"a","timestamp":1,"currentMeals":0}`,
		"missing timestamp": `{"action":"ADD_MEAL","uid":"a","currentMeals":0}`,
		"zero timestamp":    `{"action":"ADD_MEAL","uid":"a","timestamp":0,"currentMeals":0}`,
		"string timestamp":  `{"action":"ADD_MEAL","uid":"a","timestamp":"1","currentMeals":0}`,
		"float timestamp":   `{"action":"ADD_MEAL","uid":"a","timestamp":1.5,"currentMeals":0}`,
		"missing meals":     `{"action":"ADD_MEAL","uid":"a","timestamp":1}`,
		"negative meals":    `{"action":"ADD_MEAL","uid":"a","timestamp":1,"currentMeals":-1}`,
		"trailing data":     `{"action":"ADD_MEAL","uid":"a","timestamp":1,"currentMeals":0} {}`,
		"trailing brace":    `{"action":"ADD_MEAL","uid":"a","timestamp":1,"currentMeals":0} }`,
		"trailing bracket":  `{"action":"ADD_MEAL","uid":"a","timestamp":1,"currentMeals":0}]`,
		"trailing word":     `{"action":"ADD_MEAL","uid":"a","timestamp":1,"currentMeals":0} x`,
	}

	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			v, err := Decode(text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrMalformedVoucher), "expected ErrMalformedVoucher, got %v", err)

			var de *DecodeError
			assert.True(t, errors.As(err, &de))
			assert.Equal(t, domain.Voucher{}, v)
		})
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("decode(encode(v)) == v", prop.ForAll(
		func(action, uid string, ts int64, meals int) bool {
			v := domain.Voucher{
				Action:       domain.VoucherAction(action),
				UID:          uid,
				Timestamp:    ts,
				CurrentMeals: meals,
			}
			text, err := Encode(v)
			if err != nil {
				return false
			}
			got, err := Decode(text)
			return err == nil && got == v
		},
		gen.OneConstOf("ADD_MEAL", "REDEEM_FREE", "X"),
		gen.Identifier(),
		gen.Int64Range(1, 1<<53),
		gen.IntRange(0, 10000),
	))

	properties.TestingRun(t)
}
