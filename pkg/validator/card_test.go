package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardValidator_Validate(t *testing.T) {
	v := NewCardValidator()

	valid := CardDetails{
		Number: "4111111111111111",
		Holder: "Jane Doe",
		Expiry: "12/27",
		CVV:    "123",
	}

	t.Run("Valid Card", func(t *testing.T) {
		number, err := v.Validate(valid)
		require.NoError(t, err)
		assert.Equal(t, "4111111111111111", number)
	})

	t.Run("Spaces And Dashes Stripped", func(t *testing.T) {
		d := valid
		d.Number = "4111 1111-1111 1111"
		number, err := v.Validate(d)
		require.NoError(t, err)
		assert.Equal(t, "4111111111111111", number)
	})

	t.Run("Short Number", func(t *testing.T) {
		d := valid
		d.Number = "411111111111"
		_, err := v.Validate(d)
		assert.ErrorIs(t, err, ErrInvalidCardNumber)
	})

	t.Run("Non Digit Number", func(t *testing.T) {
		d := valid
		d.Number = "4111x11111111111"
		_, err := v.Validate(d)
		assert.ErrorIs(t, err, ErrInvalidCardNumber)
	})

	t.Run("Bad CVV", func(t *testing.T) {
		d := valid
		d.CVV = "12"
		_, err := v.Validate(d)
		assert.ErrorIs(t, err, ErrInvalidCVV)

		d.CVV = "12a"
		_, err = v.Validate(d)
		assert.ErrorIs(t, err, ErrInvalidCVV)
	})

	t.Run("Bad Expiry", func(t *testing.T) {
		d := valid
		d.Expiry = "13/27"
		_, err := v.Validate(d)
		assert.ErrorIs(t, err, ErrInvalidExpiry)

		d.Expiry = "2027-12"
		_, err = v.Validate(d)
		assert.ErrorIs(t, err, ErrInvalidExpiry)
	})

	t.Run("Empty Expiry Allowed", func(t *testing.T) {
		d := valid
		d.Expiry = ""
		_, err := v.Validate(d)
		assert.NoError(t, err)
	})

	t.Run("Missing Holder", func(t *testing.T) {
		d := valid
		d.Holder = "   "
		_, err := v.Validate(d)
		assert.ErrorIs(t, err, ErrEmptyCardHolder)
	})
}

func TestCardValidator_LastFour(t *testing.T) {
	v := NewCardValidator()
	assert.Equal(t, "1111", v.LastFour("4111 1111 1111 1111"))
	assert.Equal(t, "123", v.LastFour("123"))
}
