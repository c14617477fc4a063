package apperr

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	err := InsufficientStock("stok yok: %s", "X1")

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "stok yok: X1", err.Error())
}

func TestStoreWrapsOnlyUnclassified(t *testing.T) {
	raw := errors.New("connection reset")
	wrapped := Store("ürün kaydedilemedi", raw)

	assert.True(t, errors.Is(wrapped, ErrStoreFailure))
	assert.True(t, errors.Is(wrapped, raw))
	assert.Equal(t, "ürün kaydedilemedi", Message(wrapped))

	classified := Validation("miktar pozitif olmalı")
	assert.Same(t, classified, Store("x", classified))
	assert.Nil(t, Store("x", nil))
}

func TestStatusMapping(t *testing.T) {
	cases := map[error]int{
		Validation("v"):        fiber.StatusBadRequest,
		NotFound("n"):          fiber.StatusNotFound,
		Conflict("c"):          fiber.StatusConflict,
		InsufficientStock("i"): fiber.StatusConflict,
		Guard("g"):             fiber.StatusUnprocessableEntity,
		Oversized("o"):         fiber.StatusRequestEntityTooLarge,
		errors.New("boom"):     fiber.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, Status(err), err.Error())
	}
}

func TestToFiberHidesInternalDetail(t *testing.T) {
	err := ToFiber(errors.New("pq: relation does not exist"))

	var fe *fiber.Error
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, fiber.StatusInternalServerError, fe.Code)
	assert.Equal(t, ErrStoreFailure.Error(), fe.Message)
}
