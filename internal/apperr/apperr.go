// Package apperr servis katmanının hata sınıflarını ve HTTP karşılıklarını tanımlar.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrValidation          = errors.New("geçersiz istek")
	ErrInsufficientStock   = errors.New("yetersiz stok")
	ErrReconciliationGuard = errors.New("içe aktarma dosyasında kayıt bulunamadı")
	ErrOversizedImport     = errors.New("dosya senkron içe aktarma için çok büyük")
	ErrStoreFailure        = errors.New("veritabanı hatası")
	ErrNotFound            = errors.New("kayıt bulunamadı")
	ErrConflict            = errors.New("kayıt zaten mevcut")
)

// Error bir hata sınıfını kullanıcıya gösterilecek mesajla taşır.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return newf(ErrValidation, format, args...)
}

func InsufficientStock(format string, args ...any) error {
	return newf(ErrInsufficientStock, format, args...)
}

func NotFound(format string, args ...any) error {
	return newf(ErrNotFound, format, args...)
}

func Conflict(format string, args ...any) error {
	return newf(ErrConflict, format, args...)
}

func Guard(format string, args ...any) error {
	return newf(ErrReconciliationGuard, format, args...)
}

func Oversized(format string, args ...any) error {
	return newf(ErrOversizedImport, format, args...)
}

// Store veritabanı hatasını sarar. Zaten sınıflandırılmış hatalar olduğu gibi döner.
func Store(msg string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: ErrStoreFailure, Message: msg, Cause: err}
}

// Message kullanıcıya dönülecek metni verir; iç hata detayı sızdırılmaz.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return ErrStoreFailure.Error()
}

func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, ErrInsufficientStock):
		return fiber.StatusConflict
	case errors.Is(err, ErrReconciliationGuard):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, ErrOversizedImport):
		return fiber.StatusRequestEntityTooLarge
	default:
		return fiber.StatusInternalServerError
	}
}

// ToFiber servis hatasını fiber hatasına çevirir.
func ToFiber(err error) error {
	if err == nil {
		return nil
	}
	return fiber.NewError(Status(err), Message(err))
}
