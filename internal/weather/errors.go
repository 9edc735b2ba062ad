package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth is returned when the provider rejects the API key.
	ErrAuth = errors.New("provider rejected api key")
	// ErrInvalidCity is returned when the provider cannot resolve a location.
	ErrInvalidCity = errors.New("invalid city")
	// ErrProvider covers every other upstream, network or decode failure.
	ErrProvider = errors.New("provider request failed")
	// ErrStore wraps persistence failures.
	ErrStore = errors.New("cache store failure")
)

// ProviderErrorKind classifies a ProviderError.
type ProviderErrorKind int

const (
	KindGeneric ProviderErrorKind = iota
	KindAuth
	KindInvalidCity
)

// ProviderError is the error returned by Provider implementations.
// errors.Is matches it against ErrAuth, ErrInvalidCity or ErrProvider.
type ProviderError struct {
	Kind       ProviderErrorKind
	City       string
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.sentinel().Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *ProviderError) sentinel() error {
	switch e.Kind {
	case KindAuth:
		return ErrAuth
	case KindInvalidCity:
		return ErrInvalidCity
	default:
		return ErrProvider
	}
}

// NewProviderError builds a ProviderError from an HTTP status code.
// 401 maps to KindAuth, 400 to KindInvalidCity, anything else to KindGeneric.
func NewProviderError(city string, status int) *ProviderError {
	switch status {
	case 401:
		return &ProviderError{Kind: KindAuth, City: city, StatusCode: status, Message: "invalid API key"}
	case 400:
		return &ProviderError{Kind: KindInvalidCity, City: city, StatusCode: status, Message: fmt.Sprintf("invalid city name: %s", city)}
	default:
		return &ProviderError{Kind: KindGeneric, City: city, StatusCode: status, Message: fmt.Sprintf("API request failed with status %d", status)}
	}
}

// WrapProviderError turns a transport or decode failure into a generic ProviderError.
// ProviderErrors pass through unchanged.
func WrapProviderError(city, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{
		Kind:    KindGeneric,
		City:    city,
		Message: fmt.Sprintf("failed to fetch %s for %s", op, city),
		Err:     err,
	}
}
