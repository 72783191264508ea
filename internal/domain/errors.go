package domain

import "errors"

var (
	// ErrValidation is returned when a card is created or edited without required content.
	ErrValidation = errors.New("validation failed")

	// ErrCardNotFound is returned when an operation references a card id that does not exist.
	ErrCardNotFound = errors.New("card not found")

	// ErrMalformedContent is returned when a serialized card side cannot be decoded.
	ErrMalformedContent = errors.New("malformed content")

	// ErrMalformedCard is returned when a serialized card is missing required fields or
	// carries values outside their domain.
	ErrMalformedCard = errors.New("malformed card")

	// ErrInvalidBox is returned for box numbers outside 1..MaxBox.
	ErrInvalidBox = errors.New("invalid box")
)
