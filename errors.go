package slidecast

import (
	"errors"

	"github.com/brunobiangulo/slidecast/export"
	"github.com/brunobiangulo/slidecast/parser"
)

var (
	// ErrDeckNotFound is returned when a deck ID does not exist.
	ErrDeckNotFound = errors.New("slidecast: deck not found")

	// ErrUnsupportedFormat is returned for unrecognized presentation formats.
	ErrUnsupportedFormat = errors.New("slidecast: unsupported presentation format")

	// ErrParsingFailed is returned when a parser rejects the input.
	ErrParsingFailed = errors.New("slidecast: parsing failed")

	// ErrSourceUnreadable is returned when the presentation file cannot be
	// read. An unreadable file is never reported as an empty deck.
	ErrSourceUnreadable = parser.ErrSourceUnreadable

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("slidecast: store is closed")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("slidecast: invalid configuration")

	// ErrUnsupportedExport is returned for an unknown export format.
	ErrUnsupportedExport = export.ErrUnsupportedFormat
)
