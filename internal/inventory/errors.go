package inventory

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNullInput         = errors.New("null input")
)

const (
	KindInvalidArgument   = "invalid_argument"
	KindNotFound          = "not_found"
	KindAlreadyExists     = "already_exists"
	KindInsufficientStock = "insufficient_stock"
	KindNullInput         = "null_input"
)

var kinds = map[string]error{
	KindInvalidArgument:   ErrInvalidArgument,
	KindNotFound:          ErrNotFound,
	KindAlreadyExists:     ErrAlreadyExists,
	KindInsufficientStock: ErrInsufficientStock,
	KindNullInput:         ErrNullInput,
}

// Error is returned by every engine operation that rejects its input.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the wire name of err's kind, or "" if err did not come from
// the engine.
func KindOf(err error) string {
	for name, kind := range kinds {
		if errors.Is(err, kind) {
			return name
		}
	}
	return ""
}

// FromKind rebuilds an engine error from its wire name. Unknown names yield a
// plain error carrying msg.
func FromKind(name, msg string) error {
	kind, ok := kinds[name]
	if !ok {
		return errors.New(msg)
	}
	return &Error{Kind: kind, Msg: msg}
}

var errNullInput = &Error{Kind: ErrNullInput, Msg: "null input parameters"}

func invalidISBN(isbn int) error {
	return errorf(ErrInvalidArgument, "isbn %d is invalid", isbn)
}

func unknownISBN(isbn int) error {
	return errorf(ErrNotFound, "isbn %d is not available", isbn)
}
