package config

import (
	"fmt"
)

type ErrMissingOption struct {
	option string
}

func (e *ErrMissingOption) Error() string {
	return fmt.Sprintf("missing required option: %s", e.option)
}

type ErrConflictingOptions struct {
	a string
	b string
}

func (e *ErrConflictingOptions) Error() string {
	return fmt.Sprintf("options are mutually exclusive: %s and %s", e.a, e.b)
}

type ErrBadValue struct {
	option string
	reason string
}

func (e *ErrBadValue) Error() string {
	return fmt.Sprintf("bad value for option %s: %s", e.option, e.reason)
}
