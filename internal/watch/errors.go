package watch

import (
	"fmt"
)

type ErrUnknownEvent struct {
	name string
}

func (e *ErrUnknownEvent) Error() string {
	return fmt.Sprintf("unknown listen event: %s (want create, write, remove, rename or chmod)", e.name)
}
