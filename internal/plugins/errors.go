package plugins

import (
	"errors"
	"fmt"
)

var ErrUnknownPlugin = errors.New("unknown plugin")

type panicError struct {
	plugin string
	value  any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("plugin %s panicked: %v", e.plugin, e.value)
}
