package gearbox

import (
	"errors"
	"fmt"

	"creditScope/internal/model"
)

// ErrMalformedLog matches any MalformedLogError.
var ErrMalformedLog = errors.New("malformed log")

// MalformedLogError reports a log whose topics or data do not match the event ABI.
type MalformedLogError struct {
	Meta   model.EventMeta
	Event  string
	Reason string
}

func (e *MalformedLogError) Error() string {
	name := e.Event
	if name == "" {
		name = "log"
	}
	return fmt.Sprintf("malformed %s at %d:%d: %s", name, e.Meta.BlockNumber, e.Meta.LogIndex, e.Reason)
}

func (e *MalformedLogError) Is(target error) bool {
	return target == ErrMalformedLog
}
