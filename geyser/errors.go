package geyser

import (
	"errors"
	"fmt"
)

// Kind names a notification category
type Kind string

const (
	KindAccount      Kind = "account"
	KindTransaction  Kind = "transaction"
	KindSlot         Kind = "slot"
	KindBlock        Kind = "block"
	KindEntry        Kind = "entry"
	KindEndOfStartup Kind = "end_of_startup"
)

// ErrProtocolFault is matched by every ProtocolFault
var ErrProtocolFault = errors.New("protocol fault")

// ProtocolFault is a payload version the bridge does not support. A correctly
// configured host never sends one, so receiving it is an integration error
// and the process should stop.
type ProtocolFault struct {
	Kind    Kind
	Version string
}

// Fault builds a ProtocolFault
func Fault(kind Kind, version string) *ProtocolFault {
	return &ProtocolFault{Kind: kind, Version: version}
}

func (f *ProtocolFault) Error() string {
	return fmt.Sprintf("protocol fault: unsupported %s payload version %s", f.Kind, f.Version)
}

func (f *ProtocolFault) Is(target error) bool {
	return target == ErrProtocolFault
}
