package handlers

import (
	"nhrpd/internal/errs"
	"nhrpd/internal/nhrp"
)

func errNotARegistration(msg *nhrp.NhrpMessage) error {
	return errs.Newf(errs.Invalid, "Registration handler invoked with operation type %v", msg.Header.OpType)
}

func errNotAPurge(msg *nhrp.NhrpMessage) error {
	return errs.Newf(errs.Invalid, "Purge handler invoked with operation type %v", msg.Header.OpType)
}

func errNotAResolution(msg *nhrp.NhrpMessage) error {
	return errs.Newf(errs.Invalid, "Resolution handler invoked with operation type %v", msg.Header.OpType)
}
