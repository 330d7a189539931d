package rdb

import "errors"

var (
	ErrInvitationInvalid = errors.New("invitation is not valid for this email")
	ErrStateMismatch     = errors.New("record is not in the required state")
)
