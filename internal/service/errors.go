package service

import "errors"

var (
	ErrEmptyPatch           = errors.New("no valid fields provided for update")
	ErrWrongPassword        = errors.New("current password is incorrect")
	ErrSelfDelete           = errors.New("cannot delete your own account")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidAdminCode     = errors.New("invalid admin code")
	ErrAccessDenied         = errors.New("access denied")
	ErrTaskNotFoundOrDenied = errors.New("task not found or access denied")
)
