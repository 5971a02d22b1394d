package utils

import "errors"

var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrorUnauthorized   = errors.New("unauthorized")
	ErrorDuplicateEmail = errors.New("email already exists")
)
