package models

import "errors"

var (
	ErrFetch        = errors.New("fetch failed")
	ErrParse        = errors.New("parse failed")
	ErrFilterEmpty  = errors.New("no news items match the selected platforms")
	ErrInvalidInput = errors.New("invalid input")
	ErrPersistence  = errors.New("persistence failed")
)
