package service

import "errors"

var (
	ErrDuplicateService   = errors.New("service already registered")
	ErrMissingDependency  = errors.New("unregistered dependency")
	ErrCircularDependency = errors.New("circular dependency detected in services")
	ErrNotInitialized     = errors.New("services not initialized")
)
