package domain

import "errors"

// Common domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrValidation         = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
)

// Pipeline errors
var (
	ErrLeadNotFound          = errors.New("lead not found")
	ErrStageNotFound         = errors.New("pipeline stage not found")
	ErrTransitionNotAllowed  = errors.New("transition not allowed from current stage")
	ErrStageConflict         = errors.New("lead stage changed since transition was authorized")
	ErrFinalStageTransitions = errors.New("final stage must not declare outgoing transitions")
	ErrRuleConditionInvalid  = errors.New("validation rule condition is malformed")
)

// Tenant errors
var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrTenantInactive = errors.New("tenant is inactive")
)
