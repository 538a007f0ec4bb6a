package constants

import (
	"github.com/go-playground/validator/v10"
)

type ContextKey int

const (
	PoolKey ContextKey = iota
	TxKey
	TenantIDKey
	IdentityKey
	LoggerKey
	ParamsKey
)

var Validate = validator.New(validator.WithRequiredStructEnabled())
