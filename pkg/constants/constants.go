package constants

import (
	"github.com/go-playground/validator/v10"
)

type ContextKey string

const (
	LoggerKey    ContextKey = "logger"
	TxKey        ContextKey = "tx"
	PoolKey      ContextKey = "pool"
	ActorKey     ContextKey = "actor"
	RequestIDKey ContextKey = "request_id"
	RequestStart ContextKey = "request_start"
)

var Validate = validator.New(validator.WithRequiredStructEnabled())
