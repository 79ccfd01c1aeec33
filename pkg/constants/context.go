package constants

type ContextKey string

const (
	TxKey        ContextKey = "tx"
	PoolKey      ContextKey = "pool"
	LoggerKey    ContextKey = "logger"
	CallerKey    ContextKey = "caller"
	ParamsKey    ContextKey = "params"
	RequestStart ContextKey = "requestStart"
)
