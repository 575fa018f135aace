package constants

type ContextKey string

const (
	AppKey       ContextKey = "app"
	PoolKey      ContextKey = "pool"
	TxKey        ContextKey = "tx"
	LoggerKey    ContextKey = "logger"
	ParamsKey    ContextKey = "params"
	ActorKey     ContextKey = "actor"
	RequestStart ContextKey = "requestStart"
)

// SystemActor is recorded when a mutation carries no staff identity.
const SystemActor = "system"
