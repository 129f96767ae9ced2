package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldErrorKind     = "error_kind"
	FieldOperation     = "operation"
	FieldBudgetID      = "budget_id"
	FieldAccountID     = "account_id"
	FieldProjectID     = "project_id"
	FieldAmountCents   = "amount_cents"
	FieldCategory      = "category"
	FieldTimeFilter    = "time_filter"
	FieldEventID       = "event_id"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentLedger     = "ledger"
	ComponentBudget     = "budget"
	ComponentStatistics = "statistics"
	ComponentReconciler = "reconciler"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentCache      = "cache"
	ComponentSecurity   = "security"
	ComponentRateLimit  = "rate_limit"
	ComponentBackend    = "backend"
)

// Operations defines standard operation names
const (
	OpSpend     = "spend"
	OpApprove   = "approve"
	OpReconcile = "reconcile"
	OpPromote   = "promote"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)
