package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldCollection = "collection"
	FieldDocID      = "doc_id"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldCount      = "count"
	FieldState      = "state"
	FieldAttempt    = "attempt"
	FieldDelay      = "delay"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSchemaVer  = "schema_version"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentSync      = "sync"
	ComponentCache     = "cache"
	ComponentNormalize = "normalize"
	ComponentRemote    = "remote"
	ComponentMigration = "migration"
	ComponentProject   = "projection"
	ComponentHTTP      = "http"
	ComponentExport    = "export"
)

// Operations defines standard operation names
const (
	OpAdd       = "add"
	OpUpdate    = "update"
	OpRemove    = "remove"
	OpSubscribe = "subscribe"
	OpSnapshot  = "snapshot"
	OpRetry     = "retry"
	OpGet       = "get"
	OpSet       = "set"
	OpMigrate   = "migrate"
	OpExport    = "export"
	OpImport    = "import"
)
