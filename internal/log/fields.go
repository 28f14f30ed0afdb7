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
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldMonth         = "month"
	FieldPhase         = "phase"
	FieldCollection    = "collection"
	FieldRange         = "range"
	FieldRows          = "rows"
	FieldSkipped       = "skipped"
	FieldSpreadsheetID = "spreadsheet_id"
	FieldExpiresAt     = "expires_at"
	FieldEventType     = "event_type"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentCoordinator = "coordinator"
	ComponentSheets      = "sheets"
	ComponentIdentity    = "identity"
	ComponentSession     = "session"
	ComponentStorage     = "storage"
	ComponentNotify      = "notify"
	ComponentAMQP        = "amqp"
	ComponentWebsocket   = "websocket"
	ComponentWorker      = "worker"
)

// Operations defines standard operation names
const (
	OpLoad     = "load"
	OpWrite    = "write"
	OpSignIn   = "sign_in"
	OpSignOut  = "sign_out"
	OpRestore  = "restore"
	OpExpire   = "expire"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpMarkPaid = "mark_paid"
	OpPublish  = "publish"
	OpRefresh  = "refresh"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message. A nil error adds nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSync adds the phase and collection a sync step ran for.
func (f LogFields) WithSync(phase, collection string) LogFields {
	if phase != "" {
		f[FieldPhase] = phase
	}
	if collection != "" {
		f[FieldCollection] = collection
	}
	return f
}

// WithRows adds how many rows were kept and skipped for a range.
func (f LogFields) WithRows(rng string, rows, skipped int) LogFields {
	f[FieldRange] = rng
	f[FieldRows] = rows
	f[FieldSkipped] = skipped
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
