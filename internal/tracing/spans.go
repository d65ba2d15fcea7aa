package tracing

// Span names.
const (
	SpanPersist      = "autosave.persist"
	SpanPrefixAssist = "assist."
)

// Span attribute keys.
const (
	AttrDocumentID  = "document.id"
	AttrSaveReason  = "save.reason"
	AttrAssistModel = "assist.model"
	AttrInputBytes  = "input.bytes"
	AttrOutputBytes = "output.bytes"
	AttrHTTPStatus  = "http.status_code"
)
