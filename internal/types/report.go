package types

// FileReport is one entry of a multi-file analysis run. Exactly one of
// Response and Error is set.
type FileReport struct {
	File     string            `json:"file"`
	Response *AnalysisResponse `json:"response,omitempty"`
	Error    *ErrorInfo        `json:"error,omitempty"`
}

// ErrorInfo carries an error code and its fixed human-readable detail.
type ErrorInfo struct {
	Code   string `json:"error"`
	Detail string `json:"detail"`
}
