package handler

// errorResponse documents the envelope rendered by api.NewHTTPErrorHandler.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
