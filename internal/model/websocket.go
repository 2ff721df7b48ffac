package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

type WSMessage struct {
	Type string `json:"type"`
}

type WSProgressMessage struct {
	Type        string    `json:"type"`
	JobID       string    `json:"jobId"`
	Status      JobStatus `json:"status"`
	CurrentStep string    `json:"currentStep,omitempty"`
}

type WSCompleteMessage struct {
	Type       string `json:"type"`
	JobID      string `json:"jobId"`
	OutputPath string `json:"outputPath"`
}

type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}
