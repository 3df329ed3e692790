package httpx

import "time"

type startOrderRequest struct {
	Item string `json:"item"`
}

type startOrderResponse struct {
	OrderID string `json:"orderId"`
}

type logEntryResponse struct {
	Status    string    `json:"status"`
	Stage     string    `json:"stage"`
	Errors    string    `json:"errors,omitempty"`
	TraceID   string    `json:"trace_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
