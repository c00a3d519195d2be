package models

// StartSessionRequest opens a configuration session for a product
type StartSessionRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

// SetOptionRequest sets or clears one option value
type SetOptionRequest struct {
	OptionID string          `json:"optionId" binding:"required"`
	Value    *SelectionValue `json:"value"`
}

// SetMaterialRequest selects a material; empty clears the selection
type SetMaterialRequest struct {
	MaterialID string `json:"materialId"`
}

// SetPrintMethodRequest selects a print method; empty clears the selection
type SetPrintMethodRequest struct {
	PrintMethodID string `json:"printMethodId"`
}

// SetFinishingRequest replaces the selected finishing set
type SetFinishingRequest struct {
	FinishingIDs []string `json:"finishingIds"`
}

// SetQuantityRequest sets the requested quantity (0 is accepted but
// flagged by validation)
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// SetDimensionRequest sets or clears the requested dimension
type SetDimensionRequest struct {
	Width  float64       `json:"width"`
	Height float64       `json:"height"`
	Unit   DimensionUnit `json:"unit"`
}

// SessionResponse is the envelope returned after every session mutation
type SessionResponse struct {
	SessionID string   `json:"sessionId"`
	ProductID string   `json:"productId"`
	Snapshot  Snapshot `json:"snapshot"`
}

// ValidationResponse is the explicit commit-gate check result
type ValidationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// CommitResponse reports the cart line created from a committed session
type CommitResponse struct {
	CartItemID string         `json:"cartItemId,omitempty"`
	ProductID  string         `json:"productId"`
	Selections Selections     `json:"selections"`
	Price      PriceBreakdown `json:"price"`
}

type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}
