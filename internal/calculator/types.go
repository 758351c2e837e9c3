package calculator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"go-chi-calculator/internal/history"
)

// Operand is a JSON operand. Clients may send either a string ("1.5") or a
// number (1.5); numbers are kept as their literal text so no precision is
// lost to float64.
type Operand string

func (o *Operand) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*o = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = Operand(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("operand must be a number or a string: %w", err)
		}
		*o = Operand(n.String())
		return nil
	}
}

// CalcRequest is the JSON body for POST /calculator/{operation}.
type CalcRequest struct {
	A Operand `json:"a"`
	B Operand `json:"b"`
}

// CalcResponse is the JSON response for a single computation. Decimals are
// encoded as strings.
type CalcResponse struct {
	Operation string          `json:"operation"`
	A         decimal.Decimal `json:"a"`
	B         decimal.Decimal `json:"b"`
	Result    decimal.Decimal `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
	// SaveError is set when the result was recorded but auto-save failed.
	SaveError string `json:"save_error,omitempty"`
}

func newCalcResponse(res Result) CalcResponse {
	c := res.Calculation
	resp := CalcResponse{
		Operation: c.Operator,
		A:         c.OperandA,
		B:         c.OperandB,
		Result:    c.Result,
		CreatedAt: c.CreatedAt,
	}
	if res.SaveErr != nil {
		resp.SaveError = res.SaveErr.Error()
	}
	return resp
}

// ChainStep describes a single step in a chained calculation.
type ChainStep struct {
	Op    string  `json:"op"`
	Value Operand `json:"value"`
}

// ChainRequest is the JSON body for POST /calculator/chain. A missing
// initial value starts from zero.
type ChainRequest struct {
	Initial Operand     `json:"initial"`
	Steps   []ChainStep `json:"steps"`
}

// ChainResponse is the JSON response for POST /calculator/chain.
type ChainResponse struct {
	Initial string          `json:"initial"`
	Steps   []ChainResult   `json:"steps"`
	Result  decimal.Decimal `json:"result"`
}

// ChainResult records one executed step.
type ChainResult struct {
	Op     string          `json:"op"`
	Value  decimal.Decimal `json:"value"`
	Result decimal.Decimal `json:"result"`
}

// HistoryResponse lists the recorded calculations, oldest first.
type HistoryResponse struct {
	Count     int                   `json:"count"`
	UndoDepth int                   `json:"undo_depth"`
	RedoDepth int                   `json:"redo_depth"`
	Entries   []history.Calculation `json:"entries"`
}

// ActionResponse reports the outcome of a history command.
type ActionResponse struct {
	Action string `json:"action"`
	// Kind is the kind of action undone or redone, empty otherwise.
	Kind    string `json:"kind,omitempty"`
	Entries int    `json:"entries"`
}

// OperationInfo describes one registered operation.
type OperationInfo struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
}

// OperationsResponse is the JSON response for GET /calculator/operations.
type OperationsResponse struct {
	Precision  int             `json:"precision"`
	Operations []OperationInfo `json:"operations"`
}
