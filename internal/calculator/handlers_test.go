package calculator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-chi-calculator/internal/history"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/testutil"
)

func newTestRouter(t *testing.T, store *fakeStore) http.Handler {
	t.Helper()
	observability.Logger = zap.NewNop()

	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(newTestCalculator(t, testConfig(), store)))
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.ExecuteRequest(testutil.NewJSONRequest(method, path, body), h)
}

func TestOperandUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Operand
	}{
		{"string", `"1.5"`, "1.5"},
		{"integer", `42`, "42"},
		{"exponent", `1e3`, "1e3"},
		{"keeps digits", `0.1000000000000000000001`, "0.1000000000000000000001"},
		{"null", `null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o Operand
			require.NoError(t, json.Unmarshal([]byte(tt.in), &o))
			assert.Equal(t, tt.want, o)
		})
	}

	var o Operand
	assert.Error(t, json.Unmarshal([]byte(`true`), &o))
}

func TestHandler_Compute(t *testing.T) {
	router := newTestRouter(t, &fakeStore{})

	w := do(t, router, http.MethodPost, "/calculator/add", `{"a":2,"b":"3"}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp map[string]any
	testutil.DecodeJSONBody(t, w.Body, &resp)
	assert.Equal(t, "add", resp["operation"])
	assert.Equal(t, "5", resp["result"])
	assert.NotContains(t, resp, "save_error")
}

func TestHandler_ComputeErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"bad json", "/calculator/add", `{"a":`, http.StatusBadRequest},
		{"invalid operand", "/calculator/add", `{"a":"two","b":3}`, http.StatusBadRequest},
		{"domain error", "/calculator/divide", `{"a":1,"b":0}`, http.StatusBadRequest},
		{"unknown operation", "/calculator/sqrt", `{"a":1,"b":2}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &fakeStore{})

			w := do(t, router, http.MethodPost, tt.path, tt.body)
			testutil.CheckResponseCode(t, tt.status, w.Code)

			testutil.DecodeErrorMessage(t, w.Body)
		})
	}
}

func TestHandler_Chain(t *testing.T) {
	router := newTestRouter(t, &fakeStore{})

	body := `{"initial":10,"steps":[{"op":"subtract","value":4},{"op":"power","value":"2"}]}`
	w := do(t, router, http.MethodPost, "/calculator/chain", body)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp ChainResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	assert.Equal(t, "10", resp.Initial)
	require.Len(t, resp.Steps, 2)
	assert.Equal(t, "6", resp.Steps[0].Result.String())
	assert.Equal(t, "36", resp.Result.String())

	w = do(t, router, http.MethodGet, "/calculator/history", "")
	var hist HistoryResponse
	testutil.DecodeJSONBody(t, w.Body, &hist)
	assert.Equal(t, 2, hist.Count)
}

func TestHandler_ChainEmpty(t *testing.T) {
	router := newTestRouter(t, &fakeStore{})

	w := do(t, router, http.MethodPost, "/calculator/chain", `{"initial":1,"steps":[]}`)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)
}

func TestHandler_HistoryLifecycle(t *testing.T) {
	router := newTestRouter(t, &fakeStore{})

	w := do(t, router, http.MethodGet, "/calculator/history", "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"entries":[]`)

	w = do(t, router, http.MethodPost, "/calculator/history/undo", "")
	testutil.CheckResponseCode(t, http.StatusConflict, w.Code)
	assert.Equal(t, "nothing to undo", testutil.DecodeErrorMessage(t, w.Body))

	do(t, router, http.MethodPost, "/calculator/multiply", `{"a":"1.5","b":"2"}`)
	do(t, router, http.MethodPost, "/calculator/absolute-difference", `{"a":3,"b":10}`)

	w = do(t, router, http.MethodDelete, "/calculator/history", "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	var action ActionResponse
	testutil.DecodeJSONBody(t, w.Body, &action)
	assert.Equal(t, ActionResponse{Action: "clear", Entries: 0}, action)

	w = do(t, router, http.MethodPost, "/calculator/history/undo", "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	testutil.DecodeJSONBody(t, w.Body, &action)
	assert.Equal(t, ActionResponse{Action: "undo", Kind: "clear", Entries: 2}, action)

	w = do(t, router, http.MethodGet, "/calculator/history", "")
	var hist HistoryResponse
	testutil.DecodeJSONBody(t, w.Body, &hist)
	require.Len(t, hist.Entries, 2)
	assert.Equal(t, "multiply", hist.Entries[0].Operator)
	assert.Equal(t, "7", hist.Entries[1].Result.String())
	assert.Equal(t, 1, hist.RedoDepth)

	w = do(t, router, http.MethodPost, "/calculator/history/redo", "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	w = do(t, router, http.MethodPost, "/calculator/history/redo", "")
	testutil.CheckResponseCode(t, http.StatusConflict, w.Code)
}

func TestHandler_SaveLoad(t *testing.T) {
	store := &fakeStore{}
	router := newTestRouter(t, store)

	do(t, router, http.MethodPost, "/calculator/add", `{"a":1,"b":1}`)

	w := do(t, router, http.MethodPost, "/calculator/history/save", "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	assert.Len(t, store.saved, 1)

	w = do(t, router, http.MethodPost, "/calculator/history/load", "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	store.loadErr = fmt.Errorf("%w: line 2: bad row", history.ErrCorruptHistory)
	w = do(t, router, http.MethodPost, "/calculator/history/load", "")
	testutil.CheckResponseCode(t, http.StatusUnprocessableEntity, w.Code)

	store.saveErr = errors.New("disk full")
	w = do(t, router, http.MethodPost, "/calculator/history/save", "")
	testutil.CheckResponseCode(t, http.StatusInternalServerError, w.Code)
}

func TestHandler_Operations(t *testing.T) {
	router := newTestRouter(t, &fakeStore{})

	w := do(t, router, http.MethodGet, "/calculator/operations", "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp OperationsResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	assert.Equal(t, 10, resp.Precision)
	assert.Len(t, resp.Operations, 10)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(KindOutOfRange))
	assert.Equal(t, http.StatusNotFound, StatusFor(KindUnknownOperation))
	assert.Equal(t, http.StatusConflict, StatusFor(KindNothingToRedo))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(KindCorruptHistory))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(KindPersistence))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(KindInternal))
}
