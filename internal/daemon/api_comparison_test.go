package daemon

import (
	"errors"
	"net/http"
	"testing"

	"overseer/internal/types"
)

func comparisonFake(api *API) *fakeComparison {
	return api.Comparison.(*fakeComparison)
}

func TestComparisonRunsInitThenAdd(t *testing.T) {
	api := newTestAPI(&fakeProvider{id: "anthropic"})
	server := newTestServer(t, api)

	resp := postJSON(t, server.URL+"/api/comparison/runs", ComparisonRunRequest{
		Prompt:     "Add dark mode",
		ModelID:    "sonnet",
		ProviderID: "anthropic",
	})
	var initPayload struct {
		Comparison *types.ComparisonState `json:"comparison"`
	}
	decodeBody(t, resp, &initPayload)
	if initPayload.Comparison == nil || len(initPayload.Comparison.Runs) != 1 {
		t.Fatalf("unexpected init payload: %+v", initPayload.Comparison)
	}

	addResp := postJSON(t, server.URL+"/api/comparison/runs", ComparisonRunRequest{
		ModelID:    "opus",
		ProviderID: "anthropic",
	})
	var addPayload struct {
		Run *types.ComparisonRun `json:"run"`
	}
	decodeBody(t, addResp, &addPayload)
	if addPayload.Run == nil || addPayload.Run.ID != "run-2" {
		t.Fatalf("unexpected run payload: %+v", addPayload.Run)
	}

	stateResp, err := http.Get(server.URL + "/api/comparison")
	if err != nil {
		t.Fatalf("get comparison: %v", err)
	}
	var statePayload struct {
		Active     bool                   `json:"active"`
		Comparison *types.ComparisonState `json:"comparison"`
	}
	decodeBody(t, stateResp, &statePayload)
	if !statePayload.Active || len(statePayload.Comparison.Runs) != 2 {
		t.Fatalf("unexpected state payload: %+v", statePayload)
	}
}

func TestComparisonRunActions(t *testing.T) {
	api := newTestAPI(&fakeProvider{id: "anthropic"})
	server := newTestServer(t, api)
	fake := comparisonFake(api)

	resp := postJSON(t, server.URL+"/api/comparison/runs", ComparisonRunRequest{
		Prompt:     "prompt",
		ModelID:    "sonnet",
		ProviderID: "anthropic",
	})
	resp.Body.Close()

	completeResp := postJSON(t, server.URL+"/api/comparison/runs/run-1/complete", CompleteRunRequest{
		Success:    true,
		DurationMs: 1200,
	})
	completeResp.Body.Close()
	if completeResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", completeResp.StatusCode)
	}

	switchResp := postJSON(t, server.URL+"/api/comparison/runs/run-1/switch", struct{}{})
	switchResp.Body.Close()

	selectResp := postJSON(t, server.URL+"/api/comparison/runs/run-1/select", struct{}{})
	selectResp.Body.Close()
	if selectResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", selectResp.StatusCode)
	}

	want := []string{"init", "complete:run-1:true:1200", "switch:run-1", "select:run-1"}
	if len(fake.calls) != len(want) {
		t.Fatalf("unexpected calls: %v", fake.calls)
	}
	for i, call := range want {
		if fake.calls[i] != call {
			t.Fatalf("call %d: want %q, got %q", i, call, fake.calls[i])
		}
	}

	stateResp, err := http.Get(server.URL + "/api/comparison")
	if err != nil {
		t.Fatalf("get comparison: %v", err)
	}
	var statePayload struct {
		Active bool `json:"active"`
	}
	decodeBody(t, stateResp, &statePayload)
	if statePayload.Active {
		t.Fatalf("expected comparison cleared after select")
	}
}

func TestComparisonDeleteRun(t *testing.T) {
	api := newTestAPI(&fakeProvider{id: "anthropic"})
	server := newTestServer(t, api)
	fake := comparisonFake(api)

	resp := postJSON(t, server.URL+"/api/comparison/runs", ComparisonRunRequest{
		Prompt:     "prompt",
		ModelID:    "sonnet",
		ProviderID: "anthropic",
	})
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/api/comparison/runs/run-1", nil)
	deleteResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete run: %v", err)
	}
	deleteResp.Body.Close()
	if deleteResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", deleteResp.StatusCode)
	}
	if fake.calls[len(fake.calls)-1] != "delete:run-1" {
		t.Fatalf("unexpected calls: %v", fake.calls)
	}
}

func TestComparisonErrorsMapToBadRequest(t *testing.T) {
	api := newTestAPI(&fakeProvider{id: "anthropic"})
	server := newTestServer(t, api)
	fake := comparisonFake(api)
	fake.err = errors.New("run limit reached (5)")

	resp := postJSON(t, server.URL+"/api/comparison/runs", ComparisonRunRequest{
		Prompt:     "prompt",
		ModelID:    "sonnet",
		ProviderID: "anthropic",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	switchResp := postJSON(t, server.URL+"/api/comparison/runs/run-1/switch", struct{}{})
	switchResp.Body.Close()
	if switchResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", switchResp.StatusCode)
	}
}

func TestComparisonAbort(t *testing.T) {
	api := newTestAPI(&fakeProvider{id: "anthropic"})
	server := newTestServer(t, api)

	resp := postJSON(t, server.URL+"/api/comparison/runs", ComparisonRunRequest{
		Prompt:     "prompt",
		ModelID:    "sonnet",
		ProviderID: "anthropic",
	})
	resp.Body.Close()

	abortResp := postJSON(t, server.URL+"/api/comparison/abort", struct{}{})
	abortResp.Body.Close()
	if abortResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", abortResp.StatusCode)
	}
	if comparisonFake(api).State() != nil {
		t.Fatalf("expected state cleared")
	}
}

func TestComparisonSelectIsBestEffort(t *testing.T) {
	api := newTestAPI(&fakeProvider{id: "anthropic"})
	server := newTestServer(t, api)
	comparisonFake(api).err = errors.New("run nope not found")

	resp := postJSON(t, server.URL+"/api/comparison/runs/nope/select", struct{}{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
