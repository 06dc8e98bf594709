package daemon

import (
	"net/http"
	"testing"
	"time"

	"overseer/internal/types"
)

func TestConfirmationResolveRoundTrip(t *testing.T) {
	api := newTestAPI(&fakeProvider{id: "anthropic"})
	server := newTestServer(t, api)

	decision := api.Gate.Request(&types.Confirmation{
		ID:       "c1",
		ToolName: "run_command",
		Category: types.ToolCategoryShell,
		Input:    "npm install",
	}, time.Minute)

	listResp, err := http.Get(server.URL + "/api/confirmations")
	if err != nil {
		t.Fatalf("get confirmations: %v", err)
	}
	var listPayload struct {
		Confirmations []*types.Confirmation `json:"confirmations"`
	}
	decodeBody(t, listResp, &listPayload)
	if len(listPayload.Confirmations) != 1 || listPayload.Confirmations[0].ID != "c1" {
		t.Fatalf("unexpected pending list: %+v", listPayload.Confirmations)
	}

	resolveResp := postJSON(t, server.URL+"/api/confirmations/c1", ResolveConfirmationRequest{Approved: true})
	var resolved struct {
		Found bool `json:"found"`
	}
	decodeBody(t, resolveResp, &resolved)
	if !resolved.Found {
		t.Fatalf("expected confirmation to be found")
	}

	select {
	case approved := <-decision:
		if !approved {
			t.Fatalf("expected approval")
		}
	case <-time.After(time.Second):
		t.Fatalf("decision never delivered")
	}

	// Resolving an id that no longer exists reports found=false.
	missingResp := postJSON(t, server.URL+"/api/confirmations/c1", ResolveConfirmationRequest{Approved: true})
	decodeBody(t, missingResp, &resolved)
	if resolved.Found {
		t.Fatalf("expected found=false for resolved id")
	}
}

func TestConfirmationRejectAll(t *testing.T) {
	api := newTestAPI(&fakeProvider{id: "anthropic"})
	server := newTestServer(t, api)

	first := api.Gate.Request(&types.Confirmation{ID: "c1", ToolName: "run_command", Category: types.ToolCategoryShell}, time.Minute)
	second := api.Gate.Request(&types.Confirmation{ID: "c2", ToolName: "write_file", Category: types.ToolCategoryFile}, time.Minute)

	resp := postJSON(t, server.URL+"/api/confirmations/reject-all", struct{}{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	for _, ch := range []<-chan bool{first, second} {
		select {
		case approved := <-ch:
			if approved {
				t.Fatalf("expected rejection")
			}
		case <-time.After(time.Second):
			t.Fatalf("decision never delivered")
		}
	}
}

func TestConfirmationAutoApprove(t *testing.T) {
	api := newTestAPI(&fakeProvider{id: "anthropic"})
	server := newTestServer(t, api)

	resp := postJSON(t, server.URL+"/api/confirmations/auto-approve", AutoApproveRequest{Category: "shell", Enabled: true})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !api.Gate.AutoApproved(types.ToolCategoryShell) {
		t.Fatalf("expected shell auto-approve enabled")
	}

	bad := postJSON(t, server.URL+"/api/confirmations/auto-approve", AutoApproveRequest{Category: "network", Enabled: true})
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d", bad.StatusCode)
	}

	listResp, err := http.Get(server.URL + "/api/confirmations")
	if err != nil {
		t.Fatalf("get confirmations: %v", err)
	}
	var payload struct {
		AutoApprove map[string]bool `json:"auto_approve"`
	}
	decodeBody(t, listResp, &payload)
	if !payload.AutoApprove["shell"] || payload.AutoApprove["file"] {
		t.Fatalf("unexpected auto-approve flags: %+v", payload.AutoApprove)
	}
}
