package models_test

import (
	"encoding/json"
	"testing"

	"github.com/micro-nova/audioconfig-go/internal/models"
	"github.com/micro-nova/audioconfig-go/internal/params"
)

func TestAppError_JSON(t *testing.T) {
	appErr := models.FieldError("active_config", "config 9 of 3")

	data, err := json.Marshal(appErr)
	if err != nil {
		t.Fatalf("json.Marshal(AppError): %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if m["error"] != "BAD_REQUEST" {
		t.Errorf("error = %v, want BAD_REQUEST", m["error"])
	}
	if m["field"] != "active_config" {
		t.Errorf("field = %v, want active_config", m["field"])
	}
	// Status field should NOT be in JSON (tagged json:"-")
	if _, ok := m["status"]; ok {
		t.Error("AppError JSON should not include 'status'")
	}
	if appErr.Error() != "config 9 of 3" {
		t.Errorf("Error() = %q", appErr.Error())
	}
}

func TestAppError_Statuses(t *testing.T) {
	tests := []struct {
		err  *models.AppError
		want int
	}{
		{models.ErrNotFound("x"), 404},
		{models.ErrBadRequest("x"), 400},
		{models.ErrUnauthorized, 401},
		{models.ErrForbidden("x"), 403},
		{models.ErrConflict("x"), 409},
		{models.ErrInternal("x"), 500},
		{models.ErrUnavailable("x"), 503},
	}
	for _, tt := range tests {
		if tt.err.Status != tt.want {
			t.Errorf("%s status = %d, want %d", tt.err.Code, tt.err.Status, tt.want)
		}
	}
}

func TestPatchRequest_OptionalRemove(t *testing.T) {
	var req models.PatchRequest
	if err := json.Unmarshal([]byte(`{"out":{"section":1,"channel":2},"in":{"section":3,"channel":1}}`), &req); err != nil {
		t.Fatal(err)
	}
	if req.Remove != nil {
		t.Error("Remove should be nil when absent")
	}
	if req.Out != (models.Endpoint{Section: 1, Channel: 2}) {
		t.Errorf("Out = %+v", req.Out)
	}
}

func TestNewUpdate(t *testing.T) {
	u := models.NewUpdate("sent", params.Key{Family: params.FamilyMixerOutput, PortID: 4, Sub: 2})
	want := models.Update{Kind: "sent", Family: "MixerOutputParm", Port: 4, Sub: 2}
	if u != want {
		t.Errorf("NewUpdate() = %+v, want %+v", u, want)
	}

	cleared := models.NewUpdate("cleared", params.Key{})
	if cleared != (models.Update{Kind: "cleared"}) {
		t.Errorf("NewUpdate(cleared) = %+v", cleared)
	}
}
