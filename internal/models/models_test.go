package models

import (
	"testing"
	"time"

	"gorm.io/datatypes"

	"preventivo/internal/status"
)

func TestUser_Password(t *testing.T) {
	u := &User{Email: "x@y.z"}
	if err := u.SetPassword("hunter22"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if u.Password == "hunter22" {
		t.Fatal("password stored in plaintext")
	}
	if !u.CheckPassword("hunter22") {
		t.Error("correct password rejected")
	}
	if u.CheckPassword("wrong") {
		t.Error("wrong password accepted")
	}
}

func TestUser_IsAdmin(t *testing.T) {
	if (&User{Role: RoleEmployee}).IsAdmin() {
		t.Error("employee reported as admin")
	}
	if !(&User{Role: RoleAdmin}).IsAdmin() {
		t.Error("admin not reported as admin")
	}
}

func TestClient_FullAddress(t *testing.T) {
	tests := []struct {
		name   string
		client Client
		want   string
	}{
		{
			name:   "full address",
			client: Client{Street: "Via Roma 1", ZipCode: "20100", City: "Milano", Country: "Italy"},
			want:   "Via Roma 1\n20100 Milano\nItaly",
		},
		{
			name:   "only city",
			client: Client{City: "Milano"},
			want:   "Milano",
		},
		{
			name:   "empty",
			client: Client{},
			want:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.client.FullAddress(); got != tt.want {
				t.Errorf("FullAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProduct_NormalizeComponents(t *testing.T) {
	p := &Product{
		Components: []Component{
			{Name: "no id"},
			{ID: "keep-me", Name: "has id", Quantity: 3},
		},
	}
	p.NormalizeComponents()
	if p.Components[0].ID == "" {
		t.Error("missing component id not generated")
	}
	if p.Components[0].Quantity != 1 {
		t.Errorf("quantity = %v, want default 1", p.Components[0].Quantity)
	}
	if p.Components[1].ID != "keep-me" || p.Components[1].Quantity != 3 {
		t.Error("existing component fields overwritten")
	}
}

func TestDocument_Expired(t *testing.T) {
	now := time.Now()
	d := &Document{ExpiresAt: now.Add(time.Hour)}
	if d.Expired(now) {
		t.Error("document expired ahead of time")
	}
	if !d.Expired(now.Add(2 * time.Hour)) {
		t.Error("document not expired after deadline")
	}
}

func TestDocument_Snapshot(t *testing.T) {
	d := &Document{
		Note:     "call back monday",
		Discount: 20,
		State:    status.Sent,
		YourTurn: true,
		Data:     datatypes.JSON(`{"quoteHeadDetails":{"object":"Roof"},"addedProducts":[]}`),
	}

	snap, err := d.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap["note"] != "call back monday" {
		t.Errorf("note = %v", snap["note"])
	}
	// Numbers must come out as JSON-decoded float64 for the differ.
	if snap["discount"] != float64(20) {
		t.Errorf("discount = %#v, want float64(20)", snap["discount"])
	}
	st, ok := snap["status"].(map[string]any)
	if !ok || st["state"] != "sent" || st["yourTurn"] != true {
		t.Errorf("status = %#v", snap["status"])
	}
	data, ok := snap["data"].(map[string]any)
	if !ok {
		t.Fatalf("data = %#v", snap["data"])
	}
	head, ok := data["quoteHeadDetails"].(map[string]any)
	if !ok || head["object"] != "Roof" {
		t.Errorf("quoteHeadDetails = %#v", data["quoteHeadDetails"])
	}
}

func TestDocument_Snapshot_BadData(t *testing.T) {
	d := &Document{Data: datatypes.JSON(`{not json`)}
	if _, err := d.Snapshot(); err == nil {
		t.Error("Snapshot should fail on malformed data blob")
	}
}
