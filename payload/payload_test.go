package payload_test

import (
	"testing"
	"time"

	"github.com/xraph/coalesce/event"
	"github.com/xraph/coalesce/payload"
)

func TestIdentify_MapsIdentityAndTraits(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	it := payload.Identify(&event.Identify{
		UserID:    "u1",
		Email:     "ada@example.com",
		Traits:    map[string]any{"plan": "pro"},
		Timestamp: ts,
	})

	if it.DataType != event.DataTypeUsers {
		t.Errorf("DataType = %q, want %q", it.DataType, event.DataTypeUsers)
	}
	if it.Method != event.MethodPost {
		t.Errorf("Method = %q, want %q", it.Method, event.MethodPost)
	}
	if it.Data["user_id"] != "u1" || it.Data["email"] != "ada@example.com" {
		t.Errorf("identity not mapped: %+v", it.Data)
	}
	if it.Data["plan"] != "pro" {
		t.Errorf("traits not carried: %+v", it.Data)
	}
	if it.Data["updated_at"] != ts.Unix() {
		t.Errorf("updated_at = %v, want %v", it.Data["updated_at"], ts.Unix())
	}
}

func TestIdentify_CompaniesExtracted(t *testing.T) {
	it := payload.Identify(&event.Identify{
		UserID: "u1",
		Traits: map[string]any{
			"companies": []any{
				map[string]any{"id": "c1", "name": "Acme"},
			},
		},
	})

	companies, ok := it.Data["companies"].([]map[string]any)
	if !ok || len(companies) != 1 {
		t.Fatalf("companies = %#v, want one structured company", it.Data["companies"])
	}
	if companies[0]["company_id"] != "c1" {
		t.Errorf("company_id = %v, want c1", companies[0]["company_id"])
	}
	if _, hasID := companies[0]["id"]; hasID {
		t.Error("raw id field should be renamed to company_id")
	}
	if companies[0]["name"] != "Acme" {
		t.Errorf("name = %v, want Acme", companies[0]["name"])
	}
}

func TestIdentify_MalformedCompaniesTreatedAsAbsent(t *testing.T) {
	tests := []struct {
		name      string
		companies any
	}{
		{"not a list", "acme"},
		{"number", 7},
		{"list of scalars", []any{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := payload.Identify(&event.Identify{
				UserID: "u1",
				Traits: map[string]any{"companies": tt.companies, "plan": "pro"},
			})
			if _, present := it.Data["companies"]; present {
				t.Errorf("companies should be absent, got %#v", it.Data["companies"])
			}
			if it.Data["plan"] != "pro" {
				t.Error("rest of the profile write should proceed")
			}
		})
	}
}

func TestIdentify_SkipsNonObjectCompanyElements(t *testing.T) {
	it := payload.Identify(&event.Identify{
		UserID: "u1",
		Traits: map[string]any{
			"companies": []any{"junk", map[string]any{"id": "c2"}},
		},
	})
	companies, ok := it.Data["companies"].([]map[string]any)
	if !ok || len(companies) != 1 {
		t.Fatalf("companies = %#v, want the single valid element", it.Data["companies"])
	}
	if companies[0]["company_id"] != "c2" {
		t.Errorf("company_id = %v, want c2", companies[0]["company_id"])
	}
}

func TestTrack_MapsNameTimestampAndProperties(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	it := payload.Track(&event.Track{
		UserID:     "u1",
		Name:       "signed_up",
		Properties: map[string]any{"source": "web"},
		Timestamp:  ts,
	})

	if it.DataType != event.DataTypeEvents {
		t.Errorf("DataType = %q, want %q", it.DataType, event.DataTypeEvents)
	}
	if it.Data["event_name"] != "signed_up" {
		t.Errorf("event_name = %v", it.Data["event_name"])
	}
	if it.Data["created_at"] != ts.Unix() {
		t.Errorf("created_at = %v, want %v", it.Data["created_at"], ts.Unix())
	}
	meta, ok := it.Data["metadata"].(map[string]any)
	if !ok || meta["source"] != "web" {
		t.Errorf("metadata = %#v", it.Data["metadata"])
	}
}

func TestGroup_WrapsSingleCompany(t *testing.T) {
	it := payload.Group(&event.Group{
		Email:   "ada@example.com",
		GroupID: "acme",
		Traits:  map[string]any{"industry": "metals"},
	})

	if it.DataType != event.DataTypeUsers {
		t.Errorf("DataType = %q, want %q", it.DataType, event.DataTypeUsers)
	}
	companies, ok := it.Data["companies"].([]map[string]any)
	if !ok || len(companies) != 1 {
		t.Fatalf("companies = %#v, want exactly one", it.Data["companies"])
	}
	if companies[0]["company_id"] != "acme" || companies[0]["industry"] != "metals" {
		t.Errorf("company = %#v", companies[0])
	}
	if it.Data["email"] != "ada@example.com" {
		t.Errorf("email = %v", it.Data["email"])
	}
}

func TestForEvent_Dispatch(t *testing.T) {
	tests := []struct {
		name string
		ev   event.Event
		want event.DataType
	}{
		{"identify", &event.Identify{UserID: "u1"}, event.DataTypeUsers},
		{"track", &event.Track{UserID: "u1", Name: "x"}, event.DataTypeEvents},
		{"group", &event.Group{UserID: "u1", GroupID: "g"}, event.DataTypeUsers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := payload.ForEvent(tt.ev)
			if err != nil {
				t.Fatalf("ForEvent error: %v", err)
			}
			if it.DataType != tt.want {
				t.Errorf("DataType = %q, want %q", it.DataType, tt.want)
			}
		})
	}
}

func TestMapping_DoesNotMutateCallerTraits(t *testing.T) {
	traits := map[string]any{
		"nested": map[string]any{"createdAt": "2020-01-02T03:04:05Z"},
	}
	payload.Identify(&event.Identify{UserID: "u1", Traits: traits})

	nested := traits["nested"].(map[string]any)
	if _, moved := nested["created_at"]; moved {
		t.Error("caller's nested trait map was mutated")
	}
	if nested["createdAt"] != "2020-01-02T03:04:05Z" {
		t.Errorf("caller's value changed: %v", nested["createdAt"])
	}
}
