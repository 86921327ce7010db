package mining

import (
	"encoding/json"
	"log/slog"
	"reflect"
	"testing"
)

func grant(name string) PermissionGrant {
	return PermissionGrant{Permission{ObjectName: name}}
}

func record(userID, dept, title string, perms ...string) AccessRecord {
	grants := make([]PermissionGrant, len(perms))
	for i, p := range perms {
		grants[i] = grant(p)
	}
	return AccessRecord{UserID: userID, Department: dept, JobTitle: title, Permissions: grants}
}

func TestVectorizeNormalizesAndDeduplicates(t *testing.T) {
	v := NewVectorizer(slog.Default())
	records := []AccessRecord{
		{
			UserID:     "u1",
			Department: "Finance",
			Permissions: []PermissionGrant{
				{Permission{System: "SAP", ObjectName: "F_BKPF_BUK", Value: "03"}},
				{Permission{ObjectName: "F_BKPF_BUK", Value: "03"}},
				{Permission{System: "AD", ObjectName: "GROUP_FIN"}},
			},
		},
	}
	vectors, global, skipped := v.Vectorize(records)
	if skipped != 0 {
		t.Fatalf("expected no skipped records, got %d", skipped)
	}
	if len(vectors) != 1 {
		t.Fatalf("expected one vector, got %d", len(vectors))
	}
	if len(vectors[0].Permissions) != 2 {
		t.Fatalf("duplicate permission should collapse, got %d keys", len(vectors[0].Permissions))
	}
	if !vectors[0].HasPermission("SAP:F_BKPF_BUK:03") {
		t.Fatalf("missing default-system key, have %v", vectors[0].Permissions)
	}
	want := []string{"AD:GROUP_FIN:", "SAP:F_BKPF_BUK:03"}
	if !reflect.DeepEqual(global, want) {
		t.Fatalf("global permissions not sorted: got %v want %v", global, want)
	}
}

func TestVectorizeSkipsMalformedRecords(t *testing.T) {
	v := NewVectorizer(slog.Default())
	records := []AccessRecord{
		record("", "Finance", "Analyst", "P1"),
		record("u2", "Finance", "Analyst", "P1"),
	}
	vectors, _, skipped := v.Vectorize(records)
	if skipped != 1 {
		t.Fatalf("expected one skipped record, got %d", skipped)
	}
	if len(vectors) != 1 || vectors[0].UserID != "u2" {
		t.Fatalf("expected only u2 to survive, got %+v", vectors)
	}
}

func TestPermissionGrantAcceptsStringAndObject(t *testing.T) {
	var rec AccessRecord
	payload := `{"user_id":"u1","permissions":["VIEW_LEDGER",{"system":"SAP","object_type":"TCODE","object_name":"F-02","value":"ALL"}]}`
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(rec.Permissions) != 2 {
		t.Fatalf("expected two grants, got %d", len(rec.Permissions))
	}
	if got := rec.Permissions[0].Key(); got != "SAP:VIEW_LEDGER:" {
		t.Fatalf("bare string grant key = %q", got)
	}
	if got := rec.Permissions[1].Key(); got != "SAP:F-02:ALL" {
		t.Fatalf("object grant key = %q", got)
	}
}

func TestBinaryVectorProjection(t *testing.T) {
	vec := AccessVector{Permissions: map[string]struct{}{"SAP:A:": {}, "SAP:C:": {}}}
	global := []string{"SAP:A:", "SAP:B:", "SAP:C:"}
	got := BinaryVector(vec, global)
	want := []float64{1, 0, 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("projection = %v want %v", got, want)
	}
}
