package model

import (
	"encoding/json"
	"testing"
)

func TestRelationSet_AddIsIdempotent(t *testing.T) {
	rs := make(RelationSet)

	if !rs.Add(Relation{To: "b", Type: "knows"}) {
		t.Fatal("first Add should return true")
	}
	if rs.Add(Relation{To: "b", Type: "knows"}) {
		t.Fatal("second Add of the same relation should return false")
	}
	if len(rs) != 1 {
		t.Fatalf("len = %d, want 1", len(rs))
	}
}

func TestRelationSet_JSONRoundTripKeepsArrayShape(t *testing.T) {
	rs := make(RelationSet)
	rs.Add(Relation{To: "b", Type: "knows"})
	rs.Add(Relation{To: "a", Type: "works_at"})

	data, err := json.Marshal(rs)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	// ソート済み配列として出力される
	want := `[{"to":"a","type":"works_at"},{"to":"b","type":"knows"}]`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var restored RelationSet
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !restored.Has(Relation{To: "b", Type: "knows"}) {
		t.Error("restored set should contain (b, knows)")
	}
	if len(restored) != 2 {
		t.Errorf("restored len = %d, want 2", len(restored))
	}
}

func TestRelationSet_UnmarshalCollapsesDuplicates(t *testing.T) {
	var rs RelationSet
	data := `[{"to":"b","type":"knows"},{"to":"b","type":"knows"}]`
	if err := json.Unmarshal([]byte(data), &rs); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(rs) != 1 {
		t.Errorf("len = %d, want 1 (duplicates collapsed)", len(rs))
	}
}

func TestEntity_AddObservation_RejectsDuplicates(t *testing.T) {
	e := NewEntity("person")

	if !e.AddObservation("likes coffee") {
		t.Fatal("first AddObservation should return true")
	}
	if e.AddObservation("likes coffee") {
		t.Fatal("duplicate AddObservation should return false")
	}
	if len(e.Observations) != 1 {
		t.Fatalf("observations len = %d, want 1", len(e.Observations))
	}
}

func TestEntity_RemoveObservation(t *testing.T) {
	e := NewEntity("person")
	e.AddObservation("a")
	e.AddObservation("b")
	e.AddObservation("c")

	if !e.RemoveObservation("b") {
		t.Fatal("RemoveObservation should return true for present observation")
	}
	if e.RemoveObservation("b") {
		t.Fatal("RemoveObservation should return false for absent observation")
	}

	want := []string{"a", "c"}
	if len(e.Observations) != len(want) {
		t.Fatalf("observations = %v, want %v", e.Observations, want)
	}
	for i := range want {
		if e.Observations[i] != want[i] {
			t.Errorf("observations[%d] = %s, want %s", i, e.Observations[i], want[i])
		}
	}
}

func TestEntity_JSONShape(t *testing.T) {
	e := NewEntity("person")
	e.AddObservation("likes coffee")
	e.Relations.Add(Relation{To: "shop", Type: "visits"})

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	want := `{"type":"person","observations":["likes coffee"],"relations":[{"to":"shop","type":"visits"}]}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}
}
