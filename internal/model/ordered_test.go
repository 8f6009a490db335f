package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSetKeepsFirstOccurrence(t *testing.T) {
	s := NewSet("D", "E", "D")
	if added := s.Add("E", "F"); !added {
		t.Fatal("Add() should report that F was added")
	}
	if added := s.Add("D"); added {
		t.Fatal("Add() should report nothing added for a duplicate")
	}
	want := []string{"D", "E", "F"}
	if got := s.Values(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Values() = %v, want %v", got, want)
	}
	if !s.Has("E") || s.Has("X") {
		t.Fatal("Has() returned wrong membership")
	}
}

func TestUnique(t *testing.T) {
	got := Unique([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Unique() = %v, want %v", got, want)
	}
}

func TestMultiMapMergePreservesOrder(t *testing.T) {
	m := NewMultiMap()
	m.Add("Ext.dom.Layer", "Ext.Layer")
	m.Add("Ext.util.Observable")

	other := NewMultiMap()
	other.Add("Ext.dom.Layer", "Ext.Layer", "Ext.OtherLayer")
	other.Add("Ext.data.Store", "Ext.Store")
	m.Merge(other)

	if got, want := m.Keys(), []string{"Ext.dom.Layer", "Ext.util.Observable", "Ext.data.Store"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	got, ok := m.Get("Ext.dom.Layer")
	if !ok {
		t.Fatal("Get() missing key")
	}
	if want := []string{"Ext.Layer", "Ext.OtherLayer"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Get() = %v, want %v", got, want)
	}
	if v, ok := m.Get("Ext.util.Observable"); !ok || len(v) != 0 {
		t.Fatalf("Get() on key without values = %v, %v", v, ok)
	}
}

func TestMultiMapOfSortsKeys(t *testing.T) {
	m := MultiMapOf(map[string][]string{
		"myapp": {"app"},
		"Ext":   {"ext/src", "ext/overrides"},
	})
	if got, want := m.Keys(), []string{"Ext", "myapp"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
}

func TestMultiMapJSONKeepsKeyOrder(t *testing.T) {
	m := NewMultiMap()
	m.Add("z", "1")
	m.Add("a", "2", "3")

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"z":["1"],"a":["2","3"]}` {
		t.Fatalf("Marshal() = %s", data)
	}

	var back MultiMap
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got, want := back.Keys(), []string{"z", "a"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() after round trip = %v, want %v", got, want)
	}
}

func TestPlaceholder(t *testing.T) {
	d := Placeholder("app/util/helpers.js")
	if !d.IsPlaceholder() {
		t.Fatal("IsPlaceholder() = false")
	}
	if want := []string{"helpers.js"}; !reflect.DeepEqual(d.Names, want) {
		t.Fatalf("Names = %v, want %v", d.Names, want)
	}
	if len(d.Requires) != 0 || len(d.Uses) != 0 {
		t.Fatalf("placeholder has dependencies: %v %v", d.Requires, d.Uses)
	}
}
