package provider

import (
	"testing"
)

func TestObjectMetadata_Map(t *testing.T) {
	meta := ObjectMetadata{
		CaptureDate: "2024-06-01",
		Category:    "chocolate",
		Description: "dataset sample",
	}

	m := meta.Map()
	if m[MetaCaptureDate] != "2024-06-01" {
		t.Errorf("Expected capture date 2024-06-01, got %q", m[MetaCaptureDate])
	}
	if m[MetaCategory] != "chocolate" {
		t.Errorf("Expected category chocolate, got %q", m[MetaCategory])
	}
	if m[MetaDescription] != "dataset sample" {
		t.Errorf("Expected description, got %q", m[MetaDescription])
	}
}

func TestObjectMetadata_MapOmitsEmpty(t *testing.T) {
	meta := ObjectMetadata{Category: "standalone"}

	m := meta.Map()
	if len(m) != 1 {
		t.Errorf("Expected 1 entry, got %d: %v", len(m), m)
	}
	if _, ok := m[MetaCaptureDate]; ok {
		t.Error("Empty capture date should not be present")
	}
	if _, ok := m[MetaDescription]; ok {
		t.Error("Empty description should not be present")
	}
}

func TestMetadataFromMap_RoundTrip(t *testing.T) {
	meta := ObjectMetadata{
		CaptureDate: "2023-11-30",
		Description: "round trip",
	}

	got := MetadataFromMap(meta.Map())
	if got != meta {
		t.Errorf("Expected %+v, got %+v", meta, got)
	}
}
