package engine

import (
	"testing"
	"time"

	"github.com/datasetops/shuttle/provider"
)

func TestFileTask_DestinationKey(t *testing.T) {
	info := &fakeFileInfo{id: "f1", name: "cocoa.jpg", mod: time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)}

	task := FileTask{
		Info: info,
		Rank: "dark",
		Meta: provider.ObjectMetadata{CaptureDate: "2024-01-02"},
	}
	if key := task.DestinationKey(); key != "dark/2024-01-02/cocoa.jpg" {
		t.Errorf("Expected dark/2024-01-02/cocoa.jpg, got %s", key)
	}
}

func TestFileTask_DestinationKeyFallsBackToModTime(t *testing.T) {
	info := &fakeFileInfo{id: "f1", name: "cocoa.jpg", mod: time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)}

	task := FileTask{Info: info, Rank: "milk"}
	if key := task.DestinationKey(); key != "milk/2024-03-09/cocoa.jpg" {
		t.Errorf("Expected milk/2024-03-09/cocoa.jpg, got %s", key)
	}
}

func TestFileTask_DestinationKeyUndated(t *testing.T) {
	info := &fakeFileInfo{id: "f1", name: "cocoa.jpg"}

	task := FileTask{Info: info, Rank: "white"}
	if key := task.DestinationKey(); key != "white/undated/cocoa.jpg" {
		t.Errorf("Expected white/undated/cocoa.jpg, got %s", key)
	}
}
