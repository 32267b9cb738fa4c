package store

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tasksync/internal/models"
)

func TestSearchFilter(t *testing.T) {
	if got := searchFilter(""); len(got) != 0 {
		t.Errorf("expected empty filter, got %v", got)
	}

	got := searchFilter("a.b")
	text, ok := got["text"].(bson.M)
	if !ok {
		t.Fatalf("expected text condition, got %v", got)
	}
	if text["$regex"] != `a\.b` {
		t.Errorf("expected escaped regex, got %v", text["$regex"])
	}
	if text["$options"] != "i" {
		t.Errorf("expected case-insensitive option, got %v", text["$options"])
	}
}

func TestFindOptions_Pagination(t *testing.T) {
	opts := findOptions(models.ListOptions{Page: 3, Limit: 20}.Normalize())

	if opts.Skip == nil || *opts.Skip != 40 {
		t.Errorf("expected skip 40, got %v", opts.Skip)
	}
	if opts.Limit == nil || *opts.Limit != 20 {
		t.Errorf("expected limit 20, got %v", opts.Limit)
	}
}

func TestParseObjectID_InvalidIsNotFound(t *testing.T) {
	_, err := parseObjectID("not-an-object-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	oid := primitive.NewObjectID()
	got, err := parseObjectID(oid.Hex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != oid {
		t.Errorf("expected %s, got %s", oid.Hex(), got.Hex())
	}
}

func TestUpdateDocument(t *testing.T) {
	blank := "   "
	if _, err := updateDocument(models.TaskUpdate{Text: &blank}); !errors.Is(err, models.ErrTextRequired) {
		t.Errorf("expected ErrTextRequired, got %v", err)
	}

	text := " Renamed "
	set, err := updateDocument(models.TaskUpdate{Text: &text, Completed: boolPtr(true)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set["text"] != "Renamed" {
		t.Errorf("expected trimmed text, got %v", set["text"])
	}
	if set["completed"] != true {
		t.Errorf("expected completed true, got %v", set["completed"])
	}
}

func TestTaskDocument_ToModel(t *testing.T) {
	oid := primitive.NewObjectID()
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	doc := taskDocument{ID: oid, Text: "Ship it", Completed: true, CreatedAt: created}

	got := doc.toModel()
	if got.ID != oid.Hex() {
		t.Errorf("expected id %s, got %s", oid.Hex(), got.ID)
	}
	if got.Text != "Ship it" || !got.Completed || !got.CreatedAt.Equal(created) {
		t.Errorf("unexpected task: %+v", got)
	}
}

func boolPtr(b bool) *bool { return &b }
