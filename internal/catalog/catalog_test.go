package catalog

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hitoshi/teetimes/internal/model"
	"github.com/hitoshi/teetimes/internal/security"
)

const sampleCatalog = `[
	{"id": 1470, "name": "Shawnee <b>Golf</b>", "lat": 39.01, "lon": -94.62, "source": "foreup"},
	{"id": "c2f6-41", "name": "Falcon Ridge", "lat": 38.92, "lon": -94.85, "source": "golfback"},
	{"id": {"id": 7421, "url": "https://ironhorse.book.teeitup.com", "alias": "ironhorse"}, "name": "Ironhorse", "lat": 38.88, "lon": -94.66, "source": "teeitup"},
	{"id": {"id": 9, "url": "http://169.254.169.254", "alias": "meta"}, "name": "Metadata", "lat": 38.90, "lon": -94.60, "source": "teeitup"}
]`

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func TestParse(t *testing.T) {
	courses, err := Parse(strings.NewReader(sampleCatalog))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(courses) != 4 {
		t.Fatalf("len = %d, want 4", len(courses))
	}
	if courses[2].ID.Kind() != model.CourseIDVerbose {
		t.Errorf("courses[2] kind = %d, want verbose", courses[2].ID.Kind())
	}
}

func TestParse_InvalidCourseID(t *testing.T) {
	_, err := Parse(strings.NewReader(`[{"id": true, "name": "x", "lat": 0, "lon": 0, "source": "foreup"}]`))
	if err == nil {
		t.Fatal("expected error for boolean id")
	}
}

func TestParse_EmptyArray(t *testing.T) {
	courses, err := Parse(strings.NewReader(`[]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if courses == nil || len(courses) != 0 {
		t.Errorf("courses = %v, want empty", courses)
	}
}

// TestLoad_FromFile はファイルから読み込み、正規化されたカタログを生成することを検証する。
func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golf_courses.json")
	if err := os.WriteFile(path, []byte(sampleCatalog), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	var buf bytes.Buffer
	cat, err := Load(context.Background(), FileLoader{Path: path},
		security.NewOutboundGuard(), security.NewTextSanitizer(), newTestLogger(&buf))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cat.Len() != 3 {
		t.Fatalf("Len = %d, want 3 (metadata URL excluded)", cat.Len())
	}
	if cat.All()[0].Name != "Shawnee Golf" {
		t.Errorf("name = %q, want markup stripped", cat.All()[0].Name)
	}
	if !strings.Contains(buf.String(), `"course":"Metadata"`) {
		t.Errorf("excluded course should be logged: %s", buf.String())
	}

	selected := cat.Select(nil)
	if len(selected) != 3 {
		t.Errorf("Select(nil) len = %d, want 3", len(selected))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var buf bytes.Buffer
	_, err := Load(context.Background(), FileLoader{Path: filepath.Join(t.TempDir(), "nope.json")},
		nil, nil, newTestLogger(&buf))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

// TestNew_CopiesInput は生成後に元スライスを変更してもカタログが影響を受けないことを検証する。
func TestNew_CopiesInput(t *testing.T) {
	courses := []model.GolfCourse{course("a", 39, -94.5)}
	cat := New(courses)
	courses[0].Name = "mutated"

	if cat.All()[0].Name != "a" {
		t.Errorf("catalog was mutated through input slice")
	}
}
