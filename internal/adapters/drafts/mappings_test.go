package drafts_test

import (
	"context"
	"net/http"
	"testing"

	"curricore/internal/adapters/drafts"
	"curricore/pkg/domain"
)

func TestToggleMapping(t *testing.T) {
	r, svc := setup(t, &stubAPI{})
	path := drafts.BasePath + "/mappings/"

	code, body := do(t, r, http.MethodPost, path+"peo-missions/toggle", `{"peo_id":70,"mission_id":3}`)
	if code != http.StatusOK || body["linked"] != false {
		t.Fatalf("unlink: %d %v", code, body)
	}
	if code, body = do(t, r, http.MethodPost, path+"peo-missions/toggle", `{"peo_id":70,"mission_id":3}`); code != http.StatusOK || body["linked"] != true {
		t.Fatalf("relink: %d %v", code, body)
	}
	if !svc.IsModified(domain.SectionPEOMissionMappings) {
		t.Fatalf("toggle must mark the section modified")
	}

	if code, body = do(t, r, http.MethodPost, path+"po-peos/toggle", `{"po_id":20,"peo_id":70}`); code != http.StatusOK || body["linked"] != true {
		t.Fatalf("link po to peo: %d %v", code, body)
	}
	if len(svc.State().POPEOs) != 1 {
		t.Fatalf("expected one PO to PEO link, got %v", svc.State().POPEOs)
	}

	code, body = do(t, r, http.MethodPost, path+"po-gas/toggle", `{"po_id":20}`)
	if code != http.StatusBadRequest || body["fields"].(map[string]any)["ga_id"] != "is required" {
		t.Fatalf("expected missing ga_id, got %d %v", code, body)
	}
	if code, _ = do(t, r, http.MethodPost, path+"po-gas/toggle", `{"po_id":20,"ga_id":4}`); code != http.StatusNotFound {
		t.Fatalf("unknown graduate attribute must 404, got %d", code)
	}
	if code, _ = do(t, r, http.MethodPost, path+"course-gas/toggle", `{}`); code != http.StatusNotFound {
		t.Fatalf("unknown mapping must 404, got %d", code)
	}
}

func TestToggleCourseToPOLevel(t *testing.T) {
	r, svc := setup(t, &stubAPI{})
	ctx := context.Background()
	category, _, _, err := svc.AddCourseCategory(ctx, domain.CourseCategory{Name: "Major", Code: "MC"})
	if err != nil {
		t.Fatalf("category: %v", err)
	}
	semester, _, err := svc.AddYearSemester(ctx, domain.YearSemester{Year: 1, Semester: "First"})
	if err != nil {
		t.Fatalf("semester: %v", err)
	}
	placed, _, err := svc.AddCurriculumCourse(ctx, domain.Course{Code: "CS101"}, domain.CurriculumCourse{CourseCategoryID: category.ID, SemesterID: semester.ID, Unit: 3})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	course := `"course_id":"` + placed.ID.Text() + `","po_id":20`

	code, body := do(t, r, http.MethodPost, drafts.BasePath+"/course-po-mappings/toggle", `{`+course+`,"level":"i"}`)
	if code != http.StatusOK {
		t.Fatalf("toggle on: %d %v", code, body)
	}
	if levels := body["contribution_levels"].([]any); len(levels) != 1 || levels[0] != "I" {
		t.Fatalf("unexpected levels %v", levels)
	}
	code, body = do(t, r, http.MethodPost, drafts.BasePath+"/course-po-mappings/toggle", `{`+course+`,"level":"I"}`)
	if code != http.StatusOK || len(svc.Levels(placed.ID, domain.Persisted(20))) != 0 {
		t.Fatalf("toggle off: %d %v", code, body)
	}
	if code, body = do(t, r, http.MethodPost, drafts.BasePath+"/course-po-mappings/toggle", `{`+course+`,"level":"X"}`); code != http.StatusBadRequest || body["fields"] == nil {
		t.Fatalf("expected level error, got %d %v", code, body)
	}
}
