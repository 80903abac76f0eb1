package observability

import "testing"

func TestNormalizedPath(t *testing.T) {
	got := normalizedPath("/api/v1/admin/surveys/123/stats")
	want := "/api/v1/admin/surveys/{id}/stats"
	if got != want {
		t.Fatalf("normalizedPath mismatch got=%s want=%s", got, want)
	}
}

func TestExtractSurveyID(t *testing.T) {
	if id := extractSurveyID("/api/v1/surveys/456/responses"); id != 456 {
		t.Fatalf("expected 456, got %d", id)
	}
	if id := extractSurveyID("/api/v1/me/responses"); id != 0 {
		t.Fatalf("expected 0 for non-survey path, got %d", id)
	}
}
