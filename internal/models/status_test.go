package models

import "testing"

func TestValidReportStatus(t *testing.T) {
	for _, s := range []string{ReportStatusDraft, ReportStatusAnalyzing, ReportStatusCompleted, ReportStatusPublished} {
		if !ValidReportStatus(s) {
			t.Errorf("ValidReportStatus(%q) = false", s)
		}
	}
	if ValidReportStatus("archived") {
		t.Error("unknown status accepted")
	}
}

func TestCanSetReportStatus(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{ReportStatusDraft, ReportStatusCompleted, true},
		{ReportStatusAnalyzing, ReportStatusDraft, true},
		{ReportStatusCompleted, ReportStatusPublished, true},
		{ReportStatusPublished, ReportStatusDraft, false},
		{ReportStatusPublished, ReportStatusCompleted, false},
		{ReportStatusPublished, ReportStatusPublished, true},
		{ReportStatusDraft, "archived", false},
	}
	for _, tc := range cases {
		if got := CanSetReportStatus(tc.from, tc.to); got != tc.want {
			t.Errorf("CanSetReportStatus(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
