package edgar

import "testing"

func historyFixture() *Submissions {
	subs := &Submissions{CIK: "1067983", Name: "BERKSHIRE HATHAWAY INC"}
	subs.Filings.Recent = RecentFilings{
		Form:            []string{"8-K", "13F-HR/A", "13F-HR", "10-K", "13F-HR", "10-K/A", "10-K"},
		AccessionNumber: []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7"},
		FilingDate:      []string{"2024-08-01", "2024-06-10", "2024-05-15", "2024-02-26", "2024-02-14", "2023-03-01", "2023-02-25"},
		ReportDate:      []string{"2024-08-01", "2024-03-31", "2024-03-31", "2023-12-31", "2023-12-31", "2022-12-31", "2022-12-31"},
		PrimaryDocument: []string{"d1.htm", "d2.xml", "d3.xml", "d4.htm", "d5.xml", "d6.htm", "d7.htm"},
	}
	return subs
}

func TestSelectFilingFirstMatchWins(t *testing.T) {
	subs := historyFixture()

	entry := SelectFiling(subs, Form13F, "", 0)
	if entry == nil {
		t.Fatal("no filing selected")
	}
	// The amendment at index 1 precedes the base form and matches the
	// 13F-HR family, so it wins.
	if entry.AccessionID != "a2" {
		t.Errorf("AccessionID = %q, want a2 (first match in upstream order)", entry.AccessionID)
	}

	// Stability: same history, same filters, same entry.
	again := SelectFiling(subs, Form13F, "", 0)
	if again == nil || again.AccessionID != entry.AccessionID {
		t.Errorf("selection not idempotent: %+v vs %+v", entry, again)
	}
}

func TestSelectFilingFormFamily(t *testing.T) {
	subs := historyFixture()

	entry := SelectFiling(subs, Form10K, "", 2023)
	if entry == nil {
		t.Fatal("no filing selected")
	}
	// 2023 matches a4 via filing-date year and a6/a7 via filing or report
	// year; a4 comes first.
	if entry.AccessionID != "a4" {
		t.Errorf("AccessionID = %q, want a4", entry.AccessionID)
	}
}

func TestSelectFilingDateFilter(t *testing.T) {
	subs := historyFixture()

	entry := SelectFiling(subs, Form13F, "2024-05-15", 0)
	if entry == nil || entry.AccessionID != "a3" {
		t.Fatalf("date filter selected %+v, want a3", entry)
	}

	if got := SelectFiling(subs, Form13F, "2019-01-01", 0); got != nil {
		t.Errorf("impossible date matched %+v", got)
	}
}

func TestSelectFilingYearMatchesReportDate(t *testing.T) {
	subs := historyFixture()

	// 2022 only appears as a report-date year for the 10-K family; the
	// year filter is filing-year OR report-year.
	entry := SelectFiling(subs, Form10K, "", 2022)
	if entry == nil || entry.AccessionID != "a6" {
		t.Fatalf("year filter selected %+v, want a6", entry)
	}
}

func TestSelectFilingEmptyHistory(t *testing.T) {
	if got := SelectFiling(nil, Form10K, "", 0); got != nil {
		t.Errorf("nil history selected %+v", got)
	}
	if got := SelectFiling(&Submissions{}, Form10K, "", 0); got != nil {
		t.Errorf("empty history selected %+v", got)
	}
}

func TestSelectFilingUnfiledForm(t *testing.T) {
	subs := historyFixture()
	if got := SelectFiling(subs, "SC 13D", "", 0); got != nil {
		t.Errorf("unfiled form matched %+v", got)
	}
}

func TestMatchesFormFamily(t *testing.T) {
	tests := []struct {
		filed, requested string
		want             bool
	}{
		{"10-K", "10-K", true},
		{"10-K/A", "10-K", true},
		{"10-KSB", "10-K", false},
		{"13F-HR", "13F-HR", true},
		{"13F-HR/A", "13F-HR", true},
		{"13F-NT", "13F-HR", false},
	}
	for _, tc := range tests {
		if got := matchesFormFamily(tc.filed, tc.requested); got != tc.want {
			t.Errorf("matchesFormFamily(%q, %q) = %v, want %v", tc.filed, tc.requested, got, tc.want)
		}
	}
}

func TestPadAndStripCIK(t *testing.T) {
	if got := PadCIK("320193"); got != "0000320193" {
		t.Errorf("PadCIK = %q", got)
	}
	if got := PadCIK("0000320193"); got != "0000320193" {
		t.Errorf("PadCIK of padded input = %q", got)
	}
	if got := StripCIK("0000320193"); got != "320193" {
		t.Errorf("StripCIK = %q", got)
	}
	if got := StripCIK("0"); got != "0" {
		t.Errorf("StripCIK zero = %q", got)
	}
}
