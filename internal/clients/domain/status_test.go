package domain

import "testing"

func TestParse_CanonicalValues(t *testing.T) {
	for s := range knownStatuses {
		got, err := Parse(string(s))
		if err != nil {
			t.Errorf("Parse(%q) rejected canonical status: %v", s, err)
		}
		if got != s {
			t.Errorf("Parse(%q) = %q", s, got)
		}
	}
}

func TestParse_LegacyValuesMigrate(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"follow_up_1", StatusAwaitingResponse},
		{"follow_up_2", StatusAwaitingResponse},
		{"contacted", StatusInCommunication},
		{"responded", StatusInCommunication},
		{"outreach_pending", StatusPendingOutreach},
		{"no_contact", StatusNoContactOKClose},
		{"closed", StatusClosedOther},
	}

	for _, tc := range tests {
		got, err := Parse(tc.raw)
		if err != nil {
			t.Errorf("Parse(%q) rejected legacy status: %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestParse_UnknownValueRejected(t *testing.T) {
	if _, err := Parse("lost"); err == nil {
		t.Fatal("Parse should reject unknown status strings")
	}
}

func TestLegacyAliases(t *testing.T) {
	got := LegacyAliases(StatusAwaitingResponse)
	if len(got) != 2 {
		t.Fatalf("LegacyAliases(awaiting_response) = %v, want both follow_up spellings", got)
	}
	seen := map[string]bool{}
	for _, raw := range got {
		seen[raw] = true
	}
	if !seen["follow_up_1"] || !seen["follow_up_2"] {
		t.Errorf("LegacyAliases(awaiting_response) = %v", got)
	}
	if aliases := LegacyAliases(StatusScheduled); len(aliases) != 0 {
		t.Errorf("LegacyAliases(scheduled) = %v, want none", aliases)
	}
}

func TestIsKnownWorkflow(t *testing.T) {
	for _, tag := range []string{WorkflowEvaluation, WorkflowOutreach, WorkflowReferral, WorkflowScheduling, WorkflowOther} {
		if !IsKnownWorkflow(tag) {
			t.Errorf("IsKnownWorkflow(%q) = false", tag)
		}
	}
	if IsKnownWorkflow("outreach_auto_close") {
		t.Error("undocumented workflow tags must be rejected")
	}
}

func TestMigrateLegacy(t *testing.T) {
	if got, ok := MigrateLegacy("follow_up_1"); !ok || got != StatusAwaitingResponse {
		t.Fatalf("MigrateLegacy(follow_up_1) = %q, %v", got, ok)
	}
	if _, ok := MigrateLegacy("awaiting_response"); ok {
		t.Fatal("canonical values must not be reported as legacy")
	}
}

func TestStatusPredicates(t *testing.T) {
	if !StatusClosedNoContact.IsClosed() || !StatusClosedOther.IsClosed() {
		t.Error("closure statuses must report closed")
	}
	if StatusScheduled.IsClosed() {
		t.Error("scheduled is not a closure status")
	}
	if !StatusCompleted.IsTerminal() || !StatusReferred.IsTerminal() {
		t.Error("completed and referred are terminal")
	}
	if StatusScheduled.IsTerminal() {
		t.Error("scheduled is gated, not terminal")
	}
	if !StatusAwaitingResponse.InOutreach() || !StatusFollowUpDue.InOutreach() {
		t.Error("outreach statuses must be monitored")
	}
	if StatusInCommunication.InOutreach() {
		t.Error("in_communication no longer needs reply monitoring")
	}
	if StatusCompleted.CanClose() || StatusClosedOther.CanClose() {
		t.Error("terminal and closed states cannot be closed")
	}
	if !StatusNew.CanClose() {
		t.Error("live states can be closed")
	}
}
