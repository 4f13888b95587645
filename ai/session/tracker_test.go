package session

import (
	"testing"
)

func TestStartSession_UnchangedModeIsNoOp(t *testing.T) {
	tr := NewTracker()
	tr.StartSession(ModeExpenses)
	tr.MarkMetadataSent()
	id := tr.ConversationID()

	tr.StartSession(ModeExpenses)

	if tr.NeedsMetadata(ModeExpenses) {
		t.Error("metadataSent must survive a same-mode StartSession")
	}
	if tr.ConversationID() != id {
		t.Error("conversation id must survive a same-mode StartSession")
	}
}

func TestStartSession_ModeChangeResets(t *testing.T) {
	tr := NewTracker()
	tr.StartSession(ModeExpenses)
	tr.MarkMetadataSent()
	expensesID := tr.ConversationID()

	tr.StartSession(ModeInvestments)

	if !tr.NeedsMetadata(ModeInvestments) {
		t.Error("mode change must reset metadataSent")
	}
	investmentsID := tr.ConversationID()
	if investmentsID == "" || investmentsID == expensesID {
		t.Errorf("mode change must assign a new distinct conversation id, got %q then %q", expensesID, investmentsID)
	}
	if tr.Mode() != ModeInvestments {
		t.Errorf("Mode() = %q, want %q", tr.Mode(), ModeInvestments)
	}
}

func TestNeedsMetadata_DifferentModeAlwaysTrue(t *testing.T) {
	tr := NewTracker()
	tr.StartSession(ModeExpenses)
	tr.MarkMetadataSent()

	if tr.NeedsMetadata(ModeExpenses) {
		t.Error("NeedsMetadata(current mode) should be false after MarkMetadataSent")
	}
	if !tr.NeedsMetadata(ModeInvestments) {
		t.Error("NeedsMetadata(other mode) should be true")
	}
}

func TestMarkMetadataSent_Idempotent(t *testing.T) {
	tr := NewTracker()
	tr.StartSession(ModeExpenses)

	tr.MarkMetadataSent()
	tr.MarkMetadataSent()

	if tr.NeedsMetadata(ModeExpenses) {
		t.Error("metadataSent should stay true")
	}
}

func TestMode_Valid(t *testing.T) {
	if !ModeExpenses.Valid() || !ModeInvestments.Valid() {
		t.Error("known modes must be valid")
	}
	if Mode("stocks").Valid() {
		t.Error("unknown mode must be invalid")
	}
	if Mode("").Valid() {
		t.Error("empty mode must be invalid")
	}
}
