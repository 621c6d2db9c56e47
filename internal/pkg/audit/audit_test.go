package audit

import (
	"context"
	"testing"

	"github.com/claimpilot/ClaimPilot/app/models"
)

func TestRecordWithoutDatabaseIsNoOp(t *testing.T) {
	// A recorder without a DB handle must swallow the write instead of
	// failing the caller.
	r := NewRecorder(nil)
	r.Record(context.Background(), models.AuditEntry{Action: models.AuditWebhookProcessed})
}

func TestRecordOnNilRecorderIsNoOp(t *testing.T) {
	var r *Recorder
	r.Record(context.Background(), models.AuditEntry{Action: models.AuditWebhookFailed})
}
