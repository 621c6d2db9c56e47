package audit

import (
	"context"
	"log"

	"github.com/claimpilot/ClaimPilot/app/models"
	"gorm.io/gorm"
)

// Recorder writes append-only audit entries. Every write is best-effort: a
// failing audit insert is logged and swallowed so that observability can
// never fail the operation being audited.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder creates an audit recorder backed by GORM.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record persists one audit entry. It never returns an error and never
// panics; a nil recorder or nil DB handle is a no-op.
func (r *Recorder) Record(ctx context.Context, entry models.AuditEntry) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("audit: recovered from panic while recording %q: %v", entry.Action, rec)
		}
	}()

	if r == nil || r.db == nil {
		return
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("audit: failed to record %q: %v", entry.Action, err)
	}
}
