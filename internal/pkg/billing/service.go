package billing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/claimpilot/ClaimPilot/app/models"
	"github.com/claimpilot/ClaimPilot/internal/pkg/audit"
	"github.com/claimpilot/ClaimPilot/internal/pkg/env"
	"github.com/claimpilot/ClaimPilot/internal/pkg/mail"
	"gorm.io/gorm"
)

var (
	// ErrMissingCredentials marks a delivery without a usable signature or
	// secret. Client misconfiguration, not a verification failure.
	ErrMissingCredentials = errors.New("missing signature or secret")
	// ErrInvalidSignature marks a delivery whose recomputed signature does
	// not match the header. Treated as hostile input.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Auditor is the append-only audit sink. Implementations must be
// best-effort and never propagate their own failures.
type Auditor interface {
	Record(ctx context.Context, entry models.AuditEntry)
}

// MailSenderFunc sends one transactional email.
type MailSenderFunc func(to, subject, body string) error

// Service runs the webhook ingestion pipeline: verify, normalize, dedupe,
// guard, store, dispatch, record outcome. It holds no mutable state of its
// own; at-most-once processing rests entirely on the event store's unique
// dedupe-key constraint.
type Service struct {
	repo       Repository
	dispatcher *Dispatcher
	auditor    Auditor
	sendMail   MailSenderFunc
	verifySig  func(payload []byte, signatureHeader, secret string) bool
	provider   string
}

// NewService creates a webhook service from an injected repository.
func NewService(repo Repository) *Service {
	s := &Service{
		repo:       repo,
		dispatcher: NewDispatcher(),
		auditor:    audit.NewRecorder(nil),
		sendMail:   mail.SendMail,
		verifySig:  VerifyPaddleWebhookSignature,
		provider:   models.BillingProviderPaddle,
	}
	s.registerDefaultHandlers()
	return s
}

// NewServiceFromDB creates a webhook service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	s := NewService(NewRepository(db))
	s.auditor = audit.NewRecorder(db)
	return s
}

// SetAuditor replaces the audit sink.
func (s *Service) SetAuditor(a Auditor) {
	s.auditor = a
}

// SetMailSender replaces the transactional mail sender.
func (s *Service) SetMailSender(fn MailSenderFunc) {
	s.sendMail = fn
}

// RegisterHandler wires a custom handler for an event type. Handlers must
// be idempotent (see HandlerFunc).
func (s *Service) RegisterHandler(eventType string, handler HandlerFunc) {
	s.dispatcher.Register(eventType, handler)
}

// ProcessWebhook runs one raw delivery through the full pipeline. The
// returned errors map onto the HTTP contract: ErrMissingCredentials,
// ErrInvalidSignature, ErrEntityMismatch are boundary rejections with no
// event row written; any other error is a processing failure recorded
// against the already persisted row.
func (s *Service) ProcessWebhook(ctx context.Context, entity Entity, rawBody []byte, signatureHeader string) (*ProcessResult, error) {
	payloadHash := PayloadHash(rawBody)

	// Normalization runs before verification on purpose: the event id and
	// type are needed to audit rejected attempts.
	ev := NormalizeEvent(rawBody)
	dedupeKey := ResolveDedupeKey(s.provider, ev.EventID, payloadHash)

	signature := strings.TrimSpace(signatureHeader)
	secret := entity.WebhookSecret

	signatureValid := false
	signatureBypassed := false
	switch {
	case secret == "" && env.IsDev():
		// Local development without provider credentials. The bypass is
		// recorded on the row so the provenance stays visible.
		signatureBypassed = true
	case signature == "" || secret == "":
		s.auditor.Record(ctx, models.AuditEntry{
			Action:     models.AuditWebhookRejectedCredentials,
			Actor:      "webhook:" + s.provider,
			EntityCode: entity.Code,
			DedupeKey:  dedupeKey,
			Detail:     fmt.Sprintf("event_type=%s payload_hash=%s", ev.EventType, payloadHash),
		})
		return nil, ErrMissingCredentials
	default:
		signatureValid = s.verifySig(rawBody, signature, secret)
		if !signatureValid {
			s.auditor.Record(ctx, models.AuditEntry{
				Action:     models.AuditWebhookRejectedSignature,
				Actor:      "webhook:" + s.provider,
				EntityCode: entity.Code,
				DedupeKey:  dedupeKey,
				Detail:     fmt.Sprintf("event_type=%s payload_hash=%s", ev.EventType, payloadHash),
			})
			return nil, ErrInvalidSignature
		}
	}

	// Preflight cross-entity guard, fail-open on lookups (see guard.go).
	if err := CheckEntityMismatch(s.provider, entity.Code, ev, s.repo); err != nil {
		s.auditor.Record(ctx, models.AuditEntry{
			Action:     models.AuditWebhookRejectedMismatch,
			Actor:      "webhook:" + s.provider,
			EntityCode: entity.Code,
			TenantCode: ev.TenantCode,
			DedupeKey:  dedupeKey,
			Detail:     fmt.Sprintf("event_type=%s claimed_entity=%s", ev.EventType, ev.Entity),
		})
		return nil, err
	}

	created, stored, err := s.repo.CreateWebhookEventIfNotExists(&models.BillingWebhookEvent{
		DedupeKey:         dedupeKey,
		Provider:          s.provider,
		ProviderEventID:   ev.EventID,
		EventType:         ev.EventType,
		EntityCode:        entity.Code,
		TenantCode:        ev.TenantCode,
		SignatureValid:    signatureValid,
		SignatureBypassed: signatureBypassed,
		PayloadHash:       payloadHash,
		PayloadJSON:       string(rawBody),
		Status:            models.WebhookStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("persist webhook event: %w", err)
	}
	if !created {
		s.auditor.Record(ctx, models.AuditEntry{
			Action:     models.AuditWebhookDuplicate,
			Actor:      "webhook:" + s.provider,
			EntityCode: entity.Code,
			DedupeKey:  dedupeKey,
		})
		return &ProcessResult{Duplicate: true, EventID: stored.ID}, nil
	}

	ec := &EventContext{Entity: entity, Event: ev, Stored: stored}
	if dispatchErr := s.dispatcher.Dispatch(ctx, ec); dispatchErr != nil {
		if err := s.repo.MarkWebhookFailed(stored.ID, dispatchErr.Error()); err != nil {
			log.Printf("billing: failed to mark webhook %d failed: %v", stored.ID, err)
		}
		s.auditor.Record(ctx, models.AuditEntry{
			Action:     models.AuditWebhookFailed,
			Actor:      "webhook:" + s.provider,
			EntityCode: entity.Code,
			TenantCode: ev.TenantCode,
			DedupeKey:  dedupeKey,
			Detail:     dispatchErr.Error(),
		})
		return nil, fmt.Errorf("process %s: %w", ev.EventType, dispatchErr)
	}

	if err := s.repo.MarkWebhookProcessed(stored.ID); err != nil {
		log.Printf("billing: failed to mark webhook %d processed: %v", stored.ID, err)
	}
	s.auditor.Record(ctx, models.AuditEntry{
		Action:     models.AuditWebhookProcessed,
		Actor:      "webhook:" + s.provider,
		EntityCode: entity.Code,
		TenantCode: ev.TenantCode,
		DedupeKey:  dedupeKey,
		Detail:     fmt.Sprintf("event_type=%s", ev.EventType),
	})
	return &ProcessResult{EventID: stored.ID}, nil
}
