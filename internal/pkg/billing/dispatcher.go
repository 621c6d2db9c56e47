package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/claimpilot/ClaimPilot/app/models"
	"github.com/claimpilot/ClaimPilot/internal/pkg/entitlements"
	"gorm.io/gorm"
)

// HandlerFunc is a business handler for one event type. Handlers must be
// idempotent: the pipeline deduplicates deliveries, but a crash between
// partial handler side effects and the outcome write means the same logical
// work can reach a handler again under a different provider event id.
type HandlerFunc func(ctx context.Context, ec *EventContext) error

// Dispatcher routes stored, verified events to type-specific handlers.
// Event types without a registered handler are accepted as no-ops so that
// new provider event types never break ingestion.
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

// Register wires a handler for an event type, replacing any previous one.
func (d *Dispatcher) Register(eventType string, handler HandlerFunc) {
	d.handlers[strings.ToLower(strings.TrimSpace(eventType))] = handler
}

// Dispatch invokes the handler registered for the event's type.
func (d *Dispatcher) Dispatch(ctx context.Context, ec *EventContext) error {
	handler, ok := d.handlers[strings.ToLower(strings.TrimSpace(ec.Event.EventType))]
	if !ok {
		return nil
	}
	return handler(ctx, ec)
}

func (s *Service) registerDefaultHandlers() {
	s.dispatcher.Register("subscription.created", s.handleSubscriptionEvent)
	s.dispatcher.Register("subscription.updated", s.handleSubscriptionEvent)
	s.dispatcher.Register("subscription.canceled", s.handleSubscriptionCanceled)
	s.dispatcher.Register("transaction.completed", s.handleTransactionCompleted)
	s.dispatcher.Register("transaction.payment_failed", s.handlePaymentFailed)
}

// resolveTenantForEvent is the authoritative tenant resolution performed
// after signature verification. Unlike the preflight guard it fails closed:
// an unresolvable tenant or a cross-entity contradiction fails the event.
func (s *Service) resolveTenantForEvent(ec *EventContext) (*models.Tenant, error) {
	ev := ec.Event

	code := strings.TrimSpace(ev.TenantCode)
	if code == "" && ev.UserID != "" {
		resolved, err := s.repo.LookupTenantCodeForUser(ev.UserID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("resolve tenant for user %s: %w", ev.UserID, err)
		}
		code = resolved
	}
	if code == "" && ev.SubscriptionID != "" {
		resolved, err := s.repo.LookupTenantCodeForSubscription(s.provider, ev.SubscriptionID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("resolve tenant for subscription %s: %w", ev.SubscriptionID, err)
		}
		code = resolved
	}
	if code == "" {
		return nil, errors.New("event carries no resolvable tenant reference")
	}

	tenant, err := s.repo.GetTenantByCode(code)
	if err != nil {
		return nil, fmt.Errorf("load tenant %s: %w", code, err)
	}
	if tenant.EntityCode != ec.Entity.Code {
		return nil, fmt.Errorf("tenant %s does not belong to entity %s", tenant.Code, ec.Entity.Code)
	}
	return tenant, nil
}

func (s *Service) handleSubscriptionEvent(ctx context.Context, ec *EventContext) error {
	return s.syncSubscriptionFromEvent(ctx, ec, normalizeBillingStatus(ec.Event.Status))
}

func (s *Service) handleSubscriptionCanceled(ctx context.Context, ec *EventContext) error {
	return s.syncSubscriptionFromEvent(ctx, ec, models.BillingStatusCanceled)
}

func (s *Service) syncSubscriptionFromEvent(_ context.Context, ec *EventContext, status string) error {
	tenant, err := s.resolveTenantForEvent(ec)
	if err != nil {
		return err
	}

	subID := strings.TrimSpace(ec.Event.SubscriptionID)
	if subID == "" {
		return errors.New("subscription event missing subscription id")
	}

	sub := &models.BillingSubscription{
		TenantID:               tenant.ID,
		Provider:               s.provider,
		ProviderSubscriptionID: subID,
		ProviderPlanRef:        ec.Event.PriceRef,
		InternalPlan:           string(s.mapPlan(ec.Event.PriceRef)),
		Status:                 status,
		RawPayloadJSON:         ec.Stored.PayloadJSON,
	}
	if err := s.repo.UpsertSubscription(sub); err != nil {
		return fmt.Errorf("upsert subscription %s: %w", subID, err)
	}

	return s.reconcileTenantPlan(tenant)
}

func (s *Service) handleTransactionCompleted(ctx context.Context, ec *EventContext) error {
	tenant, err := s.resolveTenantForEvent(ec)
	if err != nil {
		return err
	}

	if subID := strings.TrimSpace(ec.Event.SubscriptionID); subID != "" {
		sub := &models.BillingSubscription{
			TenantID:               tenant.ID,
			Provider:               s.provider,
			ProviderSubscriptionID: subID,
			ProviderPlanRef:        ec.Event.PriceRef,
			InternalPlan:           string(s.mapPlan(ec.Event.PriceRef)),
			Status:                 models.BillingStatusActive,
			RawPayloadJSON:         ec.Stored.PayloadJSON,
		}
		if err := s.repo.UpsertSubscription(sub); err != nil {
			return fmt.Errorf("upsert subscription %s: %w", subID, err)
		}
		if err := s.reconcileTenantPlan(tenant); err != nil {
			return err
		}
	}

	if err := s.repo.CreateNotification(&models.Notification{
		TenantID:    tenant.ID,
		Type:        "billing",
		Content:     "Payment received, subscription is active.",
		ReferenceID: ec.Stored.ID,
	}); err != nil {
		return fmt.Errorf("create payment notification: %w", err)
	}

	if tenant.BillingEmail != "" {
		subject := fmt.Sprintf("Payment received for %s", tenant.Name)
		body := fmt.Sprintf("<p>We received your payment. Your %s subscription is active.</p>", tenant.Plan)
		if err := s.sendMail(tenant.BillingEmail, subject, body); err != nil {
			return fmt.Errorf("send payment confirmation: %w", err)
		}
	}
	return nil
}

func (s *Service) handlePaymentFailed(ctx context.Context, ec *EventContext) error {
	tenant, err := s.resolveTenantForEvent(ec)
	if err != nil {
		return err
	}

	if subID := strings.TrimSpace(ec.Event.SubscriptionID); subID != "" {
		sub := &models.BillingSubscription{
			TenantID:               tenant.ID,
			Provider:               s.provider,
			ProviderSubscriptionID: subID,
			ProviderPlanRef:        ec.Event.PriceRef,
			InternalPlan:           string(s.mapPlan(ec.Event.PriceRef)),
			Status:                 models.BillingStatusPastDue,
			RawPayloadJSON:         ec.Stored.PayloadJSON,
		}
		if err := s.repo.UpsertSubscription(sub); err != nil {
			return fmt.Errorf("upsert subscription %s: %w", subID, err)
		}
	}

	if err := s.repo.CreateNotification(&models.Notification{
		TenantID:    tenant.ID,
		Type:        "billing",
		Content:     "A subscription payment failed. Please update your payment method.",
		ReferenceID: ec.Stored.ID,
	}); err != nil {
		return fmt.Errorf("create dunning notification: %w", err)
	}

	if tenant.BillingEmail != "" {
		subject := fmt.Sprintf("Payment failed for %s", tenant.Name)
		body := "<p>A subscription payment failed. Please update your payment method to keep your plan active.</p>"
		if err := s.sendMail(tenant.BillingEmail, subject, body); err != nil {
			return fmt.Errorf("send payment failure notice: %w", err)
		}
	}
	return nil
}

// mapPlan resolves a provider price reference to an internal plan via the
// billing_plan_mappings table, defaulting to the starter plan.
func (s *Service) mapPlan(priceRef string) entitlements.Plan {
	ref := strings.TrimSpace(priceRef)
	if ref == "" {
		return entitlements.PlanStarter
	}
	m, err := s.repo.FindActivePlanMapping(s.provider, ref)
	if err != nil {
		return entitlements.PlanStarter
	}
	return entitlements.NormalizePlan(m.InternalPlan)
}

// reconcileTenantPlan computes and writes the best effective plan from the
// tenant's entitling subscriptions.
func (s *Service) reconcileTenantPlan(tenant *models.Tenant) error {
	subs, err := s.repo.ListSubscriptionsByTenant(tenant.ID)
	if err != nil {
		return fmt.Errorf("list subscriptions for tenant %s: %w", tenant.Code, err)
	}

	best := entitlements.PlanStarter
	for _, sub := range subs {
		if !isEntitlingStatus(sub.Status) {
			continue
		}
		candidate := entitlements.NormalizePlan(sub.InternalPlan)
		if entitlements.PlanRank(candidate) > entitlements.PlanRank(best) {
			best = candidate
		}
	}

	if entitlements.NormalizePlan(tenant.Plan) == best {
		return nil
	}
	tenant.Plan = string(best)
	return s.repo.SaveTenant(tenant)
}
