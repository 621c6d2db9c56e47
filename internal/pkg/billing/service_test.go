package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/claimpilot/ClaimPilot/app/models"
	"gorm.io/gorm"
)

// fakeRepository is an in-memory Repository for pipeline tests. The
// dedupe-key map plays the role of the unique index.
type fakeRepository struct {
	events      map[string]*models.BillingWebhookEvent
	nextEventID uint

	tenantsByCode map[string]*models.Tenant
	tenantsByID   map[uint]*models.Tenant
	userTenant    map[string]string
	subTenant     map[string]string
	mappings      map[string]*models.BillingPlanMapping
	subs          map[string]*models.BillingSubscription
	notifications []*models.Notification

	insertErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		events:        make(map[string]*models.BillingWebhookEvent),
		tenantsByCode: make(map[string]*models.Tenant),
		tenantsByID:   make(map[uint]*models.Tenant),
		userTenant:    make(map[string]string),
		subTenant:     make(map[string]string),
		mappings:      make(map[string]*models.BillingPlanMapping),
		subs:          make(map[string]*models.BillingSubscription),
	}
}

func (f *fakeRepository) addTenant(t *models.Tenant) {
	f.tenantsByCode[t.Code] = t
	f.tenantsByID[t.ID] = t
}

func (f *fakeRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	if f.insertErr != nil {
		return false, nil, f.insertErr
	}
	if existing, ok := f.events[event.DedupeKey]; ok {
		return false, existing, nil
	}
	f.nextEventID++
	event.ID = f.nextEventID
	f.events[event.DedupeKey] = event
	return true, event, nil
}

func (f *fakeRepository) MarkWebhookProcessed(id uint) error {
	for _, ev := range f.events {
		if ev.ID == id {
			ev.Status = models.WebhookStatusProcessed
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) MarkWebhookFailed(id uint, processingError string) error {
	for _, ev := range f.events {
		if ev.ID == id {
			ev.Status = models.WebhookStatusFailed
			ev.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetTenantByCode(code string) (*models.Tenant, error) {
	if t, ok := f.tenantsByCode[code]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) LookupTenantCodeForUser(userID string) (string, error) {
	if code, ok := f.userTenant[userID]; ok {
		return code, nil
	}
	return "", gorm.ErrRecordNotFound
}

func (f *fakeRepository) LookupTenantCodeForSubscription(provider, subID string) (string, error) {
	if code, ok := f.subTenant[subID]; ok {
		return code, nil
	}
	return "", gorm.ErrRecordNotFound
}

func (f *fakeRepository) ResolveEntityForTenant(tenantCode string) (string, error) {
	t, err := f.GetTenantByCode(tenantCode)
	if err != nil {
		return "", err
	}
	return t.EntityCode, nil
}

func (f *fakeRepository) FindActivePlanMapping(provider, ref string) (*models.BillingPlanMapping, error) {
	if m, ok := f.mappings[provider+":"+ref]; ok && m.IsActive {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) UpsertSubscription(sub *models.BillingSubscription) error {
	key := sub.Provider + ":" + sub.ProviderSubscriptionID
	if existing, ok := f.subs[key]; ok {
		sub.ID = existing.ID
	} else {
		sub.ID = uint(len(f.subs) + 1)
	}
	f.subs[key] = sub
	return nil
}

func (f *fakeRepository) ListSubscriptionsByTenant(tenantID uint) ([]models.BillingSubscription, error) {
	var out []models.BillingSubscription
	for _, sub := range f.subs {
		if sub.TenantID == tenantID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (f *fakeRepository) SaveTenant(tenant *models.Tenant) error {
	f.addTenant(tenant)
	return nil
}

func (f *fakeRepository) CreateNotification(n *models.Notification) error {
	f.notifications = append(f.notifications, n)
	return nil
}

type fakeAuditor struct {
	actions []string
}

func (f *fakeAuditor) Record(_ context.Context, entry models.AuditEntry) {
	f.actions = append(f.actions, entry.Action)
}

func (f *fakeAuditor) has(action string) bool {
	for _, a := range f.actions {
		if a == action {
			return true
		}
	}
	return false
}

func newTestService(repo *fakeRepository) (*Service, *fakeAuditor) {
	aud := &fakeAuditor{}
	s := NewService(repo)
	s.auditor = aud
	s.sendMail = func(to, subject, body string) error { return nil }
	s.verifySig = func(payload []byte, header, secret string) bool { return header == "valid" }
	return s, aud
}

func testEntity() Entity {
	return Entity{Code: "ks", Name: "ClaimPilot KS", WebhookSecret: "whsec_test"}
}

func TestProcessWebhook_SuccessThenDuplicate(t *testing.T) {
	repo := newFakeRepository()
	s, aud := newTestService(repo)

	body := []byte(`{"event_id":"evt_1","event_type":"address.created"}`)

	res, err := s.ProcessWebhook(context.Background(), testEntity(), body, "valid")
	if err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if res.Duplicate {
		t.Fatalf("first delivery reported as duplicate")
	}
	if len(repo.events) != 1 {
		t.Fatalf("expected 1 stored event, got %d", len(repo.events))
	}

	stored := repo.events["paddle:evt_1"]
	if stored == nil {
		t.Fatalf("event stored under wrong dedupe key: %v", repo.events)
	}
	if stored.Status != models.WebhookStatusProcessed {
		t.Fatalf("stored status = %q, want processed", stored.Status)
	}
	if !stored.SignatureValid || stored.SignatureBypassed {
		t.Fatalf("signature flags = valid:%v bypassed:%v, want valid:true bypassed:false",
			stored.SignatureValid, stored.SignatureBypassed)
	}

	res2, err := s.ProcessWebhook(context.Background(), testEntity(), body, "valid")
	if err != nil {
		t.Fatalf("duplicate delivery failed: %v", err)
	}
	if !res2.Duplicate {
		t.Fatalf("second delivery not reported as duplicate")
	}
	if res2.EventID != res.EventID {
		t.Fatalf("duplicate EventID = %d, want %d", res2.EventID, res.EventID)
	}
	if len(repo.events) != 1 {
		t.Fatalf("duplicate delivery created a second row: %d", len(repo.events))
	}
	if !aud.has(models.AuditWebhookDuplicate) {
		t.Fatalf("duplicate was not audited: %v", aud.actions)
	}
}

func TestProcessWebhook_MissingSignature(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	repo := newFakeRepository()
	s, aud := newTestService(repo)

	_, err := s.ProcessWebhook(context.Background(), testEntity(), []byte(`{"event_id":"evt_1"}`), "")
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("err = %v, want ErrMissingCredentials", err)
	}
	if len(repo.events) != 0 {
		t.Fatalf("rejected delivery must not write an event row, got %d", len(repo.events))
	}
	if !aud.has(models.AuditWebhookRejectedCredentials) {
		t.Fatalf("credentials rejection was not audited: %v", aud.actions)
	}
}

func TestProcessWebhook_MissingSecret(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	repo := newFakeRepository()
	s, _ := newTestService(repo)

	entity := testEntity()
	entity.WebhookSecret = ""
	_, err := s.ProcessWebhook(context.Background(), entity, []byte(`{"event_id":"evt_1"}`), "valid")
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("err = %v, want ErrMissingCredentials", err)
	}
	if len(repo.events) != 0 {
		t.Fatalf("rejected delivery must not write an event row, got %d", len(repo.events))
	}
}

func TestProcessWebhook_DevBypassWithoutSecret(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	repo := newFakeRepository()
	s, _ := newTestService(repo)

	entity := testEntity()
	entity.WebhookSecret = ""
	res, err := s.ProcessWebhook(context.Background(), entity, []byte(`{"event_id":"evt_1","event_type":"address.created"}`), "")
	if err != nil {
		t.Fatalf("dev bypass delivery failed: %v", err)
	}
	if res.Duplicate {
		t.Fatalf("bypass delivery reported as duplicate")
	}

	stored := repo.events["paddle:evt_1"]
	if stored == nil {
		t.Fatalf("bypass delivery did not store an event")
	}
	if stored.SignatureValid || !stored.SignatureBypassed {
		t.Fatalf("signature flags = valid:%v bypassed:%v, want valid:false bypassed:true",
			stored.SignatureValid, stored.SignatureBypassed)
	}
}

func TestProcessWebhook_InvalidSignature(t *testing.T) {
	repo := newFakeRepository()
	s, aud := newTestService(repo)

	_, err := s.ProcessWebhook(context.Background(), testEntity(), []byte(`{"event_id":"evt_1"}`), "bogus")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
	if len(repo.events) != 0 {
		t.Fatalf("rejected delivery must not write an event row, got %d", len(repo.events))
	}
	if !aud.has(models.AuditWebhookRejectedSignature) {
		t.Fatalf("signature rejection was not audited: %v", aud.actions)
	}
}

func TestProcessWebhook_EntityMismatch(t *testing.T) {
	repo := newFakeRepository()
	s, aud := newTestService(repo)

	body := []byte(`{"event_id":"evt_1","event_type":"subscription.created","data":{"custom_data":{"entity":"eu"}}}`)
	_, err := s.ProcessWebhook(context.Background(), testEntity(), body, "valid")
	if !errors.Is(err, ErrEntityMismatch) {
		t.Fatalf("err = %v, want ErrEntityMismatch", err)
	}
	if len(repo.events) != 0 {
		t.Fatalf("mismatched delivery must not write an event row, got %d", len(repo.events))
	}
	if !aud.has(models.AuditWebhookRejectedMismatch) {
		t.Fatalf("mismatch rejection was not audited: %v", aud.actions)
	}
}

func TestProcessWebhook_HandlerFailureMarksRowFailed(t *testing.T) {
	repo := newFakeRepository()
	s, aud := newTestService(repo)

	boom := errors.New("downstream exploded")
	s.RegisterHandler("address.created", func(ctx context.Context, ec *EventContext) error {
		return boom
	})

	_, err := s.ProcessWebhook(context.Background(), testEntity(),
		[]byte(`{"event_id":"evt_1","event_type":"address.created"}`), "valid")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped handler error", err)
	}

	stored := repo.events["paddle:evt_1"]
	if stored == nil {
		t.Fatalf("failed delivery must still keep its event row")
	}
	if stored.Status != models.WebhookStatusFailed {
		t.Fatalf("stored status = %q, want failed", stored.Status)
	}
	if stored.ProcessingError == "" {
		t.Fatalf("processing error was not recorded")
	}
	if !aud.has(models.AuditWebhookFailed) {
		t.Fatalf("handler failure was not audited: %v", aud.actions)
	}
}

func TestProcessWebhook_DedupeKeyFallsBackToPayloadHash(t *testing.T) {
	repo := newFakeRepository()
	s, _ := newTestService(repo)

	body := []byte(`{"event_type":"address.created"}`)
	if _, err := s.ProcessWebhook(context.Background(), testEntity(), body, "valid"); err != nil {
		t.Fatalf("delivery without event id failed: %v", err)
	}

	wantKey := "paddle:sha256:" + PayloadHash(body)
	if repo.events[wantKey] == nil {
		t.Fatalf("event not stored under hash fallback key %q: %v", wantKey, repo.events)
	}

	res, err := s.ProcessWebhook(context.Background(), testEntity(), body, "valid")
	if err != nil {
		t.Fatalf("replayed body failed: %v", err)
	}
	if !res.Duplicate {
		t.Fatalf("byte-identical replay without event id should deduplicate")
	}
}

func TestProcessWebhook_SubscriptionCreatedSyncsPlan(t *testing.T) {
	repo := newFakeRepository()
	repo.addTenant(&models.Tenant{ID: 1, Code: "acme", Name: "Acme Adjusters", EntityCode: "ks", Plan: "starter"})
	repo.mappings["paddle:pri_pro"] = &models.BillingPlanMapping{
		Provider: "paddle", ProviderPlanRef: "pri_pro", InternalPlan: "professional", IsActive: true,
	}
	s, aud := newTestService(repo)

	body := []byte(`{
		"event_id": "evt_1",
		"event_type": "subscription.created",
		"data": {
			"id": "sub_1",
			"status": "active",
			"price_id": "pri_pro",
			"custom_data": {"tenant_id": "acme"}
		}
	}`)
	if _, err := s.ProcessWebhook(context.Background(), testEntity(), body, "valid"); err != nil {
		t.Fatalf("subscription.created failed: %v", err)
	}

	sub := repo.subs["paddle:sub_1"]
	if sub == nil {
		t.Fatalf("subscription was not upserted: %v", repo.subs)
	}
	if sub.TenantID != 1 || sub.InternalPlan != "professional" || sub.Status != models.BillingStatusActive {
		t.Fatalf("unexpected subscription: %+v", sub)
	}
	if repo.tenantsByCode["acme"].Plan != "professional" {
		t.Fatalf("tenant plan = %q, want professional", repo.tenantsByCode["acme"].Plan)
	}
	if !aud.has(models.AuditWebhookProcessed) {
		t.Fatalf("processed outcome was not audited: %v", aud.actions)
	}
}

func TestProcessWebhook_SubscriptionCanceledDowngradesPlan(t *testing.T) {
	repo := newFakeRepository()
	repo.addTenant(&models.Tenant{ID: 1, Code: "acme", Name: "Acme Adjusters", EntityCode: "ks", Plan: "professional"})
	repo.subTenant["sub_1"] = "acme"
	repo.subs["paddle:sub_1"] = &models.BillingSubscription{
		ID: 1, TenantID: 1, Provider: "paddle", ProviderSubscriptionID: "sub_1",
		InternalPlan: "professional", Status: models.BillingStatusActive,
	}
	s, _ := newTestService(repo)

	body := []byte(`{
		"event_id": "evt_2",
		"event_type": "subscription.canceled",
		"data": {"id": "sub_1"}
	}`)
	if _, err := s.ProcessWebhook(context.Background(), testEntity(), body, "valid"); err != nil {
		t.Fatalf("subscription.canceled failed: %v", err)
	}

	if repo.subs["paddle:sub_1"].Status != models.BillingStatusCanceled {
		t.Fatalf("subscription status = %q, want canceled", repo.subs["paddle:sub_1"].Status)
	}
	if repo.tenantsByCode["acme"].Plan != "starter" {
		t.Fatalf("tenant plan = %q, want starter after downgrade", repo.tenantsByCode["acme"].Plan)
	}
}

func TestProcessWebhook_TransactionCompletedNotifies(t *testing.T) {
	repo := newFakeRepository()
	repo.addTenant(&models.Tenant{
		ID: 1, Code: "acme", Name: "Acme Adjusters", EntityCode: "ks",
		Plan: "starter", BillingEmail: "billing@acme.example",
	})
	s, _ := newTestService(repo)

	var sentTo string
	s.SetMailSender(func(to, subject, body string) error {
		sentTo = to
		return nil
	})

	body := []byte(`{
		"event_id": "evt_3",
		"event_type": "transaction.completed",
		"data": {
			"subscription_id": "sub_1",
			"custom_data": {"tenant_id": "acme"}
		}
	}`)
	if _, err := s.ProcessWebhook(context.Background(), testEntity(), body, "valid"); err != nil {
		t.Fatalf("transaction.completed failed: %v", err)
	}

	if len(repo.notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.notifications))
	}
	if repo.notifications[0].Type != "billing" || repo.notifications[0].TenantID != 1 {
		t.Fatalf("unexpected notification: %+v", repo.notifications[0])
	}
	if sentTo != "billing@acme.example" {
		t.Fatalf("confirmation mail sent to %q, want billing email", sentTo)
	}
}

func TestProcessWebhook_HandlerFailsClosedOnUnknownTenant(t *testing.T) {
	// The guard fails open on an unresolvable tenant reference, so the row
	// is stored; the business handler then fails closed and the row ends up
	// marked failed instead of silently processed.
	repo := newFakeRepository()
	s, _ := newTestService(repo)

	body := []byte(`{
		"event_id": "evt_4",
		"event_type": "subscription.created",
		"data": {"id": "sub_1", "custom_data": {"tenant_id": "nobody"}}
	}`)
	_, err := s.ProcessWebhook(context.Background(), testEntity(), body, "valid")
	if err == nil {
		t.Fatalf("expected handler to fail on unknown tenant")
	}
	if errors.Is(err, ErrEntityMismatch) {
		t.Fatalf("unresolvable tenant must not be a boundary rejection: %v", err)
	}

	stored := repo.events["paddle:evt_4"]
	if stored == nil {
		t.Fatalf("event row must be stored before the handler runs")
	}
	if stored.Status != models.WebhookStatusFailed {
		t.Fatalf("stored status = %q, want failed", stored.Status)
	}
}

func TestProcessWebhook_UnknownEventTypeIsProcessed(t *testing.T) {
	repo := newFakeRepository()
	s, _ := newTestService(repo)

	body := []byte(`{"event_id":"evt_1","event_type":"price.imported"}`)
	res, err := s.ProcessWebhook(context.Background(), testEntity(), body, "valid")
	if err != nil {
		t.Fatalf("unknown event type failed: %v", err)
	}
	if res.Duplicate {
		t.Fatalf("unknown event type reported as duplicate")
	}
	if repo.events["paddle:evt_1"].Status != models.WebhookStatusProcessed {
		t.Fatalf("unknown event type not marked processed: %q", repo.events["paddle:evt_1"].Status)
	}
}

func TestProcessWebhook_StoreErrorPropagates(t *testing.T) {
	repo := newFakeRepository()
	repo.insertErr = fmt.Errorf("connection refused")
	s, _ := newTestService(repo)

	_, err := s.ProcessWebhook(context.Background(), testEntity(), []byte(`{"event_id":"evt_1"}`), "valid")
	if err == nil {
		t.Fatalf("expected store error to propagate")
	}
	if errors.Is(err, ErrInvalidSignature) || errors.Is(err, ErrMissingCredentials) || errors.Is(err, ErrEntityMismatch) {
		t.Fatalf("store error must not look like a boundary rejection: %v", err)
	}
}
