package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/tuitron-api/internal/models"
	"github.com/noah-isme/tuitron-api/internal/repository"
	"github.com/noah-isme/tuitron-api/pkg/events"
	"github.com/noah-isme/tuitron-api/pkg/stripe"
)

type fakeAccounts struct {
	mu         sync.Mutex
	accounts   map[string]*models.Account
	auditLogs  []*models.AuditLog
	seq        int
	setRoleErr error
}

func newFakeAccounts(accounts ...models.Account) *fakeAccounts {
	f := &fakeAccounts{accounts: map[string]*models.Account{}}
	for i := range accounts {
		a := accounts[i]
		f.accounts[a.ID] = &a
	}
	return f
}

func (f *fakeAccounts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.accounts)
}

func (f *fakeAccounts) adminCount() int {
	n := 0
	for _, a := range f.accounts {
		if a.Role == models.RoleAdmin {
			n++
		}
	}
	return n
}

func (f *fakeAccounts) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if strings.EqualFold(a.Email, email) {
			copy := *a
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAccounts) FindByID(ctx context.Context, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[id]; ok {
		copy := *a
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAccounts) Create(ctx context.Context, account *models.Account) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if strings.EqualFold(a.Email, account.Email) {
			*account = *a
			return false, nil
		}
	}
	f.seq++
	account.ID = fmt.Sprintf("acc-%d", f.seq)
	account.CreatedAt = time.Now()
	copy := *account
	f.accounts[account.ID] = &copy
	return true, nil
}

func (f *fakeAccounts) UpdateProfile(ctx context.Context, account *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *account
	f.accounts[account.ID] = &copy
	return nil
}

func (f *fakeAccounts) List(ctx context.Context, filter models.AccountFilter) ([]models.Account, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Account
	for _, a := range f.accounts {
		if filter.Role == nil || a.Role == *filter.Role {
			out = append(out, *a)
		}
	}
	return out, len(out), nil
}

func (f *fakeAccounts) UpdateRoleGuarded(ctx context.Context, id string, role models.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	if a.Role == models.RoleAdmin && role != models.RoleAdmin && f.adminCount() <= 1 {
		return repository.ErrLastAdmin
	}
	a.Role = role
	return nil
}

func (f *fakeAccounts) DeleteGuarded(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	if a.Role == models.RoleAdmin && f.adminCount() <= 1 {
		return repository.ErrLastAdmin
	}
	delete(f.accounts, id)
	return nil
}

func (f *fakeAccounts) SetRole(ctx context.Context, email string, role models.Role) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setRoleErr != nil {
		return false, f.setRoleErr
	}
	for _, a := range f.accounts {
		if strings.EqualFold(a.Email, email) && a.Role != models.RoleAdmin {
			a.Role = role
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAccounts) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auditLogs = append(f.auditLogs, log)
	return nil
}

func (f *fakeAccounts) role(id string) models.Role {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[id].Role
}

type fakeTuitions struct {
	mu       sync.Mutex
	tuitions map[string]*models.Tuition
	seq      int
}

func newFakeTuitions() *fakeTuitions {
	return &fakeTuitions{tuitions: map[string]*models.Tuition{}}
}

func (f *fakeTuitions) Create(ctx context.Context, tuition *models.Tuition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if tuition.ID == "" {
		tuition.ID = uuid.NewString()
	}
	tuition.CreatedAt = time.Now().Add(time.Duration(f.seq) * time.Millisecond)
	copy := *tuition
	f.tuitions[tuition.ID] = &copy
	return nil
}

func (f *fakeTuitions) FindByID(ctx context.Context, id string) (*models.Tuition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tuitions[id]; ok {
		copy := *t
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTuitions) List(ctx context.Context, filter models.TuitionFilter) ([]models.Tuition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Tuition, 0)
	for _, t := range f.tuitions {
		if filter.Email != "" && !strings.EqualFold(filter.Email, t.PostedBy.Email) {
			continue
		}
		if filter.SalaryMin != nil && t.Budget < *filter.SalaryMin {
			continue
		}
		if filter.SalaryMax != nil && t.Budget > *filter.SalaryMax {
			continue
		}
		if filter.Location != "" && !strings.Contains(strings.ToLower(t.Location), strings.ToLower(filter.Location)) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeTuitions) Update(ctx context.Context, tuition *models.Tuition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *tuition
	f.tuitions[tuition.ID] = &copy
	return nil
}

func (f *fakeTuitions) SetStatus(ctx context.Context, id string, status models.TuitionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tuitions[id]
	if !ok {
		return sql.ErrNoRows
	}
	t.Status = status
	return nil
}

func (f *fakeTuitions) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tuitions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.tuitions, id)
	return nil
}

func (f *fakeTuitions) markPaid(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tuitions[id]; ok {
		t.PaymentStatus = models.PaymentPaid
	}
}

type fakeTutors struct {
	mu     sync.Mutex
	tutors map[string]*models.Tutor
	seq    int
}

func newFakeTutors(tutors ...models.Tutor) *fakeTutors {
	f := &fakeTutors{tutors: map[string]*models.Tutor{}}
	for i := range tutors {
		t := tutors[i]
		f.tutors[t.ID] = &t
	}
	return f
}

func (f *fakeTutors) Create(ctx context.Context, tutor *models.Tutor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tutors {
		if strings.EqualFold(t.Email, tutor.Email) {
			return repository.ErrDuplicate
		}
	}
	f.seq++
	tutor.ID = fmt.Sprintf("tut-%d", f.seq)
	copy := *tutor
	f.tutors[tutor.ID] = &copy
	return nil
}

func (f *fakeTutors) FindByID(ctx context.Context, id string) (*models.Tutor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tutors[id]; ok {
		copy := *t
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTutors) FindByEmail(ctx context.Context, email string) (*models.Tutor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tutors {
		if strings.EqualFold(t.Email, email) {
			copy := *t
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTutors) List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Tutor
	for _, t := range f.tutors {
		if filter.Status == nil || t.Status == *filter.Status {
			out = append(out, *t)
		}
	}
	return out, len(out), nil
}

func (f *fakeTutors) Latest(ctx context.Context, limit int) ([]models.Tutor, error) {
	status := models.TutorApproved
	out, _, err := f.List(ctx, models.TutorFilter{Status: &status})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (f *fakeTutors) Update(ctx context.Context, tutor *models.Tutor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *tutor
	f.tutors[tutor.ID] = &copy
	return nil
}

func (f *fakeTutors) SetStatus(ctx context.Context, id string, status models.TutorStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tutors[id]
	if !ok {
		return sql.ErrNoRows
	}
	t.Status = status
	return nil
}

func (f *fakeTutors) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tutors[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.tutors, id)
	return nil
}

type fakeApplications struct {
	mu   sync.Mutex
	apps map[string]*models.Application
	seq  int
	// skipExists simulates a concurrent request that passed the pre-check.
	skipExists bool
}

func newFakeApplications() *fakeApplications {
	return &fakeApplications{apps: map[string]*models.Application{}}
}

func (f *fakeApplications) Create(ctx context.Context, app *models.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.apps {
		if a.TuitionID == app.TuitionID && a.TutorID == app.TutorID {
			return repository.ErrDuplicate
		}
	}
	f.seq++
	app.ID = fmt.Sprintf("app-%d", f.seq)
	copy := *app
	f.apps[app.ID] = &copy
	return nil
}

func (f *fakeApplications) Exists(ctx context.Context, tuitionID, tutorID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.skipExists {
		return false, nil
	}
	for _, a := range f.apps {
		if a.TuitionID == tuitionID && a.TutorID == tutorID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeApplications) FindByID(ctx context.Context, id string) (*models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.apps[id]; ok {
		copy := *a
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeApplications) filter(keep func(*models.Application) bool) []models.Application {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Application, 0)
	for _, a := range f.apps {
		if keep(a) {
			out = append(out, *a)
		}
	}
	return out
}

func (f *fakeApplications) ListByTutorEmail(ctx context.Context, email string) ([]models.Application, error) {
	return f.filter(func(a *models.Application) bool { return strings.EqualFold(a.TutorEmail, email) }), nil
}

func (f *fakeApplications) ListByTuition(ctx context.Context, tuitionID string) ([]models.Application, error) {
	return f.filter(func(a *models.Application) bool { return a.TuitionID == tuitionID }), nil
}

func (f *fakeApplications) List(ctx context.Context) ([]models.Application, error) {
	return f.filter(func(*models.Application) bool { return true }), nil
}

func (f *fakeApplications) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.apps[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Status = status
	return nil
}

type fakePayments struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
	tuitions *fakeTuitions
	seq      int
	// hideOnce makes FindByTransactionID miss once, as a concurrent reconcile would.
	hideOnce bool
}

func newFakePayments(tuitions *fakeTuitions) *fakePayments {
	return &fakePayments{payments: map[string]*models.Payment{}, tuitions: tuitions}
}

func (f *fakePayments) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payments)
}

func (f *fakePayments) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hideOnce {
		f.hideOnce = false
		return nil, sql.ErrNoRows
	}
	if p, ok := f.payments[transactionID]; ok {
		copy := *p
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakePayments) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.ID == id {
			copy := *p
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakePayments) RecordPaid(ctx context.Context, payment *models.Payment) (bool, error) {
	f.mu.Lock()
	if _, ok := f.payments[payment.TransactionID]; ok {
		f.mu.Unlock()
		return false, nil
	}
	f.seq++
	payment.ID = fmt.Sprintf("pay-%d", f.seq)
	copy := *payment
	f.payments[payment.TransactionID] = &copy
	f.mu.Unlock()
	if f.tuitions != nil {
		f.tuitions.markPaid(payment.TuitionID)
	}
	return true, nil
}

func (f *fakePayments) List(ctx context.Context) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Payment, 0)
	for _, p := range f.payments {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePayments) ListByEmail(ctx context.Context, email string) ([]models.Payment, error) {
	all, _ := f.List(ctx)
	out := make([]models.Payment, 0)
	for _, p := range all {
		if strings.EqualFold(p.CustomerEmail, email) {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeProvider struct {
	mu       sync.Mutex
	created  []stripe.SessionParams
	sessions map[string]*stripe.Session
	err      error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: map[string]*stripe.Session{}}
}

func (f *fakeProvider) CreateSession(ctx context.Context, params stripe.SessionParams) (*stripe.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, params)
	id := fmt.Sprintf("cs_%d", len(f.created))
	session := &stripe.Session{
		ID:            id,
		URL:           "https://checkout.stripe.test/" + id,
		PaymentStatus: "unpaid",
		AmountTotal:   params.LineItem.UnitAmount,
		Currency:      params.LineItem.Currency,
		CustomerEmail: params.CustomerEmail,
		Metadata:      params.Metadata,
	}
	f.sessions[id] = session
	return session, nil
}

func (f *fakeProvider) RetrieveSession(ctx context.Context, id string) (*stripe.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, &stripe.RequestError{Status: http.StatusNotFound, Type: "invalid_request_error", Message: "No such checkout.session: " + id}
	}
	copy := *s
	return &copy, nil
}

// pay marks a session paid as the provider would once the customer completes checkout.
func (f *fakeProvider) pay(id, paymentIntent string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id].PaymentStatus = "paid"
	f.sessions[id].PaymentIntent = paymentIntent
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func identityFor(email string) models.Identity {
	return models.Identity{Email: email, UID: "uid-" + email}
}
