package booking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/platform/auth"
)

type fixture struct {
	store   *fakeStore
	svc     *Service
	metrics *countingMetrics
	doctor  *Doctor
	slot    *Slot
	user1   auth.Identity
	user2   auth.Identity
	admin   auth.Identity
}

func newFixture() *fixture {
	store := newFakeStore()
	metrics := &countingMetrics{}
	f := &fixture{
		store:   store,
		svc:     NewService(store, zerolog.Nop(), metrics),
		metrics: metrics,
	}
	f.doctor = store.addDoctor("Dr. House")
	f.slot = store.addSlot(f.doctor.ID)
	f.user1 = auth.Identity{UserID: store.addUser("alice", "USER").ID, Role: auth.RoleUser}
	f.user2 = auth.Identity{UserID: store.addUser("bob", "USER").ID, Role: auth.RoleUser}
	f.admin = auth.Identity{UserID: store.addUser("root", "ADMIN").ID, Role: auth.RoleAdmin}
	return f
}

func (f *fixture) book(t *testing.T, who auth.Identity, slot *Slot) *Appointment {
	t.Helper()
	a, err := f.svc.CreateAppointment(context.Background(), who, CreateAppointmentInput{
		DoctorID: slot.DoctorID.String(),
		SlotID:   slot.ID.String(),
	})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return a
}

func strPtr(s string) *string { return &s }

func TestCreateAppointment_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.svc.CreateAppointment(ctx, f.user1, CreateAppointmentInput{
		DoctorID:    f.doctor.ID.String(),
		SlotID:      f.slot.ID.String(),
		Description: strPtr("  checkup  "),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusPending {
		t.Errorf("expected PENDING, got %s", a.Status)
	}
	if a.UserID != f.user1.UserID {
		t.Errorf("expected owner %s, got %s", f.user1.UserID, a.UserID)
	}
	if a.Description == nil || *a.Description != "checkup" {
		t.Errorf("expected trimmed description, got %v", a.Description)
	}
	if a.Doctor == nil || a.User == nil || a.Slot == nil {
		t.Fatal("expected doctor, user and slot to be embedded")
	}
	if !a.Slot.Booked {
		t.Error("expected embedded slot to be booked")
	}
	if !f.store.slot(f.slot.ID).Booked {
		t.Error("expected slot to be booked in the store")
	}
	if f.metrics.get("create:ok") != 1 {
		t.Errorf("expected one create:ok outcome, got %d", f.metrics.get("create:ok"))
	}
}

func TestCreateAppointment_SameSlotTwice(t *testing.T) {
	f := newFixture()
	f.book(t, f.user1, f.slot)

	_, err := f.svc.CreateAppointment(context.Background(), f.user2, CreateAppointmentInput{
		DoctorID: f.doctor.ID.String(),
		SlotID:   f.slot.ID.String(),
	})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	if f.store.appointmentCount() != 1 {
		t.Errorf("expected exactly one appointment, got %d", f.store.appointmentCount())
	}
	if f.metrics.get("create:slot_unavailable") != 1 {
		t.Error("expected slot_unavailable outcome to be recorded")
	}
}

func TestCreateAppointment_SlotOfAnotherDoctor(t *testing.T) {
	f := newFixture()
	other := f.store.addDoctor("Dr. Grey")

	_, err := f.svc.CreateAppointment(context.Background(), f.user1, CreateAppointmentInput{
		DoctorID: other.ID.String(),
		SlotID:   f.slot.ID.String(),
	})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	if f.store.slot(f.slot.ID).Booked {
		t.Error("slot must stay free after a rejected booking")
	}
}

func TestCreateAppointment_Preconditions(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name    string
		in      CreateAppointmentInput
		wantErr error
	}{
		{"empty doctor", CreateAppointmentInput{DoctorID: "", SlotID: f.slot.ID.String()}, ErrInvalidInput},
		{"blank slot", CreateAppointmentInput{DoctorID: f.doctor.ID.String(), SlotID: "  "}, ErrInvalidInput},
		{"unknown doctor", CreateAppointmentInput{DoctorID: uuid.NewString(), SlotID: f.slot.ID.String()}, ErrDoctorNotFound},
		{"malformed doctor", CreateAppointmentInput{DoctorID: "42", SlotID: f.slot.ID.String()}, ErrDoctorNotFound},
		{"malformed slot", CreateAppointmentInput{DoctorID: f.doctor.ID.String(), SlotID: "123"}, ErrSlotNotFound},
		{"unknown slot", CreateAppointmentInput{DoctorID: f.doctor.ID.String(), SlotID: uuid.NewString()}, ErrSlotNotFound},
		// Doctor is checked before slot.
		{"unknown doctor and slot", CreateAppointmentInput{DoctorID: uuid.NewString(), SlotID: "123"}, ErrDoctorNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateAppointment(context.Background(), f.user1, tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
	if f.store.appointmentCount() != 0 {
		t.Error("failed preconditions must not write")
	}
}

func TestCreateAppointment_ConcurrentClaims(t *testing.T) {
	f := newFixture()
	const n = 20

	users := make([]auth.Identity, n)
	for i := range users {
		users[i] = auth.Identity{UserID: f.store.addUser("user", "USER").ID, Role: auth.RoleUser}
	}

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		successes   int
		unavailable int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(who auth.Identity) {
			defer wg.Done()
			<-start
			_, err := f.svc.CreateAppointment(context.Background(), who, CreateAppointmentInput{
				DoctorID: f.doctor.ID.String(),
				SlotID:   f.slot.ID.String(),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotUnavailable):
				unavailable++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(users[i])
	}
	close(start)
	wg.Wait()

	if successes != 1 {
		t.Errorf("expected exactly one successful booking, got %d", successes)
	}
	if unavailable != n-1 {
		t.Errorf("expected %d ErrSlotUnavailable, got %d", n-1, unavailable)
	}
	if f.store.appointmentCount() != 1 {
		t.Errorf("expected one appointment, got %d", f.store.appointmentCount())
	}
}

func TestDeleteAppointment_ReleasesSlot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, f.user1, f.slot)

	if err := f.svc.DeleteAppointment(ctx, f.user1, a.ID.String()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.GetAppointment(ctx, f.user1, a.ID.String()); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("expected ErrAppointmentNotFound after delete, got %v", err)
	}
	if f.store.slot(f.slot.ID).Booked {
		t.Error("expected slot to be released")
	}

	// The released slot can be booked again.
	f.book(t, f.user2, f.slot)
}

func TestDeleteAppointment_OwnerOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, f.user1, f.slot)

	for _, who := range []auth.Identity{f.user2, f.admin} {
		if err := f.svc.DeleteAppointment(ctx, who, a.ID.String()); !errors.Is(err, ErrAppointmentNotFound) {
			t.Errorf("%s: expected ErrAppointmentNotFound, got %v", who.Role, err)
		}
	}
	if !f.store.slot(f.slot.ID).Booked {
		t.Error("slot must stay booked when delete is rejected")
	}
	if err := f.svc.DeleteAppointment(ctx, f.user1, "not-a-uuid"); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("expected ErrAppointmentNotFound for malformed id, got %v", err)
	}
}

func TestGetAppointment_Access(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, f.user1, f.slot)

	if _, err := f.svc.GetAppointment(ctx, f.user1, a.ID.String()); err != nil {
		t.Errorf("owner: unexpected error %v", err)
	}
	if _, err := f.svc.GetAppointment(ctx, f.admin, a.ID.String()); err != nil {
		t.Errorf("admin: unexpected error %v", err)
	}
	if _, err := f.svc.GetAppointment(ctx, f.user2, a.ID.String()); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("other user: expected ErrAccessDenied, got %v", err)
	}
	if _, err := f.svc.GetAppointment(ctx, f.user1, uuid.NewString()); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("unknown id: expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestListAppointments_Isolation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a1 := f.book(t, f.user1, f.slot)
	a2 := f.book(t, f.user2, f.store.addSlot(f.doctor.ID))

	items, total, err := f.svc.ListAppointments(ctx, f.user2, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != a2.ID {
		t.Fatalf("expected only user2's appointment, got total=%d items=%v", total, items)
	}

	items, total, err = f.svc.ListAppointments(ctx, f.admin, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected admin to see 2 appointments, got %d", total)
	}
	if items[0].ID != a2.ID || items[1].ID != a1.ID {
		t.Error("expected newest appointment first")
	}
	for _, it := range items {
		if it.Doctor == nil || it.User == nil || it.Slot == nil {
			t.Error("expected relations embedded in list entries")
		}
	}
}

func TestListAppointments_NewUserSeesNothing(t *testing.T) {
	f := newFixture()
	f.book(t, f.user1, f.slot)

	items, total, err := f.svc.ListAppointments(context.Background(), f.user2, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("expected empty list, got %d", len(items))
	}
}

func TestListAppointments_Paging(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.book(t, f.user1, f.store.addSlot(f.doctor.ID))
	}

	items, total, err := f.svc.ListAppointments(ctx, f.user1, 2, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 5 || len(items) != 1 {
		t.Errorf("expected last page of 1 out of 5, got %d of %d", len(items), total)
	}
	if _, _, err := f.svc.ListAppointments(ctx, f.user1, 0, 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero limit, got %v", err)
	}
}

func TestUpdateAppointment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, f.user1, f.slot)

	updated, err := f.svc.UpdateAppointment(ctx, f.user1, a.ID.String(), UpdateAppointmentInput{
		Description: strPtr("follow-up"),
		Status:      strPtr("SCHEDULED"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusScheduled {
		t.Errorf("expected SCHEDULED, got %s", updated.Status)
	}
	if updated.Description == nil || *updated.Description != "follow-up" {
		t.Errorf("expected description to change, got %v", updated.Description)
	}
	if updated.SlotID != a.SlotID || updated.DoctorID != a.DoctorID {
		t.Error("doctor and slot must not change on update")
	}

	// Admin may cancel; the slot stays booked.
	updated, err = f.svc.UpdateAppointment(ctx, f.admin, a.ID.String(), UpdateAppointmentInput{Status: strPtr("CANCELLED")})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Status != StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", updated.Status)
	}
	if !f.store.slot(f.slot.ID).Booked {
		t.Error("cancelling must not release the slot")
	}
}

func TestUpdateAppointment_Rejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, f.user1, f.slot)

	tests := []struct {
		name    string
		who     auth.Identity
		id      string
		in      UpdateAppointmentInput
		wantErr error
	}{
		{"other user", f.user2, a.ID.String(), UpdateAppointmentInput{Status: strPtr("SCHEDULED")}, ErrAppointmentNotFound},
		{"unknown id", f.user1, uuid.NewString(), UpdateAppointmentInput{}, ErrAppointmentNotFound},
		{"malformed id", f.user1, "123", UpdateAppointmentInput{}, ErrAppointmentNotFound},
		{"bad status", f.user1, a.ID.String(), UpdateAppointmentInput{Status: strPtr("DONE")}, ErrInvalidInput},
		// The status value is checked before the appointment is looked up.
		{"other user bad status", f.user2, a.ID.String(), UpdateAppointmentInput{Status: strPtr("DONE")}, ErrInvalidInput},
		{"unknown id bad status", f.user1, uuid.NewString(), UpdateAppointmentInput{Status: strPtr("BOGUS")}, ErrInvalidInput},
		{"malformed id bad status", f.user1, "123", UpdateAppointmentInput{Status: strPtr("BOGUS")}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpdateAppointment(ctx, tt.who, tt.id, tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	got, _ := f.svc.GetAppointment(ctx, f.user1, a.ID.String())
	if got.Status != StatusPending {
		t.Errorf("rejected updates must not change status, got %s", got.Status)
	}
}

func TestUpdateAppointment_InvalidStatusSkipsStore(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, f.user1, f.slot)

	for _, status := range []string{"BOGUS", "", "scheduled"} {
		_, err := f.svc.UpdateAppointment(ctx, f.user1, a.ID.String(), UpdateAppointmentInput{Status: strPtr(status)})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("status %q: expected ErrInvalidInput, got %v", status, err)
		}
	}
	if f.store.updateCalls != 0 {
		t.Errorf("expected no store update for invalid statuses, got %d", f.store.updateCalls)
	}
	if f.metrics.get("update:invalid_input") != 3 {
		t.Errorf("expected 3 invalid_input outcomes, got %d", f.metrics.get("update:invalid_input"))
	}
}

func TestUpdateAppointment_NoReturnToPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, f.user1, f.slot)

	// PENDING -> PENDING is a no-op.
	if _, err := f.svc.UpdateAppointment(ctx, f.user1, a.ID.String(), UpdateAppointmentInput{Status: strPtr("PENDING")}); err != nil {
		t.Fatalf("pending to pending: %v", err)
	}
	if _, err := f.svc.UpdateAppointment(ctx, f.user1, a.ID.String(), UpdateAppointmentInput{Status: strPtr("SCHEDULED")}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	_, err := f.svc.UpdateAppointment(ctx, f.user1, a.ID.String(), UpdateAppointmentInput{Status: strPtr("PENDING")})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput moving back to PENDING, got %v", err)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrSlotUnavailable, "slot_unavailable"},
		{errors.Join(errors.New("ctx"), ErrDoctorNotFound), "doctor_not_found"},
		{errors.New("db down"), "error"},
	}
	for _, tt := range tests {
		if got := outcome(tt.err); got != tt.want {
			t.Errorf("outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
