package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/suchimauz/docplanner-slots-gateway/internal/adapters/out/logger"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/domain"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/out"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/retry"
)

type fakeSlotAPI struct {
	mu            sync.Mutex
	fetchCalls    int
	takeCalls     int
	schedule      *domain.WeeklySchedule
	fetchErr      error
	outcome       domain.BookingOutcome
	takeErr       error
	lastBooking   domain.Booking
	fetchDelay    time.Duration
	requestedWeek time.Time
	// failFirst первых вызовов завершаются ошибкой транспорта
	failFirst int
	// started закрывается при первом вызове, release отпускает ожидающий вызов
	started chan struct{}
	release chan struct{}
}

func (f *fakeSlotAPI) GetWeeklySchedule(ctx context.Context, monday time.Time) (*domain.WeeklySchedule, error) {
	f.mu.Lock()
	f.fetchCalls++
	call := f.fetchCalls
	f.requestedWeek = monday
	delay := f.fetchDelay
	if call == 1 && f.started != nil {
		close(f.started)
	}
	f.mu.Unlock()

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, &domain.UpstreamTransportError{Operation: "GetWeeklyAvailability", Err: ctx.Err()}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.UpstreamTransportError{Operation: "GetWeeklyAvailability", Err: err}
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if call <= f.failFirst {
		return nil, &domain.UpstreamTransportError{Operation: "GetWeeklyAvailability", StatusCode: 503, Body: "down"}
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.schedule, nil
}

func (f *fakeSlotAPI) TakeSlot(ctx context.Context, booking domain.Booking) (domain.BookingOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.takeCalls++
	f.lastBooking = booking
	if f.takeErr != nil {
		return domain.BookingOutcome{}, f.takeErr
	}
	return f.outcome, nil
}

func (f *fakeSlotAPI) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls, f.takeCalls
}

type fakeCache struct {
	mu          sync.Mutex
	entries     map[string]domain.WeeklyAvailability
	ttls        map[string]time.Duration
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: map[string]domain.WeeklyAvailability{},
		ttls:    map[string]time.Duration{},
	}
}

func (c *fakeCache) GetWeeklyAvailability(ctx context.Context, key string) (domain.WeeklyAvailability, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *fakeCache) StoreWeeklyAvailability(ctx context.Context, key string, availability domain.WeeklyAvailability, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = availability
	c.ttls[key] = ttl
}

func (c *fakeCache) InvalidateWeeklyAvailability(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.invalidated = append(c.invalidated, key)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []out.AvailabilityInvalidatedEvent
	err    error
}

func (p *fakePublisher) PublishAvailabilityInvalidated(ctx context.Context, event out.AvailabilityInvalidatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func testSchedule() *domain.WeeklySchedule {
	schedule := &domain.WeeklySchedule{
		Facility:            domain.Facility{FacilityID: "facility-1", Name: "Clinic"},
		SlotDurationMinutes: 60,
	}
	schedule.Days[0] = domain.DaySchedule{
		WorkPeriod: &domain.WorkPeriod{StartHour: 8, LunchStartHour: 12, LunchEndHour: 13, EndHour: 17},
	}
	return schedule
}

func newTestService(api *fakeSlotAPI, cache *fakeCache, retryCount int) *SlotService {
	executor := retry.NewExecutor(retryCount, 0, logger.NewNopLogger())
	return NewSlotService(api, cache, executor, 5*time.Minute, logger.NewNopLogger())
}

func validBooking() *domain.BookingRequest {
	return &domain.BookingRequest{
		FacilityID: "facility-1",
		Start:      "2025-04-23 10:00:00",
		End:        "2025-04-23 11:00:00",
		Comments:   "first visit",
		Patient: &domain.Patient{
			Name:       "Mario",
			SecondName: "Neta",
			Email:      "mario@example.com",
			Phone:      "555 44 33 22",
		},
	}
}

func TestGetWeeklyAvailabilityComputesAndCaches(t *testing.T) {
	api := &fakeSlotAPI{schedule: testSchedule()}
	cache := newFakeCache()
	service := newTestService(api, cache, 3)

	result := service.GetWeeklyAvailability(context.Background(), "20250421")
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Data.FacilityID != "facility-1" || len(result.Data.Slots) != 8 {
		t.Fatalf("unexpected availability %+v", result.Data)
	}
	if !api.requestedWeek.Equal(time.Date(2025, 4, 21, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected requested week %s", api.requestedWeek)
	}
	if ttl := cache.ttls["weekly_availability_20250421"]; ttl != 5*time.Minute {
		t.Fatalf("expected 5m ttl, got %s", ttl)
	}

	if result.Message != "Retrieved 8 slots for week starting 20250421" {
		t.Fatalf("unexpected message %q", result.Message)
	}

	second := service.GetWeeklyAvailability(context.Background(), "20250421")
	if fetches, _ := api.calls(); fetches != 1 {
		t.Fatalf("expected cached second read, got %d fetches", fetches)
	}
	if second.Message != result.Message {
		t.Fatalf("cached read message %q differs from %q", second.Message, result.Message)
	}
	if !reflect.DeepEqual(result.Data, second.Data) {
		t.Fatal("cached read must return identical availability")
	}
}

func TestGetWeeklyAvailabilityRejectsInvalidMonday(t *testing.T) {
	cases := map[string]string{
		"":           "required",
		"   ":        "required",
		"2025-04-20": "must correspond to a Monday",
		"20250420":   "must correspond to a Monday",
		"2025042":    "yyyyMMdd",
		"20251340":   "yyyyMMdd",
		"abcdefgh":   "yyyyMMdd",
	}

	for input, message := range cases {
		t.Run(input, func(t *testing.T) {
			api := &fakeSlotAPI{schedule: testSchedule()}
			service := newTestService(api, newFakeCache(), 3)

			result := service.GetWeeklyAvailability(context.Background(), input)
			if result.Success || result.Kind != domain.ErrorKindInvalidInput {
				t.Fatalf("expected invalid input, got %+v", result)
			}
			if !strings.Contains(result.Message, message) {
				t.Fatalf("expected message to contain %q, got %q", message, result.Message)
			}
			if fetches, _ := api.calls(); fetches != 0 {
				t.Fatalf("expected no upstream call, got %d", fetches)
			}
		})
	}
}

func TestGetWeeklyAvailabilityRetriesTransportErrors(t *testing.T) {
	api := &fakeSlotAPI{fetchErr: &domain.UpstreamTransportError{Operation: "GetWeeklyAvailability", StatusCode: 503, Body: "down"}}
	cache := newFakeCache()
	service := newTestService(api, cache, 2)

	result := service.GetWeeklyAvailability(context.Background(), "20250421")
	if result.Success || result.Kind != domain.ErrorKindUpstreamTransport {
		t.Fatalf("expected transport failure, got %+v", result)
	}
	if fetches, _ := api.calls(); fetches != 3 {
		t.Fatalf("expected 1+2 attempts, got %d", fetches)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "503") {
		t.Fatalf("expected error detail with status code, got %v", result.Errors)
	}
	if len(cache.entries) != 0 {
		t.Fatal("failed fetch must not populate cache")
	}
}

func TestGetWeeklyAvailabilityRejectsInvalidUpstreamData(t *testing.T) {
	noFacility := testSchedule()
	noFacility.Facility.FacilityID = " "

	noDuration := testSchedule()
	noDuration.SlotDurationMinutes = 0

	badPeriod := testSchedule()
	badPeriod.Days[3] = domain.DaySchedule{WorkPeriod: &domain.WorkPeriod{StartHour: 12, LunchStartHour: 10, LunchEndHour: 13, EndHour: 17}}

	cases := map[string]*domain.WeeklySchedule{
		"missing facility": noFacility,
		"zero duration":    noDuration,
		"bad work period":  badPeriod,
		"empty response":   nil,
	}

	for name, schedule := range cases {
		t.Run(name, func(t *testing.T) {
			api := &fakeSlotAPI{schedule: schedule}
			cache := newFakeCache()
			service := newTestService(api, cache, 3)

			result := service.GetWeeklyAvailability(context.Background(), "20250421")
			if result.Success || result.Kind != domain.ErrorKindUpstreamData {
				t.Fatalf("expected upstream data failure, got %+v", result)
			}
			if fetches, _ := api.calls(); fetches != 1 {
				t.Fatalf("upstream data errors must not be retried, got %d calls", fetches)
			}
			if len(cache.entries) != 0 {
				t.Fatal("invalid data must not be cached")
			}
		})
	}
}

func TestGetWeeklyAvailabilityUnexpectedError(t *testing.T) {
	api := &fakeSlotAPI{fetchErr: errors.New("something odd")}
	service := newTestService(api, newFakeCache(), 0)

	result := service.GetWeeklyAvailability(context.Background(), "20250421")
	if result.Success || result.Kind != domain.ErrorKindUnexpected {
		t.Fatalf("expected unexpected failure, got %+v", result)
	}
}

func TestGetWeeklyAvailabilityCollapsesConcurrentMisses(t *testing.T) {
	api := &fakeSlotAPI{schedule: testSchedule(), fetchDelay: 50 * time.Millisecond}
	service := newTestService(api, newFakeCache(), 0)

	var wg sync.WaitGroup
	var failures int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if result := service.GetWeeklyAvailability(context.Background(), "20250421"); !result.Success {
				atomic.AddInt32(&failures, 1)
			}
		}()
	}
	wg.Wait()

	if failures != 0 {
		t.Fatalf("expected all reads to succeed, got %d failures", failures)
	}
	if fetches, _ := api.calls(); fetches != 1 {
		t.Fatalf("expected a single upstream fetch, got %d", fetches)
	}
}

func TestGetWeeklyAvailabilitySharedFetchOutlivesCancelledCaller(t *testing.T) {
	api := &fakeSlotAPI{
		schedule: testSchedule(),
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	service := newTestService(api, newFakeCache(), 0)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()

	first := make(chan domain.Result[domain.WeeklyAvailability], 1)
	go func() {
		first <- service.GetWeeklyAvailability(firstCtx, "20250421")
	}()
	<-api.started

	second := make(chan domain.Result[domain.WeeklyAvailability], 1)
	go func() {
		second <- service.GetWeeklyAvailability(context.Background(), "20250421")
	}()

	// Второй вызов успевает присоединиться к общему запросу
	time.Sleep(20 * time.Millisecond)
	cancelFirst()
	time.Sleep(20 * time.Millisecond)
	close(api.release)

	if result := <-second; !result.Success {
		t.Fatalf("live caller must not fail because another caller went away, got %+v", result)
	}
	if result := <-first; !result.Success {
		t.Fatalf("shared fetch must complete for the first caller too, got %+v", result)
	}
	if fetches, _ := api.calls(); fetches != 1 {
		t.Fatalf("expected a single upstream fetch, got %d", fetches)
	}
}

func TestGetWeeklyAvailabilityRetriesUntilExhaustedAfterCallerCancel(t *testing.T) {
	api := &fakeSlotAPI{schedule: testSchedule(), failFirst: 2}
	cache := newFakeCache()
	service := newTestService(api, cache, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := service.GetWeeklyAvailability(ctx, "20250421")
	if !result.Success {
		t.Fatalf("expected success on third attempt, got %+v", result)
	}
	if fetches, _ := api.calls(); fetches != 3 {
		t.Fatalf("expected 3 attempts, got %d", fetches)
	}
	if _, ok := cache.entries["weekly_availability_20250421"]; !ok {
		t.Fatal("expected fetched week to be cached")
	}
}

func TestBookSlotInvalidatesWeekOnSuccess(t *testing.T) {
	api := &fakeSlotAPI{schedule: testSchedule(), outcome: domain.BookingOutcome{Accepted: true, Message: "booked"}}
	cache := newFakeCache()
	publisher := &fakePublisher{}
	service := newTestService(api, cache, 3)
	service.SetEventPublisher(publisher, "instance-a")

	if result := service.GetWeeklyAvailability(context.Background(), "20250421"); !result.Success {
		t.Fatalf("prime cache: %+v", result)
	}

	result := service.BookSlot(context.Background(), validBooking())
	if !result.Success || !result.Data || result.Message != "booked" {
		t.Fatalf("expected successful booking, got %+v", result)
	}

	if !api.lastBooking.Start.Equal(time.Date(2025, 4, 23, 10, 0, 0, 0, time.UTC)) || api.lastBooking.Patient.Email != "mario@example.com" {
		t.Fatalf("unexpected booking passed to sink %+v", api.lastBooking)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "weekly_availability_20250421" {
		t.Fatalf("expected week invalidation, got %v", cache.invalidated)
	}
	if len(publisher.events) != 1 || publisher.events[0].Monday != "20250421" || publisher.events[0].Origin != "instance-a" {
		t.Fatalf("unexpected invalidation events %+v", publisher.events)
	}

	service.GetWeeklyAvailability(context.Background(), "20250421")
	if fetches, _ := api.calls(); fetches != 2 {
		t.Fatalf("expected re-fetch after booking, got %d fetches", fetches)
	}
}

func TestBookSlotInvalidatesWeekOnRejection(t *testing.T) {
	api := &fakeSlotAPI{outcome: domain.BookingOutcome{Accepted: false, Message: "slot already taken"}}
	cache := newFakeCache()
	service := newTestService(api, cache, 3)

	request := validBooking()
	request.Start = "2025-04-27 10:00:00"
	request.End = "2025-04-27 11:00:00"

	result := service.BookSlot(context.Background(), request)
	if result.Success || result.Data || result.Kind != domain.ErrorKindRejected {
		t.Fatalf("expected rejection, got %+v", result)
	}
	if result.Message != "slot already taken" {
		t.Fatalf("expected sink message, got %q", result.Message)
	}
	if _, takes := api.calls(); takes != 1 {
		t.Fatalf("business rejection must not be retried, got %d calls", takes)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "weekly_availability_20250421" {
		t.Fatalf("expected sunday booking to invalidate its monday, got %v", cache.invalidated)
	}
}

func TestBookSlotTransportFailure(t *testing.T) {
	api := &fakeSlotAPI{takeErr: &domain.UpstreamTransportError{Operation: "TakeSlot", StatusCode: 502, Body: "bad gateway"}}
	cache := newFakeCache()
	publisher := &fakePublisher{}
	service := newTestService(api, cache, 2)
	service.SetEventPublisher(publisher, "instance-a")

	result := service.BookSlot(context.Background(), validBooking())
	if result.Success || result.Kind != domain.ErrorKindUpstreamTransport {
		t.Fatalf("expected transport failure, got %+v", result)
	}
	if _, takes := api.calls(); takes != 3 {
		t.Fatalf("expected 1+2 attempts, got %d", takes)
	}
	if len(cache.invalidated) != 0 || len(publisher.events) != 0 {
		t.Fatal("failed booking call must not invalidate")
	}
}

func TestBookSlotValidation(t *testing.T) {
	notADate := validBooking()
	notADate.Start = "not-a-date"

	bothBad := validBooking()
	bothBad.Start = "2025/04/23 10:00"
	bothBad.End = "2025-04-23T11:00:00"

	reversed := validBooking()
	reversed.End = "2025-04-23 09:00:00"

	noPatient := validBooking()
	noPatient.Patient = nil

	cases := []struct {
		name    string
		request *domain.BookingRequest
		message string
	}{
		{"nil request", nil, "Booking request is required"},
		{"bad start", notADate, "field(s): start"},
		{"bad start and end", bothBad, "field(s): start, end"},
		{"end before start", reversed, "end must be after"},
		{"missing patient", noPatient, "Patient information is required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeSlotAPI{outcome: domain.BookingOutcome{Accepted: true}}
			cache := newFakeCache()
			service := newTestService(api, cache, 3)

			result := service.BookSlot(context.Background(), tc.request)
			if result.Success || result.Kind != domain.ErrorKindInvalidInput {
				t.Fatalf("expected invalid input, got %+v", result)
			}
			if !strings.Contains(result.Message, tc.message) {
				t.Fatalf("expected message to contain %q, got %q", tc.message, result.Message)
			}
			if _, takes := api.calls(); takes != 0 {
				t.Fatalf("expected no upstream call, got %d", takes)
			}
			if len(cache.invalidated) != 0 {
				t.Fatal("invalid request must not invalidate cache")
			}
		})
	}
}

func TestBookSlotPublishFailureDoesNotFailBooking(t *testing.T) {
	api := &fakeSlotAPI{outcome: domain.BookingOutcome{Accepted: true, Message: "ok"}}
	service := newTestService(api, newFakeCache(), 0)
	service.SetEventPublisher(&fakePublisher{err: errors.New("channel closed")}, "instance-a")

	if result := service.BookSlot(context.Background(), validBooking()); !result.Success {
		t.Fatalf("expected success despite publish failure, got %+v", result)
	}
}

func TestInvalidateWeek(t *testing.T) {
	cache := newFakeCache()
	cache.entries["weekly_availability_20250421"] = domain.WeeklyAvailability{FacilityID: "facility-1"}
	service := newTestService(&fakeSlotAPI{}, cache, 0)

	if err := service.InvalidateWeek(context.Background(), "20250421"); err != nil {
		t.Fatalf("invalidate week: %v", err)
	}
	if _, ok := cache.entries["weekly_availability_20250421"]; ok {
		t.Fatal("expected entry to be removed")
	}

	if err := service.InvalidateWeek(context.Background(), "20250422"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for non-monday, got %v", err)
	}
}
