package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturio/facturio/internal/domain/entity"
)

func testClient(id, userID int64) *entity.Client {
	return &entity.Client{
		ID:          id,
		UserID:      userID,
		Name:        "Acme SARL",
		PaymentTerm: "DAYS_30",
		Contacts:    []entity.Contact{{Email: "billing@acme.example", IsDefault: true}},
	}
}

func testTemplate(userID, clientID int64) *entity.RecurringTemplate {
	return &entity.RecurringTemplate{
		UserID:   userID,
		ClientID: clientID,
		LineItems: []entity.LineItem{
			{Kind: entity.LineItemBillable, Description: "Monthly retainer", Quantity: 1, UnitPrice: 200, TaxRate: 20},
		},
		Frequency:     entity.FrequencyMonthly,
		AmountExclTax: 200.00,
		AmountInclTax: 240.00,
		EmissionDay:   5,
		NextEmission:  time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC),
		Active:        true,
	}
}

type schedulerFixture struct {
	svc          SchedulerService
	templateRepo *mockTemplateRepo
	invoiceRepo  *mockInvoiceRepo
	clientRepo   *mockClientRepo
	sequenceRepo *mockSequenceRepo
	planLimits   *mockPlanLimits
	clock        *mockClock
}

func newSchedulerFixture() *schedulerFixture {
	f := &schedulerFixture{
		templateRepo: newMockTemplateRepo(),
		invoiceRepo:  newMockInvoiceRepo(),
		clientRepo:   newMockClientRepo(testClient(3, 7)),
		sequenceRepo: newMockSequenceRepo(),
		planLimits:   &mockPlanLimits{},
		clock:        &mockClock{now: serviceNow},
	}
	f.svc = NewSchedulerService(
		f.templateRepo, f.invoiceRepo, f.clientRepo, f.sequenceRepo,
		f.planLimits, &mockTxManager{}, f.clock, "FAC", nopLogger{},
	)
	return f
}

func TestSchedulerService_CreateTemplate(t *testing.T) {
	f := newSchedulerFixture()

	tpl := testTemplate(7, 3)
	tpl.Frequency = entity.FrequencyQuarterly
	tpl.NextEmission = time.Time{}

	created, err := f.svc.CreateTemplate(context.Background(), tpl)
	require.NoError(t, err)

	assert.Equal(t, []time.Month{time.January, time.April, time.July, time.October},
		created.EmissionMonths, "non-monthly frequencies get default months")
	// Reference date is 2024-02-05, so the next configured month is April.
	assert.Equal(t, time.Date(2024, time.April, 5, 0, 0, 0, 0, time.UTC), created.NextEmission)
	assert.True(t, created.Active)
}

func TestSchedulerService_CreateTemplate_PlanLimit(t *testing.T) {
	f := newSchedulerFixture()
	f.planLimits.reached = true

	_, err := f.svc.CreateTemplate(context.Background(), testTemplate(7, 3))
	assert.Error(t, err)
	assert.True(t, entity.IsValidation(err))
}

func TestSchedulerService_CreateTemplate_Validation(t *testing.T) {
	f := newSchedulerFixture()

	bad := testTemplate(7, 3)
	bad.EmissionDay = 0
	_, err := f.svc.CreateTemplate(context.Background(), bad)
	assert.True(t, entity.IsValidation(err))

	bad = testTemplate(7, 3)
	bad.Frequency = entity.Frequency("WEEKLY")
	_, err = f.svc.CreateTemplate(context.Background(), bad)
	assert.True(t, entity.IsValidation(err))
}

func TestSchedulerService_Generate(t *testing.T) {
	f := newSchedulerFixture()
	tpl := testTemplate(7, 3)
	f.templateRepo.put(tpl)

	inv, err := f.svc.Generate(context.Background(), 7, tpl.ID)
	require.NoError(t, err)

	assert.Equal(t, "FAC-2024001", inv.Number)
	assert.Equal(t, entity.StatusPending, inv.Status)
	assert.Equal(t, 240.00, inv.TotalInclTax, "template totals copied verbatim")
	assert.Equal(t, 240.00, inv.AmountRemaining)
	assert.Equal(t, "Acme SARL", inv.Client.Name)
	assert.Equal(t, time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC), inv.CreationDate)

	advanced, _ := f.templateRepo.GetByID(context.Background(), tpl.ID)
	assert.Equal(t, 1, advanced.RepetitionsDone)
	require.NotNil(t, advanced.LastEmission)
	assert.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), advanced.NextEmission)
	assert.True(t, advanced.Active)
}

func TestSchedulerService_Generate_NeverReusesNumbers(t *testing.T) {
	f := newSchedulerFixture()
	tpl := testTemplate(7, 3)
	f.templateRepo.put(tpl)

	first, err := f.svc.Generate(context.Background(), 7, tpl.ID)
	require.NoError(t, err)

	// Force the template due again and regenerate.
	again, _ := f.templateRepo.GetByID(context.Background(), tpl.ID)
	again.NextEmission = serviceNow
	f.templateRepo.put(again)

	second, err := f.svc.Generate(context.Background(), 7, tpl.ID)
	require.NoError(t, err)

	assert.NotEqual(t, first.Number, second.Number)
	assert.Equal(t, "FAC-2024002", second.Number)
}

func TestSchedulerService_Generate_ConflictLeavesNoInvoice(t *testing.T) {
	f := newSchedulerFixture()
	tpl := testTemplate(7, 3)
	f.templateRepo.put(tpl)

	// Another scan already advanced the occurrence.
	f.templateRepo.advanceFunc = func(ctx context.Context, tpl *entity.RecurringTemplate, prev time.Time) error {
		return entity.ErrConflict
	}

	_, err := f.svc.Generate(context.Background(), 7, tpl.ID)
	assert.ErrorIs(t, err, entity.ErrConflict)
}

func TestSchedulerService_Generate_RetiresAtRepetitionLimit(t *testing.T) {
	f := newSchedulerFixture()
	tpl := testTemplate(7, 3)
	tpl.RepetitionLimit = 2
	tpl.RepetitionsDone = 1
	f.templateRepo.put(tpl)

	_, err := f.svc.Generate(context.Background(), 7, tpl.ID)
	require.NoError(t, err)

	retired, _ := f.templateRepo.GetByID(context.Background(), tpl.ID)
	assert.Equal(t, 2, retired.RepetitionsDone)
	assert.False(t, retired.Active, "limit reached retires the template")

	_, err = f.svc.Generate(context.Background(), 7, tpl.ID)
	assert.Error(t, err, "retired templates generate nothing")
}

func TestSchedulerService_Generate_Inactive(t *testing.T) {
	f := newSchedulerFixture()
	tpl := testTemplate(7, 3)
	tpl.Active = false
	f.templateRepo.put(tpl)

	_, err := f.svc.Generate(context.Background(), 7, tpl.ID)
	assert.True(t, entity.IsValidation(err))
}

func TestSchedulerService_RunDueScan(t *testing.T) {
	f := newSchedulerFixture()

	due := testTemplate(7, 3)
	due.NextEmission = time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	f.templateRepo.put(due)

	dueToday := testTemplate(7, 3)
	dueToday.NextEmission = time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC)
	f.templateRepo.put(dueToday)

	notDue := testTemplate(7, 3)
	notDue.NextEmission = time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	f.templateRepo.put(notDue)

	otherUser := testTemplate(8, 3)
	otherUser.NextEmission = time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	f.templateRepo.put(otherUser)

	generated, err := f.svc.RunDueScan(context.Background(), 7)
	require.NoError(t, err)

	assert.Len(t, generated, 2, "past-due and due-today templates generate")
	numbers := map[string]bool{}
	for _, inv := range generated {
		numbers[inv.Number] = true
	}
	assert.Len(t, numbers, 2, "each generated invoice gets a distinct number")
}

// A template whose emission day is clamped by a short month must not stay
// due after generating: emission day 31 comes due on April 30, and a second
// sweep later the same day must emit nothing.
func TestSchedulerService_RunDueScan_ClampedDayRunsOnce(t *testing.T) {
	f := newSchedulerFixture()
	f.clock.now = time.Date(2024, time.April, 30, 9, 0, 0, 0, time.UTC)

	tpl := testTemplate(7, 3)
	tpl.EmissionDay = 31
	tpl.NextEmission = time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC)
	f.templateRepo.put(tpl)

	first, err := f.svc.RunDueScan(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, first, 1)

	advanced, _ := f.templateRepo.GetByID(context.Background(), tpl.ID)
	assert.Equal(t, time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC), advanced.NextEmission)
	assert.Equal(t, 1, advanced.RepetitionsDone)

	second, err := f.svc.RunDueScan(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, second, "the April occurrence was already consumed")

	invoices, _ := f.invoiceRepo.ListByUser(context.Background(), 7)
	assert.Len(t, invoices, 1)
}
