package sale

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validInput() NewSaleInput {
	return NewSaleInput{
		SaleNumber:   "SO-100",
		SaleDate:     time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
		CustomerID:   "C-1",
		CustomerName: "Acme Corp",
		BranchID:     "B-1",
		BranchName:   "Downtown",
		Items: []ItemSpec{
			{ProductID: "P-1", ProductName: "Widget", Quantity: 3, UnitPrice: price("10")},
			{ProductID: "P-2", ProductName: "Gadget", Quantity: 6, UnitPrice: price("15")},
		},
	}
}

func TestNewComputesTieredTotals(t *testing.T) {
	s, err := New(validInput())
	if err != nil {
		t.Fatalf("new sale failed: %v", err)
	}

	items := s.Items()
	// qty 3 -> no discount: 3*10 = 30
	if !items[0].TotalAmount().Equal(price("30")) {
		t.Fatalf("expected first item total 30, got %s", items[0].TotalAmount())
	}
	// qty 6 -> 10% off: 6*15*0.9 = 81
	if !items[1].TotalAmount().Equal(price("81")) {
		t.Fatalf("expected second item total 81, got %s", items[1].TotalAmount())
	}
	if !s.TotalAmount().Equal(price("111")) {
		t.Fatalf("expected sale total 111, got %s", s.TotalAmount())
	}
}

func TestNewVolumeDiscountScenario(t *testing.T) {
	// 3 * 10.00 = 30.00 plus 10 * 11.25 at 20% off = 90.00 -> 120.00
	in := validInput()
	in.Items = []ItemSpec{
		{ProductID: "P-1", ProductName: "Widget", Quantity: 3, UnitPrice: price("10.00")},
		{ProductID: "P-2", ProductName: "Gadget", Quantity: 10, UnitPrice: price("11.25")},
	}

	s, err := New(in)
	if err != nil {
		t.Fatalf("new sale failed: %v", err)
	}
	items := s.Items()
	if !items[0].TotalAmount().Equal(price("30.00")) {
		t.Fatalf("expected 30.00, got %s", items[0].TotalAmount())
	}
	if !items[1].TotalAmount().Equal(price("90.00")) {
		t.Fatalf("expected 90.00, got %s", items[1].TotalAmount())
	}
	if !s.TotalAmount().Equal(price("120.00")) {
		t.Fatalf("expected 120.00, got %s", s.TotalAmount())
	}
}

func TestNewRejectsQuantityAboveTwenty(t *testing.T) {
	in := validInput()
	in.Items = append(in.Items, ItemSpec{ProductID: "P-3", ProductName: "Flange", Quantity: 21, UnitPrice: price("1")})

	_, err := New(in)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(vErr.Message, "above 20 identical items") {
		t.Fatalf("unexpected message: %s", vErr.Message)
	}
}

func TestNewItemValidationIsAllOrNothing(t *testing.T) {
	in := validInput()
	in.Items = []ItemSpec{
		{ProductID: "P-1", ProductName: "Widget", Quantity: 3, UnitPrice: price("10")},
		{ProductID: "P-2", ProductName: "Gadget", Quantity: 0, UnitPrice: price("15")},
	}

	if _, err := New(in); err == nil {
		t.Fatalf("expected sale creation to fail when any item is invalid")
	}
}

func TestNewRejectsNonPositivePrice(t *testing.T) {
	for _, raw := range []string{"0", "-1.50"} {
		in := validInput()
		in.Items = []ItemSpec{
			{ProductID: "P-1", ProductName: "Widget", Quantity: 2, UnitPrice: price(raw)},
		}
		_, err := New(in)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("price %s: expected validation error, got %v", raw, err)
		}
		if vErr.Field != "unit_price" {
			t.Fatalf("price %s: expected unit_price field, got %s", raw, vErr.Field)
		}
	}
}

func TestNewRequiresHeaderFields(t *testing.T) {
	cases := []struct {
		field  string
		mutate func(*NewSaleInput)
	}{
		{"sale_number", func(in *NewSaleInput) { in.SaleNumber = " " }},
		{"customer_id", func(in *NewSaleInput) { in.CustomerID = "" }},
		{"customer_name", func(in *NewSaleInput) { in.CustomerName = "\t" }},
		{"branch_id", func(in *NewSaleInput) { in.BranchID = "" }},
		{"branch_name", func(in *NewSaleInput) { in.BranchName = "" }},
	}
	for _, tc := range cases {
		in := validInput()
		tc.mutate(&in)
		_, err := New(in)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("%s: expected validation error, got %v", tc.field, err)
		}
		if vErr.Field != tc.field {
			t.Fatalf("expected field %s, got %s", tc.field, vErr.Field)
		}
		if vErr.Constraint != ConstraintRequired {
			t.Fatalf("%s: expected required constraint, got %s", tc.field, vErr.Constraint)
		}
	}
}

func TestNewRejectsOverlongFields(t *testing.T) {
	in := validInput()
	in.SaleNumber = strings.Repeat("x", 65)

	_, err := New(in)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if vErr.Constraint != ConstraintLengthExceeded {
		t.Fatalf("expected length constraint, got %s", vErr.Constraint)
	}
}

func TestNewTrimsFieldsAndDefaultsDate(t *testing.T) {
	in := validInput()
	in.SaleNumber = "  SO-200  "
	in.CustomerName = " Acme Corp "
	in.SaleDate = time.Time{}

	before := time.Now().UTC()
	s, err := New(in)
	if err != nil {
		t.Fatalf("new sale failed: %v", err)
	}
	if s.SaleNumber() != "SO-200" {
		t.Fatalf("expected trimmed sale number, got %q", s.SaleNumber())
	}
	if s.CustomerName() != "Acme Corp" {
		t.Fatalf("expected trimmed customer name, got %q", s.CustomerName())
	}
	if s.SaleDate().Before(before) || s.SaleDate().After(time.Now().UTC()) {
		t.Fatalf("expected sale date defaulted to now, got %s", s.SaleDate())
	}
}

func TestNewAllowsEmptyItemList(t *testing.T) {
	in := validInput()
	in.Items = nil

	s, err := New(in)
	if err != nil {
		t.Fatalf("expected empty item list to be legal at the aggregate, got %v", err)
	}
	if len(s.Items()) != 0 {
		t.Fatalf("expected no items")
	}
	if !s.TotalAmount().IsZero() {
		t.Fatalf("expected zero total, got %s", s.TotalAmount())
	}
}

func TestNewRoundsUnitPriceBeforeStoring(t *testing.T) {
	in := validInput()
	in.Items = []ItemSpec{
		{ProductID: "P-1", ProductName: "Widget", Quantity: 1, UnitPrice: price("0.125")},
	}

	s, err := New(in)
	if err != nil {
		t.Fatalf("new sale failed: %v", err)
	}
	if !s.Items()[0].UnitPrice().Equal(price("0.13")) {
		t.Fatalf("expected stored price 0.13, got %s", s.Items()[0].UnitPrice())
	}
	if !s.TotalAmount().Equal(price("0.13")) {
		t.Fatalf("expected total 0.13, got %s", s.TotalAmount())
	}
}

func TestItemsPreserveInputOrder(t *testing.T) {
	in := validInput()
	in.Items = []ItemSpec{
		{ProductID: "P-3", ProductName: "Third", Quantity: 1, UnitPrice: price("1")},
		{ProductID: "P-1", ProductName: "First", Quantity: 1, UnitPrice: price("1")},
		{ProductID: "P-2", ProductName: "Second", Quantity: 1, UnitPrice: price("1")},
	}

	s, err := New(in)
	if err != nil {
		t.Fatalf("new sale failed: %v", err)
	}
	got := []string{}
	for _, item := range s.Items() {
		got = append(got, item.ProductID())
	}
	want := []string{"P-3", "P-1", "P-2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestUpdateReplacesItemsWithFreshIdentities(t *testing.T) {
	s, err := New(validInput())
	if err != nil {
		t.Fatalf("new sale failed: %v", err)
	}

	oldIDs := map[uuid.UUID]bool{}
	for _, item := range s.Items() {
		oldIDs[item.ID()] = true
	}

	err = s.Update(UpdateInput{
		Items: []ItemSpec{
			{ProductID: "P-1", ProductName: "Widget", Quantity: 3, UnitPrice: price("10")},
		},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	items := s.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	// Same product spec, but identity is always fresh.
	if oldIDs[items[0].ID()] {
		t.Fatalf("expected a fresh item id after replacement")
	}
	if !s.TotalAmount().Equal(price("30")) {
		t.Fatalf("expected total 30, got %s", s.TotalAmount())
	}
}

func TestUpdateKeepsScalarsWhenBlank(t *testing.T) {
	s, err := New(validInput())
	if err != nil {
		t.Fatalf("new sale failed: %v", err)
	}

	err = s.Update(UpdateInput{
		CustomerName: "Acme International",
		Items: []ItemSpec{
			{ProductID: "P-1", ProductName: "Widget", Quantity: 1, UnitPrice: price("5")},
		},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if s.CustomerName() != "Acme International" {
		t.Fatalf("expected updated customer name, got %s", s.CustomerName())
	}
	if s.SaleNumber() != "SO-100" {
		t.Fatalf("expected sale number kept, got %s", s.SaleNumber())
	}
	if s.BranchName() != "Downtown" {
		t.Fatalf("expected branch name kept, got %s", s.BranchName())
	}
}

func TestUpdateIsAllOrNothing(t *testing.T) {
	s, err := New(validInput())
	if err != nil {
		t.Fatalf("new sale failed: %v", err)
	}
	snapBefore := s.Snapshot()

	err = s.Update(UpdateInput{
		SaleNumber: "SO-999",
		Items: []ItemSpec{
			{ProductID: "P-1", ProductName: "Widget", Quantity: 2, UnitPrice: price("10")},
			{ProductID: "P-2", ProductName: "Gadget", Quantity: 30, UnitPrice: price("10")},
		},
	})
	if err == nil {
		t.Fatalf("expected update to fail")
	}

	snapAfter := s.Snapshot()
	if snapAfter.SaleNumber != snapBefore.SaleNumber {
		t.Fatalf("sale number changed despite failed update")
	}
	if len(snapAfter.Items) != len(snapBefore.Items) {
		t.Fatalf("items changed despite failed update")
	}
	for i := range snapBefore.Items {
		if snapAfter.Items[i].ID != snapBefore.Items[i].ID {
			t.Fatalf("item identity changed despite failed update")
		}
	}
	if !snapAfter.TotalAmount.Equal(snapBefore.TotalAmount) {
		t.Fatalf("total changed despite failed update")
	}
}

func TestCancelItemRepricesSale(t *testing.T) {
	s, err := New(validInput())
	if err != nil {
		t.Fatalf("new sale failed: %v", err)
	}
	target := s.Items()[1].ID()

	if err := s.CancelItem(target); err != nil {
		t.Fatalf("cancel item failed: %v", err)
	}

	items := s.Items()
	if !items[1].Cancelled() {
		t.Fatalf("expected item cancelled")
	}
	if !items[1].TotalAmount().IsZero() {
		t.Fatalf("expected cancelled item total zero, got %s", items[1].TotalAmount())
	}
	if !s.TotalAmount().Equal(price("30")) {
		t.Fatalf("expected sale total 30, got %s", s.TotalAmount())
	}
	if s.Cancelled() {
		t.Fatalf("item cancel must not cancel the sale")
	}
}

func TestCancelItemIsIdempotent(t *testing.T) {
	s, err := New(validInput())
	if err != nil {
		t.Fatalf("new sale failed: %v", err)
	}
	target := s.Items()[0].ID()

	if err := s.CancelItem(target); err != nil {
		t.Fatalf("cancel item failed: %v", err)
	}
	snapOnce := s.Snapshot()

	if err := s.CancelItem(target); err != nil {
		t.Fatalf("second cancel failed: %v", err)
	}
	snapTwice := s.Snapshot()

	if !snapTwice.UpdatedAt.Equal(snapOnce.UpdatedAt) {
		t.Fatalf("second cancel must not touch the aggregate")
	}
	if !snapTwice.TotalAmount.Equal(snapOnce.TotalAmount) {
		t.Fatalf("total changed on repeated cancel")
	}
}

func TestCancelItemUnknownID(t *testing.T) {
	s, err := New(validInput())
	if err != nil {
		t.Fatalf("new sale failed: %v", err)
	}

	err = s.CancelItem(uuid.New())
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nfErr.Message != "Item not found" {
		t.Fatalf("unexpected message: %s", nfErr.Message)
	}
}

func TestCancelCascadesToAllItems(t *testing.T) {
	s, err := New(validInput())
	if err != nil {
		t.Fatalf("new sale failed: %v", err)
	}

	s.Cancel()

	if !s.Cancelled() {
		t.Fatalf("expected sale cancelled")
	}
	for _, item := range s.Items() {
		if !item.Cancelled() {
			t.Fatalf("expected every item cancelled")
		}
		if !item.TotalAmount().IsZero() {
			t.Fatalf("expected cancelled item total zero")
		}
	}
	if !s.TotalAmount().IsZero() {
		t.Fatalf("expected zero total after cancel, got %s", s.TotalAmount())
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	s, err := New(validInput())
	if err != nil {
		t.Fatalf("new sale failed: %v", err)
	}

	s.Cancel()
	snapOnce := s.Snapshot()

	s.Cancel()
	snapTwice := s.Snapshot()

	if !snapTwice.UpdatedAt.Equal(snapOnce.UpdatedAt) {
		t.Fatalf("second cancel must not touch the aggregate")
	}
}

func TestUpdateAfterCancelKeepsCancellation(t *testing.T) {
	s, err := New(validInput())
	if err != nil {
		t.Fatalf("new sale failed: %v", err)
	}
	s.Cancel()

	err = s.Update(UpdateInput{
		Items: []ItemSpec{
			{ProductID: "P-9", ProductName: "Flange", Quantity: 2, UnitPrice: price("7")},
		},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if !s.Cancelled() {
		t.Fatalf("cancel is one-way")
	}
	for _, item := range s.Items() {
		if !item.Cancelled() {
			t.Fatalf("items added to a cancelled sale must be cancelled")
		}
	}
	if !s.TotalAmount().IsZero() {
		t.Fatalf("expected zero total on cancelled sale, got %s", s.TotalAmount())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s, err := New(validInput())
	if err != nil {
		t.Fatalf("new sale failed: %v", err)
	}

	restored := FromSnapshot(s.Snapshot())

	if restored.ID() != s.ID() {
		t.Fatalf("identity lost in round trip")
	}
	if !restored.TotalAmount().Equal(s.TotalAmount()) {
		t.Fatalf("total lost in round trip")
	}
	if len(restored.Items()) != len(s.Items()) {
		t.Fatalf("items lost in round trip")
	}
	for i, item := range restored.Items() {
		if item.ID() != s.Items()[i].ID() {
			t.Fatalf("item identity lost in round trip")
		}
	}
}

func TestItemsReturnsACopy(t *testing.T) {
	s, err := New(validInput())
	if err != nil {
		t.Fatalf("new sale failed: %v", err)
	}

	items := s.Items()
	items[0] = Item{}

	if s.Items()[0].ProductID() != "P-1" {
		t.Fatalf("mutating the returned slice must not affect the aggregate")
	}
}
