package services

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/ledger/memory"
)

func TestCategoryRegistry_CreateAppends(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	reg := NewCategoryRegistry(store)

	for i, name := range []string{"A", "B", "C"} {
		c := mustCategory(t, reg, name)
		if c.Order != i {
			t.Fatalf("%s order = %d, want %d", name, c.Order, i)
		}
	}
	if _, err := reg.Create(ctx, CategoryInput{Name: "   "}); !errors.Is(err, core.ErrEmptyName) || !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected empty-name validation error, got %v", err)
	}
	if _, err := reg.Create(ctx, CategoryInput{Name: " a "}); !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("expected duplicate-name error, got %v", err)
	}
	if n, _ := store.CountCategories(ctx); n != 3 {
		t.Fatalf("count = %d", n)
	}
}

func TestCategoryRegistry_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &recordingPublisher{}
	reg := NewCategoryRegistry(store, WithEvents(pub))
	txs := NewTransactionService(store)

	var groceries core.Category
	for _, name := range []string{"Housing", "Utilities", "Groceries", "Transport", "Savings"} {
		c := mustCategory(t, reg, name)
		if name == "Groceries" {
			groceries = c
		}
	}
	if groceries.Order != 2 {
		t.Fatalf("groceries order = %d", groceries.Order)
	}
	for _, cat := range []string{"Groceries", "Housing", "Groceries", "Groceries", "Savings"} {
		if _, err := txs.Create(ctx, TransactionInput{Description: "x", Amount: "10", Category: cat, Type: "expense"}); err != nil {
			t.Fatal(err)
		}
	}

	if err := reg.Delete(ctx, groceries.ID); err != nil {
		t.Fatal(err)
	}

	got := orders(t, store)
	if len(got) != 4 {
		t.Fatalf("categories = %v", got)
	}
	if _, ok := got["Groceries"]; ok {
		t.Fatal("Groceries still listed")
	}
	want := map[string]int{"Housing": 0, "Utilities": 1, "Transport": 2, "Savings": 3}
	for name, o := range want {
		if got[name] != o {
			t.Fatalf("%s order = %d, want %d", name, got[name], o)
		}
	}
	remaining, _ := store.ListTransactions(ctx)
	if len(remaining) != 2 {
		t.Fatalf("expected 2 transactions left, got %d", len(remaining))
	}
	for _, tx := range remaining {
		if tx.Category == "Groceries" {
			t.Fatal("Groceries transaction survived cascade")
		}
	}
	if len(pub.events) != 1 || pub.events[0].Kind != amqp.CategoryDeleted || pub.events[0].Removed != 3 {
		t.Fatalf("events = %+v", pub.events)
	}

	if err := reg.Delete(ctx, groceries.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestCategoryRegistry_DeleteIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	base := memory.New()
	reg := NewCategoryRegistry(base)
	mustCategory(t, reg, "A")
	b := mustCategory(t, reg, "B")
	mustCategory(t, reg, "C")
	_ = base.AddTransaction(ctx, core.Transaction{ID: "t1", Entry: core.Entry{Description: "x", Amount: core.Money{Cents: -1}, Category: "B", Type: core.Expense, Currency: "USD"}, Date: core.NewDate(2024, 1, 1)})

	// fails on renumbering C after the cascade already ran
	broken := &putFailingStore{failingStore: failingStore{Store: base, failOn: func(core.Transaction) bool { return false }}}
	err := NewCategoryRegistry(broken).Delete(ctx, b.ID)
	if !errors.Is(err, core.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if n, _ := base.CountCategories(ctx); n != 3 {
		t.Fatalf("category removed despite failure: %d left", n)
	}
	if txs, _ := base.ListTransactions(ctx); len(txs) != 1 {
		t.Fatalf("cascade applied despite failure: %d left", len(txs))
	}
}

func TestCategoryRegistry_Reorder(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	reg := NewCategoryRegistry(store)
	a := mustCategory(t, reg, "A")
	b := mustCategory(t, reg, "B")
	c := mustCategory(t, reg, "C")

	out, err := reg.Reorder(ctx, []string{c.ID, a.ID, b.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 || out[0].Name != "C" || out[1].Name != "A" || out[2].Name != "B" {
		t.Fatalf("reordered = %+v", out)
	}
	got := orders(t, store)
	if got["C"] != 0 || got["A"] != 1 || got["B"] != 2 {
		t.Fatalf("orders = %v", got)
	}

	bad := map[string][]string{
		"partial":   {c.ID, a.ID},
		"duplicate": {c.ID, a.ID, a.ID},
		"unknown":   {c.ID, a.ID, "zzz"},
		"too long":  {c.ID, a.ID, b.ID, b.ID},
		"empty":     nil,
	}
	for name, ids := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Reorder(ctx, ids)
			if !errors.Is(err, core.ErrNotPermutation) || !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected permutation validation error, got %v", err)
			}
			got := orders(t, store)
			if got["C"] != 0 || got["A"] != 1 || got["B"] != 2 {
				t.Fatalf("failed reorder changed orders: %v", got)
			}
		})
	}
}

func TestCategoryRegistry_Update(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	reg := NewCategoryRegistry(store)
	mustCategory(t, reg, "A")
	b := mustCategory(t, reg, "B")

	u, err := reg.Update(ctx, b.ID, CategoryInput{Name: "Bills", Icon: "FaBolt", Color: "#123456"})
	if err != nil {
		t.Fatal(err)
	}
	if u.ID != b.ID || u.Order != 1 || u.Name != "Bills" || u.Icon != "FaBolt" || u.Color != "#123456" {
		t.Fatalf("updated = %+v", u)
	}

	if _, err := reg.Update(ctx, "missing", CategoryInput{Name: "x"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := reg.Update(ctx, b.ID, CategoryInput{Name: ""}); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if _, err := reg.Update(ctx, b.ID, CategoryInput{Name: "a"}); !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestCategoryRegistry_RenameInUseRefused(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	reg := NewCategoryRegistry(store)
	food := mustCategory(t, reg, "Food")
	if _, err := NewTransactionService(store).Create(ctx, TransactionInput{Description: "x", Amount: "1", Category: "Food", Type: "expense"}); err != nil {
		t.Fatal(err)
	}

	if _, err := reg.Update(ctx, food.ID, CategoryInput{Name: "Meals"}); !errors.Is(err, core.ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}
	// same name, new color is fine
	if _, err := reg.Update(ctx, food.ID, CategoryInput{Name: "Food", Color: "#000000"}); err != nil {
		t.Fatal(err)
	}
}

func TestCategoryRegistry_OrderStaysContiguous(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ids, _ := seqIDs()
	reg := NewCategoryRegistry(store, WithIDGenerator(ids))
	rng := rand.New(rand.NewSource(7))

	for step := 0; step < 300; step++ {
		cats, _ := store.ListCategories(ctx)
		switch op := rng.Intn(3); {
		case op == 0 || len(cats) == 0:
			if _, err := reg.Create(ctx, CategoryInput{Name: ids()}); err != nil {
				t.Fatal(err)
			}
		case op == 1:
			if err := reg.Delete(ctx, cats[rng.Intn(len(cats))].ID); err != nil {
				t.Fatal(err)
			}
		default:
			perm := rng.Perm(len(cats))
			seq := make([]string, len(cats))
			for i, p := range perm {
				seq[i] = cats[p].ID
			}
			if _, err := reg.Reorder(ctx, seq); err != nil {
				t.Fatal(err)
			}
		}
		orders(t, store)
	}
}

func TestCategoryRegistry_Seed(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	reg := NewCategoryRegistry(store)

	seeded, err := reg.Seed(ctx)
	if err != nil || !seeded {
		t.Fatalf("first seed = %v, %v", seeded, err)
	}
	got := orders(t, store)
	if len(got) != len(core.DefaultCategories) || got["Housing"] != 0 || got["Holidays"] != 19 {
		t.Fatalf("seeded orders = %v", got)
	}
	seeded, err = reg.Seed(ctx)
	if err != nil || seeded {
		t.Fatalf("second seed = %v, %v", seeded, err)
	}
}

func TestCategoryRegistry_Suggest(t *testing.T) {
	ctx := context.Background()
	reg := NewCategoryRegistry(memory.New())
	for _, n := range []string{"Groceries", "Gifts", "Housing"} {
		mustCategory(t, reg, n)
	}
	got, err := reg.Suggest(ctx, "grocery", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "Groceries" {
		t.Fatalf("suggestions = %v", got)
	}
}
