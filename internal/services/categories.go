package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
)

// CategoryInput holds the mutable fields of a category.
type CategoryInput struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// CategoryRegistry maintains the ordered category list. After every
// successful call the stored orders are exactly 0..n-1.
type CategoryRegistry struct {
	store ledger.Store
	options
}

func NewCategoryRegistry(store ledger.Store, opts ...Option) *CategoryRegistry {
	return &CategoryRegistry{store: store, options: buildOptions(log.ComponentCategories, opts)}
}

// List returns the categories sorted by order.
func (r *CategoryRegistry) List(ctx context.Context) ([]core.Category, error) {
	return r.store.ListCategories(ctx)
}

func (r *CategoryRegistry) Get(ctx context.Context, id string) (core.Category, error) {
	return r.store.GetCategory(ctx, id)
}

func nameTaken(cats []core.Category, name, exceptID string) bool {
	for _, c := range cats {
		if c.ID != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// Create appends a category at the end of the order.
func (r *CategoryRegistry) Create(ctx context.Context, in CategoryInput) (core.Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return core.Category{}, core.Invalid("name", core.ErrEmptyName)
	}
	var created core.Category
	err := r.store.Atomically(ctx, func(s ledger.Store) error {
		cats, err := s.ListCategories(ctx)
		if err != nil {
			return err
		}
		c, err := core.NewCategory(r.newID(), in.Name, in.Icon, in.Color, len(cats))
		if err != nil {
			return err
		}
		if nameTaken(cats, c.Name, "") {
			return core.Invalid("name", core.ErrDuplicateName)
		}
		if err := s.AddCategory(ctx, c); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	r.logger.InfoContext(ctx, "Category created", log.FieldCategoryID, created.ID, log.FieldCategory, created.Name)
	return created, nil
}

// Update replaces name, icon and color, keeping id and order. Renaming a
// category that transactions or recurring rules still reference is refused,
// since those references are by name.
func (r *CategoryRegistry) Update(ctx context.Context, id string, in CategoryInput) (core.Category, error) {
	var updated core.Category
	err := r.store.Atomically(ctx, func(s ledger.Store) error {
		cur, err := s.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		c, err := core.NewCategory(cur.ID, in.Name, in.Icon, in.Color, cur.Order)
		if err != nil {
			return err
		}
		if c.Name != cur.Name {
			cats, err := s.ListCategories(ctx)
			if err != nil {
				return err
			}
			if nameTaken(cats, c.Name, c.ID) {
				return core.Invalid("name", core.ErrDuplicateName)
			}
			inUse, err := referenced(ctx, s, cur.Name)
			if err != nil {
				return err
			}
			if inUse {
				return core.Invalid("name", core.ErrCategoryInUse)
			}
		}
		if err := s.PutCategory(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	r.logger.InfoContext(ctx, "Category updated", log.FieldCategoryID, id, log.FieldCategory, updated.Name)
	return updated, nil
}

func referenced(ctx context.Context, s ledger.Store, name string) (bool, error) {
	txs, err := s.ListTransactions(ctx)
	if err != nil {
		return false, err
	}
	for _, tx := range txs {
		if tx.Category == name {
			return true, nil
		}
	}
	rules, err := s.ListRecurring(ctx)
	if err != nil {
		return false, err
	}
	for _, rt := range rules {
		if rt.Category == name {
			return true, nil
		}
	}
	return false, nil
}

// Delete removes a category together with every transaction tagged with its
// name, then closes the gap in the order. Either all of it happens or none.
// Recurring rules naming the category are left alone.
func (r *CategoryRegistry) Delete(ctx context.Context, id string) error {
	var (
		name    string
		removed int
	)
	err := r.store.Atomically(ctx, func(s ledger.Store) error {
		c, err := s.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		name = c.Name
		if removed, err = s.DeleteTransactionsByCategory(ctx, c.Name); err != nil {
			return err
		}
		if err := s.DeleteCategory(ctx, id); err != nil {
			return err
		}
		rest, err := s.ListCategories(ctx)
		if err != nil {
			return err
		}
		return renumber(ctx, s, rest)
	})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	r.logger.InfoContext(ctx, "Category deleted",
		log.FieldCategoryID, id, log.FieldCategory, name, log.FieldCount, removed)
	r.publish(ctx, amqp.NewCategoryDeleted(id, name, removed))
	return nil
}

// Reorder sets each category's order to its position in ids, which must
// list every current category exactly once.
func (r *CategoryRegistry) Reorder(ctx context.Context, ids []string) ([]core.Category, error) {
	var out []core.Category
	err := r.store.Atomically(ctx, func(s ledger.Store) error {
		cats, err := s.ListCategories(ctx)
		if err != nil {
			return err
		}
		byID := make(map[string]core.Category, len(cats))
		for _, c := range cats {
			byID[c.ID] = c
		}
		if len(ids) != len(cats) {
			return core.Invalid("order", core.ErrNotPermutation)
		}
		seq := make([]core.Category, 0, len(ids))
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			c, ok := byID[id]
			if !ok || seen[id] {
				return core.Invalid("order", core.ErrNotPermutation)
			}
			seen[id] = true
			seq = append(seq, c)
		}
		if err := renumber(ctx, s, seq); err != nil {
			return err
		}
		out, err = s.ListCategories(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reorder categories: %w", err)
	}
	r.logger.InfoContext(ctx, "Categories reordered", log.FieldCount, len(out))
	return out, nil
}

// renumber stores position i as the order of seq[i], skipping rows that
// already match.
func renumber(ctx context.Context, s ledger.Store, seq []core.Category) error {
	for i, c := range seq {
		if c.Order == i {
			continue
		}
		c.Order = i
		if err := s.PutCategory(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// Suggest returns up to limit category names closest to name by edit
// distance, ignoring case. Exact matches come first.
func (r *CategoryRegistry) Suggest(ctx context.Context, name string, limit int) ([]string, error) {
	cats, err := r.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	target := strings.ToLower(strings.TrimSpace(name))
	type scored struct {
		name string
		dist int
	}
	all := make([]scored, 0, len(cats))
	for _, c := range cats {
		all = append(all, scored{c.Name, levenshtein.ComputeDistance(target, strings.ToLower(c.Name))})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].dist < all[j].dist })
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]string, 0, limit)
	for _, s := range all[:limit] {
		out = append(out, s.name)
	}
	return out, nil
}

// Seed installs DefaultCategories when the registry is empty and reports
// whether it did.
func (r *CategoryRegistry) Seed(ctx context.Context) (bool, error) {
	seeded := false
	err := r.store.Atomically(ctx, func(s ledger.Store) error {
		n, err := s.CountCategories(ctx)
		if err != nil || n > 0 {
			return err
		}
		for i, d := range core.DefaultCategories {
			c, err := core.NewCategory(r.newID(), d.Name, d.Icon, d.Color, i)
			if err != nil {
				return err
			}
			if err := s.AddCategory(ctx, c); err != nil {
				return err
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("seed categories: %w", err)
	}
	if seeded {
		r.logger.InfoContext(ctx, "Default categories installed", log.FieldCount, len(core.DefaultCategories))
	}
	return seeded, nil
}
