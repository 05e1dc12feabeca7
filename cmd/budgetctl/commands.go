package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"budget/internal/core"
	"budget/internal/services"
)

var commands = []subcommands.Command{
	&listCmd{},
	&addCmd{},
	&categoriesCmd{},
	&summaryCmd{},
	&runCmd{},
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	return subcommands.ExitFailure
}

type listCmd struct {
	from, to, typ, category, query string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list transactions, optionally filtered" }
func (*listCmd) Usage() string {
	return `budgetctl list [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-type income|expense] [-category <name>] [-q <text>]
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "first date to include")
	f.StringVar(&c.to, "to", "", "last date to include")
	f.StringVar(&c.typ, "type", "", "income or expense")
	f.StringVar(&c.category, "category", "", "category name")
	f.StringVar(&c.query, "q", "", "text to search in descriptions")
}

func (c *listCmd) filter() (core.Filter, error) {
	var f core.Filter
	var err error
	if c.from != "" {
		if f.From, err = core.ParseDate(c.from); err != nil {
			return f, fmt.Errorf("-from: %w", err)
		}
	}
	if c.to != "" {
		if f.To, err = core.ParseDate(c.to); err != nil {
			return f, fmt.Errorf("-to: %w", err)
		}
	}
	if c.typ != "" {
		if f.Type, err = core.ParseTxType(c.typ); err != nil {
			return f, err
		}
	}
	f.Category, f.Query = c.category, c.query
	return f, nil
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	f, err := c.filter()
	if err != nil {
		return fail(err)
	}
	env, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer env.Close()

	txs, err := env.Transactions.List(ctx, f)
	if err != nil {
		return fail(err)
	}
	fmt.Println(renderTransactions(txs))
	return subcommands.ExitSuccess
}

type addCmd struct {
	in services.TransactionInput
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a transaction" }
func (*addCmd) Usage() string {
	return `budgetctl add -desc <text> -amount <n> -category <name> [-type expense|income] [-date YYYY-MM-DD] [-currency XXX]
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.in.Description, "desc", "", "description")
	f.StringVar(&c.in.Amount, "amount", "", "amount, without sign")
	f.StringVar(&c.in.Category, "category", "", "category name")
	f.StringVar(&c.in.Type, "type", string(core.Expense), "income or expense")
	f.StringVar(&c.in.Date, "date", "", "date, defaults to today")
	f.StringVar(&c.in.Currency, "currency", "", "ISO currency code")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	env, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer env.Close()

	if c.in.Currency == "" {
		c.in.Currency = env.Config.BaseCurrency
	}
	tx, err := env.Transactions.Create(ctx, c.in)
	if err != nil {
		return fail(err)
	}
	fmt.Println(renderTransactions([]core.Transaction{tx}))
	return subcommands.ExitSuccess
}

type categoriesCmd struct {
	suggest string
}

func (*categoriesCmd) Name() string     { return "categories" }
func (*categoriesCmd) Synopsis() string { return "list categories in display order" }
func (*categoriesCmd) Usage() string {
	return `budgetctl categories [-suggest <name>]
`
}

func (c *categoriesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.suggest, "suggest", "", "print the category names closest to this one instead")
}

func (c *categoriesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	env, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer env.Close()

	if c.suggest != "" {
		names, err := env.Categories.Suggest(ctx, c.suggest, 3)
		if err != nil {
			return fail(err)
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return subcommands.ExitSuccess
	}
	cats, err := env.Categories.List(ctx)
	if err != nil {
		return fail(err)
	}
	fmt.Println(renderCategories(cats))
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	listCmd
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print income and expense totals by category" }
func (*summaryCmd) Usage() string {
	return `budgetctl summary [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-category <name>] [-q <text>]
`
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	f, err := c.filter()
	if err != nil {
		return fail(err)
	}
	env, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer env.Close()

	view, err := env.Summary.Summary(ctx, f, "")
	if err != nil {
		return fail(err)
	}
	fmt.Println(renderSummary(view.Summary, env.Config.BaseCurrency))
	return subcommands.ExitSuccess
}

type runCmd struct {
	asOf string
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "materialize recurring transactions that are due" }
func (*runCmd) Usage() string {
	return `budgetctl run [-asof YYYY-MM-DD]
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.asOf, "asof", "", "expand through this date, defaults to today")
}

func (c *runCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	asOf := core.Today()
	if c.asOf != "" {
		d, err := core.ParseDate(c.asOf)
		if err != nil {
			return fail(fmt.Errorf("-asof: %w", err))
		}
		asOf = d
	}
	env, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer env.Close()

	rep, err := env.Engine.Run(ctx, asOf)
	if err != nil {
		return fail(err)
	}
	fmt.Println(renderTransactions(rep.Created))
	if err := rep.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
