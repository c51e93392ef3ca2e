package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/jask/orcamento/internal/config"
	"github.com/jask/orcamento/internal/database"
	"github.com/jask/orcamento/internal/database/repository"
	"github.com/jask/orcamento/internal/llm"
	"github.com/jask/orcamento/internal/logger"
	"github.com/jask/orcamento/internal/ofx"
	"github.com/jask/orcamento/internal/service"
	"github.com/jask/orcamento/internal/tui"
)

const usage = `usage: orcamento <command> [flags]

commands:
  accounts add      create an account
  accounts list     list accounts
  seed              load the category catalog from a JSON file
  import            import an OFX statement into an account
  suggest           generate AI suggestions for pending transactions
  review            interactive suggestion review
  consolidate-all   consolidate every pending transaction without categorization
  report            expense summaries
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg := logger.New()
	ctx := logger.WithContext(context.Background(), lg)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// repositories
	txRepo := repository.NewTransactionRepo(db)
	acctRepo := repository.NewAccountRepo(db)
	catRepo := repository.NewCategoryRepo(db)
	expRepo := repository.NewExpenseRepo(db)
	suggRepo := repository.NewSuggestionRepo(db)

	provider := llm.NewOllamaProvider(cfg.Suggest.EndpointURL, cfg.Suggest.Model,
		time.Duration(cfg.Suggest.TimeoutSeconds)*time.Second)

	// services
	importer := &service.ImporterService{
		Transactions: txRepo,
		Accounts:     acctRepo,
		Parser:       &ofx.Parser{},
		DebitsOnly:   cfg.Import.DebitsOnly,
	}
	suggester := &service.SuggesterService{
		Transactions: txRepo,
		Expenses:     expRepo,
		Suggestions:  suggRepo,
		Categories:   catRepo,
		Provider:     provider,
	}
	consolidator := &service.ConsolidatorService{
		DB:           db,
		Transactions: txRepo,
		Expenses:     expRepo,
		Suggestions:  suggRepo,
		Categories:   catRepo,
	}
	reporter := &service.ReporterService{Expenses: expRepo}
	seeder := &service.SeederService{DB: db}

	switch os.Args[1] {
	case "accounts":
		runAccounts(ctx, acctRepo, os.Args[2:])
	case "seed":
		runSeed(ctx, seeder, os.Args[2:])
	case "import":
		runImport(ctx, importer, acctRepo, os.Args[2:])
	case "suggest":
		runSuggest(ctx, suggester)
	case "review":
		runReview(ctx, cfg, txRepo, suggRepo, catRepo, suggester, consolidator, reporter)
	case "consolidate-all":
		runConsolidateAll(ctx, consolidator)
	case "report":
		runReport(ctx, reporter, acctRepo, catRepo, cfg, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func runAccounts(ctx context.Context, accounts *repository.AccountRepo, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: orcamento accounts <add|list> [flags]")
		os.Exit(2)
	}
	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("accounts add", flag.ExitOnError)
		name := fs.String("name", "", "account name")
		accType := fs.String("type", repository.AccountTypeDebit, "DEBIT or CREDIT")
		fs.Parse(args[1:])
		if *name == "" {
			log.Fatal("accounts add: -name is required")
		}
		if *accType != repository.AccountTypeDebit && *accType != repository.AccountTypeCredit {
			log.Fatalf("accounts add: invalid -type %q", *accType)
		}
		acct := repository.Account{ID: uuid.NewString(), Name: *name, Type: *accType}
		if err := accounts.Insert(ctx, acct); err != nil {
			log.Fatalf("accounts add: %v", err)
		}
		color.Green("account %s created (%s)", acct.Name, acct.ID)
	case "list":
		list, err := accounts.List(ctx)
		if err != nil {
			log.Fatalf("accounts list: %v", err)
		}
		for _, a := range list {
			fmt.Printf("%-36s  %-6s  %s\n", a.ID, a.Type, a.Name)
		}
	default:
		fmt.Fprintln(os.Stderr, "usage: orcamento accounts <add|list> [flags]")
		os.Exit(2)
	}
}

func runSeed(ctx context.Context, seeder *service.SeederService, args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	file := fs.String("file", "categories.json", "catalog JSON file")
	fs.Parse(args)
	res, err := seeder.LoadCatalog(ctx, *file)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	color.Green("seeded %d categories, %d subcategories", res.Categories, res.Subcategories)
}

func runImport(ctx context.Context, importer *service.ImporterService, accounts *repository.AccountRepo, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "OFX statement file")
	account := fs.String("account", "", "account name")
	month := fs.String("month", "", "reference month YYYY-MM (optional, for credit card bills)")
	fs.Parse(args)
	if *file == "" || *account == "" {
		log.Fatal("import: -file and -account are required")
	}

	acct, err := accounts.GetByName(ctx, *account)
	if err != nil {
		log.Fatalf("import: %v", err)
	}
	if acct == nil {
		log.Fatalf("import: account %q not found", *account)
	}

	var refDate *time.Time
	if *month != "" {
		parsed, err := time.Parse("2006-01", *month)
		if err != nil {
			log.Fatalf("import: invalid -month %q, want YYYY-MM", *month)
		}
		refDate = &parsed
	}

	res, err := importer.ImportFile(ctx, *file, acct.ID, refDate)
	if err != nil {
		log.Fatalf("import: %v", err)
	}
	color.Green("imported %d transactions, %d duplicates skipped", res.Created, res.Skipped)
}

func runSuggest(ctx context.Context, suggester *service.SuggesterService) {
	res, err := suggester.GenerateBatch(ctx)
	if err != nil {
		log.Fatalf("suggest: %v", err)
	}
	color.Green("generated %d suggestions", res.Generated)
	if res.Failed > 0 {
		color.Yellow("%d transactions produced no suggestion", res.Failed)
	}
}

func runReview(ctx context.Context, cfg config.Config,
	txRepo *repository.TransactionRepo, suggRepo *repository.SuggestionRepo, catRepo *repository.CategoryRepo,
	suggester *service.SuggesterService, consolidator *service.ConsolidatorService, reporter *service.ReporterService) {
	p := tea.NewProgram(tui.New(ctx, cfg,
		tui.Repos{Transactions: txRepo, Suggestions: suggRepo, Categories: catRepo},
		tui.Services{Suggester: suggester, Consolidator: consolidator, Reporter: reporter},
	), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("review: %v", err)
	}
}

func runConsolidateAll(ctx context.Context, consolidator *service.ConsolidatorService) {
	n, err := consolidator.ConsolidateAllPending(ctx)
	if err != nil {
		log.Fatalf("consolidate-all: %v", err)
	}
	color.Green("consolidated %d transactions", n)
}

func runReport(ctx context.Context, reporter *service.ReporterService,
	accounts *repository.AccountRepo, categories *repository.CategoryRepo,
	cfg config.Config, args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	by := fs.String("by", "category", "group by: category, subcategory, account, month")
	from := fs.String("from", "", "start month YYYY-MM (inclusive)")
	to := fs.String("to", "", "end month YYYY-MM (exclusive)")
	account := fs.String("account", "", "filter by account name")
	category := fs.String("category", "", "filter by category name")
	ignored := fs.Bool("ignored", false, "include ignored expenses")
	fs.Parse(args)

	filters := repository.ExpenseFilters{IncludeIgnored: *ignored}
	if *from != "" {
		t, err := time.Parse("2006-01", *from)
		if err != nil {
			log.Fatalf("report: invalid -from %q", *from)
		}
		filters.From = t
	}
	if *to != "" {
		t, err := time.Parse("2006-01", *to)
		if err != nil {
			log.Fatalf("report: invalid -to %q", *to)
		}
		filters.To = t
	}
	if *account != "" {
		acct, err := accounts.GetByName(ctx, *account)
		if err != nil {
			log.Fatalf("report: %v", err)
		}
		if acct == nil {
			log.Fatalf("report: account %q not found", *account)
		}
		filters.AccountID = acct.ID
	}
	if *category != "" {
		cats, err := categories.List(ctx)
		if err != nil {
			log.Fatalf("report: %v", err)
		}
		for _, c := range cats {
			if c.Name == *category {
				filters.CategoryID = c.ID
				break
			}
		}
		if filters.CategoryID == "" {
			log.Fatalf("report: category %q not found", *category)
		}
	}

	totals, err := reporter.Summary(ctx, filters, repository.GroupBy(*by))
	if err != nil {
		log.Fatalf("report: %v", err)
	}
	bold := color.New(color.Bold)
	bold.Printf("%-28s %12s\n", "group", "total")
	for _, t := range totals {
		key := t.Key
		if key == "" {
			key = "[uncategorized]"
		}
		fmt.Printf("%-28s %s%11s\n", key, cfg.UI.CurrencySymbol, t.Sum.Abs().StringFixed(2))
	}
}
