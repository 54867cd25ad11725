package admin

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/folio/internal/flagx"
	"github.com/dmitrijs2005/folio/internal/server/config"
	"github.com/dmitrijs2005/folio/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/folio/internal/server/services"
)

const usage = `usage: folio-admin <command> [flags]

commands:
  hash-password          prompt for a password and print its bcrypt hash
  export                 write all content as JSON to stdout
  import -file dump.json load content from a JSON dump

database and config flags are the server's (-d, -c/-config)
`

// seams for tests
var (
	loadConfig = config.LoadConfig
	openStores = func(ctx context.Context, cfg *config.Config) (Content, CVStore, func() error, error) {
		db, err := repomanager.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("db init error: %w", err)
		}
		rm := repomanager.NewPostgresRepositoryManager()
		if err := rm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("migrations: %w", err)
		}
		return services.NewContentService(db, rm, cfg), services.NewCVService(db, rm, cfg, nil), db.Close, nil
	}
)

// Main runs one command and returns the process exit code.
func Main(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "hash-password":
		err = HashPassword(stderr, stdout)
	case "export":
		err = withStores(ctx, func(c Content, cv CVStore) error {
			return Export(ctx, c, cv, stdout)
		})
	case "import":
		err = runImport(ctx, args[1:], stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func runImport(ctx context.Context, args []string, stdout io.Writer) error {
	var path string
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "file", "", "dump file")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-file", "--file"})); err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("import needs -file")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return withStores(ctx, func(c Content, cv CVStore) error {
		st, err := Import(ctx, c, cv, f)
		fmt.Fprintf(stdout, "imported %d documents, %d singletons, cv: %t\n", st.Documents, st.Singletons, st.CV)
		return err
	})
}

func withStores(ctx context.Context, fn func(Content, CVStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	content, cv, closeFn, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	return fn(content, cv)
}
