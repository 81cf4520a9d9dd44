package commands

import (
	"time"

	"github.com/primsh/prim.sh-sub000/pkg/apiserver"
	"github.com/primsh/prim.sh-sub000/pkg/backend"
	"github.com/primsh/prim.sh-sub000/pkg/db"
	"github.com/primsh/prim.sh-sub000/pkg/dnshost"
	"github.com/primsh/prim.sh-sub000/pkg/registrar"
	"github.com/primsh/prim.sh-sub000/pkg/version"
	"github.com/rancher/wrangler/pkg/signals"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

type apiServerCommand struct{}

func (s *apiServerCommand) Execute(c *cli.Context) error {
	ctx := signals.SetupSignalContext()

	log := logrus.WithField("command", "api-server")

	log.Infof("version: %v", version.Get())

	database, err := db.New(ctx, c.String("sql-dialect"), c.String("sql-dsn"), &gorm.Config{
		Logger: db.NewLogger(c.String("log-level")),
	})
	if err != nil {
		return err
	}

	reg := registrar.NewNamecom(c.String("namecom-url"), c.String("namecom-user"), c.String("namecom-token"))

	host, err := dnshost.NewCloudflare(c.String("cloudflare-token"), c.String("cloudflare-account"))
	if err != nil {
		return err
	}

	back := backend.New(database, reg, host, backend.Config{
		MarginRate:     c.Float64("margin-rate"),
		MarginMinCents: c.Int64("margin-min-cents"),
		QuoteTTL:       time.Duration(c.Int("quote-ttl-minutes")) * time.Minute,
		BatchMaxOps:    c.Int("batch-max-ops"),
		Resolver:       c.String("resolver"),
		QueryTimeout:   time.Duration(c.Int("query-timeout-seconds")) * time.Second,
	})

	apiServer := apiserver.NewAPIServer(ctx, log, c.Int("port"))

	if err := apiServer.Start(back); err != nil {
		return err
	}

	return nil
}

func serverCommand() *cli.Command {
	cmd := apiServerCommand{}

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Usage:   "Port for the HTTP Server Port",
			EnvVars: []string{"PORT"},
			Value:   4318,
		},
		&cli.StringFlag{
			Name:    "sql-dialect",
			Usage:   "The type of sql to use, sqlite or mysql",
			EnvVars: []string{"SQL_DIALECT"},
			Value:   "sqlite",
		},
		&cli.StringFlag{
			Name:    "sql-dsn",
			Usage:   "The DSN to use to connect to",
			EnvVars: []string{"SQL_DSN"},
			Value:   "file:domains.sqlite?_pragma=foreign_keys(1)",
		},
		&cli.StringFlag{
			Name:    "namecom-user",
			Usage:   "Name.com API username",
			EnvVars: []string{"NAMECOM_USER"},
		},
		&cli.StringFlag{
			Name:    "namecom-token",
			Usage:   "Name.com API token",
			EnvVars: []string{"NAMECOM_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "namecom-url",
			Usage:   "Name.com API base URL, point at api.dev.name.com for the sandbox",
			EnvVars: []string{"NAMECOM_URL"},
		},
		&cli.StringFlag{
			Name:    "cloudflare-token",
			Usage:   "Cloudflare API token with zone edit permissions",
			EnvVars: []string{"CLOUDFLARE_API_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "cloudflare-account",
			Usage:   "Cloudflare account ID that owns the zones",
			EnvVars: []string{"CLOUDFLARE_ACCOUNT_ID"},
		},
		&cli.StringFlag{
			Name:    "resolver",
			Usage:   "Recursive resolver used for delegation checks",
			EnvVars: []string{"RESOLVER"},
			Value:   "1.1.1.1:53",
		},
		&cli.IntFlag{
			Name:    "query-timeout-seconds",
			Usage:   "Timeout for a single DNS query during verification",
			EnvVars: []string{"QUERY_TIMEOUT_SECONDS"},
			Value:   5,
		},
		&cli.Float64Flag{
			Name:    "margin-rate",
			Usage:   "Fraction of the registrar cost added as margin",
			EnvVars: []string{"MARGIN_RATE"},
			Value:   0.15,
		},
		&cli.Int64Flag{
			Name:    "margin-min-cents",
			Usage:   "Minimum margin in cents regardless of rate",
			EnvVars: []string{"MARGIN_MIN_CENTS"},
			Value:   100,
		},
		&cli.IntFlag{
			Name:    "quote-ttl-minutes",
			Usage:   "Minutes a quote stays redeemable",
			EnvVars: []string{"QUOTE_TTL_MINUTES"},
			Value:   15,
		},
		&cli.IntFlag{
			Name:    "batch-max-ops",
			Usage:   "Maximum operations accepted in a single record batch",
			EnvVars: []string{"BATCH_MAX_OPS"},
			Value:   50,
		},
	}

	return &cli.Command{
		Name:   "api-server",
		Usage:  "domain api server",
		Action: cmd.Execute,
		Flags:  append(flags, GlobalFlags()...),
		Before: Before,
	}
}
