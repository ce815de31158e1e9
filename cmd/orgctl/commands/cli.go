// Package commands implements orgctl, the operator CLI for the organization
// store.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/tendant/simple-org-slim/internal/config"
	"github.com/tendant/simple-org-slim/internal/storage"
	"github.com/tendant/simple-org-slim/internal/telemetry"
	"github.com/tendant/simple-org-slim/orgsvc"
	"github.com/tendant/simple-org-slim/pkg/domain"
	"github.com/tendant/simple-org-slim/pkg/lifecycle"
)

// Lifecycle is the subset of the lifecycle manager the commands use.
type Lifecycle interface {
	Create(ctx context.Context, req lifecycle.CreateRequest) (*lifecycle.CreateResult, error)
	Get(ctx context.Context, name string) (*domain.Organization, error)
	List(ctx context.Context) ([]*domain.Organization, error)
	Audit(ctx context.Context) (*lifecycle.AuditReport, error)
}

type cliCtx struct {
	context.Context
	Lifecycle Lifecycle
	Out       io.Writer
}

type cli struct {
	Debug   bool             `help:"Enable debug logging"`
	Create  CreateCmd        `cmd:"" help:"Create an organization and its admin"`
	Get     GetCmd           `cmd:"" help:"Show organization metadata"`
	List    ListCmd          `cmd:"" help:"List organizations"`
	Audit   AuditCmd         `cmd:"" help:"Report leftovers of interrupted operations"`
	Version kong.VersionFlag `help:"Show version"`
}

// Execute parses the command line and runs the selected command against the
// configured store.
func Execute(version string) {
	_ = godotenv.Load()

	var cli cli
	ctx := kong.Parse(&cli,
		kong.UsageOnError(),
		kong.Name("orgctl"),
		kong.Description("orgctl manages organizations in the organization store"),
		kong.Vars{"version": version},
	)

	cfg, err := config.LoadWithoutSecrets()
	ctx.FatalIfErrorf(err)

	level := "warn"
	if cli.Debug {
		level = "debug"
	}
	logger := telemetry.NewLogger(os.Stderr, "text", level)

	connectCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := storage.Open(connectCtx, cfg.Store, logger)
	cancel()
	ctx.FatalIfErrorf(err)
	defer store.Close(context.Background())

	svcCfg := orgsvc.FromConfig(store, cfg, logger)
	svcCfg.MetricsEnabled = false
	manager, err := orgsvc.NewLifecycle(svcCfg)
	ctx.FatalIfErrorf(err)

	err = ctx.Run(&cliCtx{
		Context:   context.Background(),
		Lifecycle: manager,
		Out:       os.Stdout,
	})
	ctx.FatalIfErrorf(err)
}

type CreateCmd struct {
	Name     string `help:"Organization name" required:""`
	Email    string `help:"Admin email" required:""`
	Password string `help:"Admin password" required:"" env:"ORGCTL_ADMIN_PASSWORD"`
}

func (c *CreateCmd) Run(ctx *cliCtx) error {
	result, err := ctx.Lifecycle.Create(ctx, lifecycle.CreateRequest{
		Name:     c.Name,
		Email:    c.Email,
		Password: c.Password,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "Created organization %q\n", result.Organization.Name)
	fmt.Fprintf(ctx.Out, "  id:         %s\n", result.Organization.ID)
	fmt.Fprintf(ctx.Out, "  slug:       %s\n", result.Organization.Slug)
	fmt.Fprintf(ctx.Out, "  collection: %s\n", result.Organization.CollectionName)
	fmt.Fprintf(ctx.Out, "  admin:      %s (%s)\n", result.Admin.Email, result.Admin.ID)
	return nil
}

type GetCmd struct {
	Name string `arg:"" help:"Organization name"`
	JSON bool   `help:"Print JSON" short:"j"`
}

func (c *GetCmd) Run(ctx *cliCtx) error {
	org, err := ctx.Lifecycle.Get(ctx, c.Name)
	if err != nil {
		return err
	}

	if c.JSON {
		return writeJSON(ctx.Out, toOrganizationView(org))
	}

	admin := "-"
	if org.HasAdmin() {
		admin = org.AdminID.String()
	}
	fmt.Fprintf(ctx.Out, "name:       %s\n", org.Name)
	fmt.Fprintf(ctx.Out, "id:         %s\n", org.ID)
	fmt.Fprintf(ctx.Out, "slug:       %s\n", org.Slug)
	fmt.Fprintf(ctx.Out, "collection: %s\n", org.CollectionName)
	fmt.Fprintf(ctx.Out, "database:   %s\n", org.ConnectionDetails.Database)
	fmt.Fprintf(ctx.Out, "admin:      %s\n", admin)
	fmt.Fprintf(ctx.Out, "created:    %s\n", org.CreatedAt.Format(time.RFC3339))
	return nil
}

type ListCmd struct{}

func (c *ListCmd) Run(ctx *cliCtx) error {
	orgs, err := ctx.Lifecycle.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSLUG\tCOLLECTION\tID")
	for _, org := range orgs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", org.Name, org.Slug, org.CollectionName, org.ID)
	}
	return tw.Flush()
}

type AuditCmd struct {
	JSON bool `help:"Print JSON" short:"j"`
}

func (c *AuditCmd) Run(ctx *cliCtx) error {
	report, err := ctx.Lifecycle.Audit(ctx)
	if err != nil {
		return err
	}

	if c.JSON {
		if err := writeJSON(ctx.Out, report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(ctx.Out, "organizations: %d  admins: %d  collections: %d\n",
			report.Organizations, report.Admins, report.Collections)
		for _, f := range report.Findings {
			fmt.Fprintf(ctx.Out, "%-18s %s\n", f.Kind, f.Detail)
		}
	}

	if !report.Clean() {
		return fmt.Errorf("audit found %d issue(s)", len(report.Findings))
	}
	return nil
}

type organizationView struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	CollectionName string    `json:"collection_name"`
	Database       string    `json:"database"`
	AdminID        *string   `json:"admin_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func toOrganizationView(org *domain.Organization) organizationView {
	v := organizationView{
		ID:             org.ID.String(),
		Name:           org.Name,
		Slug:           org.Slug,
		CollectionName: org.CollectionName,
		Database:       org.ConnectionDetails.Database,
		CreatedAt:      org.CreatedAt,
	}
	if org.HasAdmin() {
		id := org.AdminID.String()
		v.AdminID = &id
	}
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
