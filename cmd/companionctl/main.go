// Package main is the companionctl operator CLI. It talks straight to the
// graph store with the same repositories the server uses, so tenant
// bootstrap (organizations, cloud accounts, API keys) works without the API
// being up. Subcommands are dispatched with a switch on os.Args and stdlib
// flag sets; the surface is small enough that a CLI framework would be
// heavier than the tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cloud-companion/cloud-companion/internal/auth"
	"github.com/cloud-companion/cloud-companion/internal/config"
	"github.com/cloud-companion/cloud-companion/internal/crypto"
	"github.com/cloud-companion/cloud-companion/internal/graph"
	"github.com/cloud-companion/cloud-companion/internal/repositories"
)

// credentialSalt keys PBKDF2 derivation of the credential cipher. It is a
// domain separator, not a secret; the secrecy lives in auth.encryption_key.
const credentialSalt = "cloud-companion-account-credentials"

const usage = `Usage: companionctl <command> [flags]

Commands:
  org create      --name <name> [--description <text>]
  org list
  org delete      --id <org-id>
  account create  --org <org-id> --provider <aws|azure|gcp> --ref <account-ref> --name <name> [--credentials <json>]
  account list    --org <org-id>
  key create      --org <org-id> --name <name> [--days <n>]
  key list        --org <org-id>
  key revoke      --org <org-id> --id <key-id>
`

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	if len(os.Args) < 3 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	graphSvc, err := graph.New(ctx, graph.Config{
		URI:      cfg.Graph.URI,
		Username: cfg.Graph.Username,
		Password: cfg.Graph.Password,
		Database: cfg.Graph.Database,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to graph store: %w", err)
	}
	defer graphSvc.Close(ctx)

	app := &cli{cfg: cfg, graph: graphSvc}

	command := os.Args[1] + " " + os.Args[2]
	args := os.Args[3:]

	switch command {
	case "org create":
		return app.orgCreate(ctx, args)
	case "org list":
		return app.orgList(ctx)
	case "org delete":
		return app.orgDelete(ctx, args)
	case "account create":
		return app.accountCreate(ctx, args)
	case "account list":
		return app.accountList(ctx, args)
	case "key create":
		return app.keyCreate(ctx, args)
	case "key list":
		return app.keyList(ctx, args)
	case "key revoke":
		return app.keyRevoke(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command: %s", command)
	}
}

type cli struct {
	cfg   *config.Config
	graph *graph.Service
}

func (a *cli) orgCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("org create", flag.ExitOnError)
	name := fs.String("name", "", "organization name")
	description := fs.String("description", "", "free-form description")
	_ = fs.Parse(args)
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	org, err := repositories.NewOrganizationRepository(a.graph).Create(ctx, *name, *description)
	if err != nil {
		return err
	}

	fmt.Printf("Created organization %s (%s)\n", org.Name, org.ID)
	return nil
}

func (a *cli) orgList(ctx context.Context) error {
	orgs, err := repositories.NewOrganizationRepository(a.graph).List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION\tCREATED")
	for _, org := range orgs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", org.ID, org.Name, org.Description, org.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func (a *cli) orgDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("org delete", flag.ExitOnError)
	id := fs.String("id", "", "organization id")
	_ = fs.Parse(args)
	if *id == "" {
		return fmt.Errorf("--id is required")
	}

	if err := repositories.NewOrganizationRepository(a.graph).Delete(ctx, *id); err != nil {
		return err
	}

	fmt.Printf("Deleted organization %s and all attached data\n", *id)
	return nil
}

func (a *cli) accountCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("account create", flag.ExitOnError)
	orgID := fs.String("org", "", "organization id")
	provider := fs.String("provider", "", "cloud provider (aws, azure, gcp)")
	ref := fs.String("ref", "", "provider-native account identifier")
	name := fs.String("name", "", "display name")
	credentials := fs.String("credentials", "", "credentials JSON (sealed before storage)")
	_ = fs.Parse(args)
	if *orgID == "" || *provider == "" || *ref == "" || *name == "" {
		return fmt.Errorf("--org, --provider, --ref, and --name are required")
	}

	sealed := ""
	if *credentials != "" {
		if a.cfg.Auth.EncryptionKey == "" {
			return fmt.Errorf("auth.encryption_key must be configured to store credentials")
		}
		cipher, err := crypto.DeriveCredentialCipher(a.cfg.Auth.EncryptionKey, []byte(credentialSalt), 0)
		if err != nil {
			return err
		}
		sealed, err = cipher.Seal(*credentials)
		if err != nil {
			return err
		}
	}

	account, err := repositories.NewCloudAccountRepository(a.graph).Create(ctx, *orgID, *provider, *ref, *name, sealed)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("organization %s not found", *orgID)
	}

	fmt.Printf("Created %s account %s (%s)\n", account.Provider, account.Name, account.ID)
	return nil
}

func (a *cli) accountList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("account list", flag.ExitOnError)
	orgID := fs.String("org", "", "organization id")
	_ = fs.Parse(args)
	if *orgID == "" {
		return fmt.Errorf("--org is required")
	}

	accounts, err := repositories.NewCloudAccountRepository(a.graph).ListByOrg(ctx, *orgID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROVIDER\tREF\tNAME\tLAST_SYNCED")
	for _, acc := range accounts {
		lastSynced := "never"
		if acc.LastSynced != nil {
			lastSynced = acc.LastSynced.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", acc.ID, acc.Provider, acc.AccountRef, acc.Name, lastSynced)
	}
	return w.Flush()
}

func (a *cli) keyCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("key create", flag.ExitOnError)
	orgID := fs.String("org", "", "organization id")
	name := fs.String("name", "", "key name")
	days := fs.Int("days", a.cfg.Auth.KeyExpiryDays, "days until expiry")
	_ = fs.Parse(args)
	if *orgID == "" || *name == "" {
		return fmt.Errorf("--org and --name are required")
	}

	rawKey, _, err := auth.GenerateAPIKey(a.cfg.Auth.KeyPrefix)
	if err != nil {
		return err
	}
	digest := auth.HashAPIKey(rawKey, a.cfg.Auth.HMACSecret)
	expiresAt := time.Now().UTC().AddDate(0, 0, *days)

	key, err := repositories.NewAPIKeyRepository(a.graph).Create(ctx, *orgID, *name, digest, &expiresAt)
	if err != nil {
		return err
	}
	if key == nil {
		return fmt.Errorf("organization %s not found", *orgID)
	}

	fmt.Printf("Created API key %s (%s)\n", key.Name, key.ID)
	fmt.Printf("Expires: %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println()
	fmt.Println("Raw key (shown once, store it now):")
	fmt.Println(rawKey)
	return nil
}

func (a *cli) keyList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("key list", flag.ExitOnError)
	orgID := fs.String("org", "", "organization id")
	_ = fs.Parse(args)
	if *orgID == "" {
		return fmt.Errorf("--org is required")
	}

	keys, err := repositories.NewAPIKeyRepository(a.graph).ListByOrg(ctx, *orgID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tEXPIRES\tLAST USED")
	for _, key := range keys {
		expires := "-"
		if key.ExpiresAt != nil {
			expires = key.ExpiresAt.Format(time.RFC3339)
		}
		lastUsed := "-"
		if key.LastUsedAt != nil {
			lastUsed = key.LastUsedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", key.ID, key.Name, key.Status, expires, lastUsed)
	}
	return w.Flush()
}

func (a *cli) keyRevoke(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("key revoke", flag.ExitOnError)
	orgID := fs.String("org", "", "organization id")
	id := fs.String("id", "", "key id")
	_ = fs.Parse(args)
	if *orgID == "" || *id == "" {
		return fmt.Errorf("--org and --id are required")
	}

	if err := repositories.NewAPIKeyRepository(a.graph).Revoke(ctx, *orgID, *id); err != nil {
		return err
	}

	fmt.Printf("Revoked API key %s\n", *id)
	return nil
}
