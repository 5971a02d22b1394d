// seed-admin creates or updates the admin account and, optionally, one organization account.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	SEED_ADMIN_EMAIL=admin@example.com SEED_ADMIN_PASSWORD=... go run ./cmd/seed-admin
//
// Pass -org-email (or SEED_ORG_EMAIL) to also seed an organization user that receives
// new-report broadcasts.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/disaster_backend/config"
	"github.com/mmdatafocus/disaster_backend/models"
)

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	adminEmail := flag.String("admin-email", envOr("SEED_ADMIN_EMAIL", "admin@disaster-watch.local"), "admin login email")
	adminPassword := flag.String("admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "admin password (min 6 chars)")
	adminName := flag.String("admin-name", envOr("SEED_ADMIN_NAME", "Disaster-Watch Admin"), "admin display name")
	orgEmail := flag.String("org-email", os.Getenv("SEED_ORG_EMAIL"), "organization login email; empty skips it")
	orgPassword := flag.String("org-password", os.Getenv("SEED_ORG_PASSWORD"), "organization password")
	orgName := flag.String("org-name", envOr("SEED_ORG_NAME", "Relief Organization"), "organization display name")
	migrate := flag.Bool("migrate", false, "run AutoMigrate before seeding")
	flag.Parse()

	if len(*adminPassword) < 6 {
		fmt.Fprintln(os.Stderr, "admin password must be at least 6 characters (-admin-password or SEED_ADMIN_PASSWORD)")
		os.Exit(2)
	}
	if *orgEmail != "" && len(*orgPassword) < 6 {
		fmt.Fprintln(os.Stderr, "organization password must be at least 6 characters (-org-password or SEED_ORG_PASSWORD)")
		os.Exit(2)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if *migrate {
		if err := models.MigrateTable(db); err != nil {
			fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
			os.Exit(1)
		}
	}

	users := models.NewUserStore(db)
	seed := func(name, email, password string, role models.UserRole) {
		user, created, err := users.UpsertByEmail(ctx, &models.NewUser{
			Name:     name,
			Email:    email,
			Password: password,
			Role:     role,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed %s user %q: %v\n", role, email, err)
			os.Exit(1)
		}
		verb := "Updated"
		if created {
			verb = "Created"
		}
		fmt.Printf("%s %s user: id=%d email=%q\n", verb, role, user.ID, user.Email)
	}

	seed(*adminName, *adminEmail, *adminPassword, models.UserRoleAdmin)
	if *orgEmail != "" {
		seed(*orgName, *orgEmail, *orgPassword, models.UserRoleOrganization)
	}
}
