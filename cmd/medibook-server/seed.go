package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/medibook/medibook/internal/config"
	"github.com/medibook/medibook/internal/domain/doctor"
	"github.com/medibook/medibook/internal/domain/identity"
	"github.com/medibook/medibook/internal/platform/auth"
)

var demoDoctors = []struct {
	name  string
	image string
}{
	{"Dr. Anna Kovacs", "https://images.medibook.dev/doctors/kovacs.png"},
	{"Dr. Peter Nagy", "https://images.medibook.dev/doctors/nagy.png"},
	{"Dr. Eva Szabo", "https://images.medibook.dev/doctors/szabo.png"},
}

const slotsPerDoctor = 6

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the admin, the test user and demo doctors with slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Env)

			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
			users := identity.NewService(identity.NewUserRepoPG(pool), auth.NewPasswordHasher(cfg.SaltRounds), tokens, logger, nil)
			doctors := doctor.NewService(doctor.NewRepoPG(pool), logger)

			return seed(ctx, cfg, users, doctors, time.Now())
		},
	}
}

// seed is idempotent: existing accounts are kept and demo doctors are only
// created when there are none.
func seed(ctx context.Context, cfg *config.Config, users *identity.Service, doctors *doctor.Service, now time.Time) error {
	accounts := []struct {
		in   identity.RegisterInput
		role auth.Role
	}{
		{identity.RegisterInput{Username: cfg.AdminUsername, Email: cfg.AdminEmail, Password: cfg.AdminPassword, Phone: "+36501234567"}, auth.RoleAdmin},
		{identity.RegisterInput{Username: cfg.TestUsername, Email: cfg.TestUserEmail, Password: cfg.TestUserPassword, Phone: "+36500123456"}, auth.RoleUser},
	}
	for _, a := range accounts {
		if a.in.Email == "" || a.in.Password == "" {
			continue
		}
		if _, _, err := users.EnsureUser(ctx, a.in, a.role); err != nil {
			return fmt.Errorf("seed user %s: %w", a.in.Email, err)
		}
	}

	existing, err := doctors.ListDoctors(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	for _, dd := range demoDoctors {
		d, err := doctors.CreateDoctor(ctx, dd.name, dd.image)
		if err != nil {
			return fmt.Errorf("seed doctor %s: %w", dd.name, err)
		}
		for i := 0; i < slotsPerDoctor; i++ {
			at := day.AddDate(0, 0, i/3).Add(time.Duration(i%3) * time.Hour)
			if _, err := doctors.CreateSlot(ctx, d.ID.String(), at); err != nil {
				return fmt.Errorf("seed slot: %w", err)
			}
		}
	}
	return nil
}
