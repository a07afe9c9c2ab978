// Command seed loads demo data into MongoDB. With -dry-run it loads into memory and only
// reports what would be created.
package main

import (
	"bytes"
	"context"
	"flag"
	"os"

	"github.com/goldenbridgewomen/gbw-tracker/internal/audit"
	"github.com/goldenbridgewomen/gbw-tracker/internal/config"
	"github.com/goldenbridgewomen/gbw-tracker/internal/database"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository/memory"
	"github.com/goldenbridgewomen/gbw-tracker/internal/seed"
	"github.com/goldenbridgewomen/gbw-tracker/internal/services"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
)

type stores struct {
	users      repository.UserStore
	programs   repository.ProgramStore
	milestones repository.MilestoneStore
	cycles     repository.CycleStore
	invites    repository.InviteStore
	templates  repository.TemplateStore
	audit      repository.AuditStore
}

func main() {
	file := flag.String("file", "", "seed YAML file (defaults to the built-in sample)")
	dryRun := flag.Bool("dry-run", false, "load into memory instead of MongoDB")
	flag.Parse()

	cfg := config.LoadConfig()
	logger.InitLogger(cfg.LogLevel)
	ctx := context.Background()

	data := seed.Sample
	if *file != "" {
		b, err := os.ReadFile(*file)
		if err != nil {
			logger.Log.Fatalf("Failed to read seed file: %v", err)
		}
		data = b
	}
	f, err := seed.Parse(bytes.NewReader(data))
	if err != nil {
		logger.Log.Fatal(err)
	}

	var st stores
	if *dryRun {
		mem := memory.New()
		st = stores{mem.Users, mem.Programs, mem.Milestones, mem.Cycles, mem.Invites, mem.Templates, mem.Audit}
	} else {
		db, err := database.ConnectDB(cfg)
		if err != nil {
			logger.Log.Fatalf("Database connection error: %v", err)
		}
		defer db.Client().Disconnect(ctx)
		userRepo := repository.NewUserRepository(db)
		if err := userRepo.EnsureIndexes(ctx); err != nil {
			logger.Log.Fatalf("Failed to create user indexes: %v", err)
		}
		st = stores{
			users:      userRepo,
			programs:   repository.NewProgramRepository(db),
			milestones: repository.NewMilestoneRepository(db),
			cycles:     repository.NewCycleRepository(db),
			invites:    repository.NewInviteRepository(db),
			templates:  repository.NewTemplateRepository(db),
			audit:      repository.NewAuditRepository(db),
		}
	}

	auditLogger := audit.NewStoreLogger(st.audit)
	programs := services.NewProgramService(st.programs, st.users, st.invites, nil, cfg.AppOrigin)
	seeder := &seed.Seeder{
		Store:      st.users,
		Users:      services.NewUserService(st.users, st.programs, programs),
		Programs:   programs,
		Milestones: services.NewMilestoneService(st.milestones, st.templates, st.programs, st.users, nil, auditLogger),
		Balances:   services.NewBalanceService(st.cycles, st.programs, auditLogger),
	}

	sum, err := seeder.Run(ctx, f)
	if err != nil {
		logger.Log.Fatalf("Seed failed: %v", err)
	}
	logger.Log.Infof("Seeded %d users, %d programs, %d cycles (%d expenses), %d milestones (dry run: %t)",
		sum.Users, sum.Programs, sum.Cycles, sum.Expenses, sum.Milestones, *dryRun)
}
