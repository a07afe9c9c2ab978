// Package seed loads demo data from YAML through the services, so program memberships
// and audit records are produced exactly as the API would produce them.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"github.com/goldenbridgewomen/gbw-tracker/internal/services"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Sample is a small cohort with one manager and one participant.
//
//go:embed sample.yaml
var Sample []byte

const dateLayout = "2006-01-02"

// Date is a calendar day written as YYYY-MM-DD.
type Date struct{ time.Time }

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	t, err := time.Parse(dateLayout, strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	d.Time = t
	return nil
}

type User struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type Program struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Start        Date     `yaml:"start"`
	End          Date     `yaml:"end"`
	Managers     []string `yaml:"managers"`
	Participants []string `yaml:"participants"`
}

type Expense struct {
	Date    Date    `yaml:"date"`
	Item    string  `yaml:"item"`
	Amount  float64 `yaml:"amount"`
	Contact string  `yaml:"contact"`
	Remarks string  `yaml:"remarks"`
}

type Cycle struct {
	User     string    `yaml:"user"`
	Budget   float64   `yaml:"budget"`
	Start    Date      `yaml:"start"`
	End      Date      `yaml:"end"`
	Expenses []Expense `yaml:"expenses"`
}

type Milestone struct {
	User        string `yaml:"user"`
	Program     string `yaml:"program"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Start       Date   `yaml:"start"`
	End         Date   `yaml:"end"`
	Status      string `yaml:"status"`
}

// File is the root of a seed document. Admin is created directly in the store since
// every other account is provisioned by an admin.
type File struct {
	Admin      User        `yaml:"admin"`
	Users      []User      `yaml:"users"`
	Programs   []Program   `yaml:"programs"`
	Cycles     []Cycle     `yaml:"cycles"`
	Milestones []Milestone `yaml:"milestones"`
}

func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if f.Admin.Email == "" || f.Admin.Password == "" {
		return nil, fmt.Errorf("seed file needs an admin with email and password")
	}
	return &f, nil
}

// Summary counts what a seed run created.
type Summary struct {
	Users      int
	Programs   int
	Cycles     int
	Expenses   int
	Milestones int
}

type Seeder struct {
	Store      repository.UserStore
	Users      *services.UserService
	Programs   *services.ProgramService
	Milestones *services.MilestoneService
	Balances   *services.BalanceService

	emails   map[string]*models.User
	programs map[string]*models.Program
}

// Run writes f. It stops at the first failure; earlier records are left in place.
func (s *Seeder) Run(ctx context.Context, f *File) (*Summary, error) {
	s.emails = map[string]*models.User{}
	s.programs = map[string]*models.Program{}
	sum := &Summary{}

	admin, err := s.bootstrapAdmin(ctx, f.Admin)
	if err != nil {
		return nil, err
	}
	sum.Users++

	for _, u := range f.Users {
		created, err := s.Users.CreateUser(ctx, admin, services.CreateUserInput{
			Name: u.Name, Email: u.Email, Password: u.Password, Role: u.Role,
		})
		if err != nil {
			return sum, fmt.Errorf("user %s: %w", u.Email, err)
		}
		s.emails[created.Email] = created
		sum.Users++
	}

	for _, p := range f.Programs {
		if err := s.program(ctx, admin, p); err != nil {
			return sum, fmt.Errorf("program %q: %w", p.Name, err)
		}
		sum.Programs++
	}

	for _, c := range f.Cycles {
		n, err := s.cycle(ctx, c)
		if err != nil {
			return sum, fmt.Errorf("cycle for %s: %w", c.User, err)
		}
		sum.Cycles++
		sum.Expenses += n
	}

	for _, m := range f.Milestones {
		if err := s.milestone(ctx, m); err != nil {
			return sum, fmt.Errorf("milestone %q: %w", m.Title, err)
		}
		sum.Milestones++
	}

	logrus.WithFields(logrus.Fields{
		"users":      sum.Users,
		"programs":   sum.Programs,
		"cycles":     sum.Cycles,
		"expenses":   sum.Expenses,
		"milestones": sum.Milestones,
	}).Info("Seed completed")
	return sum, nil
}

func (s *Seeder) bootstrapAdmin(ctx context.Context, u User) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	admin, err := s.Store.CreateUser(ctx, &models.User{
		Name:           u.Name,
		Email:          strings.ToLower(strings.TrimSpace(u.Email)),
		HashedPassword: string(hashed),
		Role:           models.RoleAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("admin %s: %w", u.Email, err)
	}
	s.emails[admin.Email] = admin
	return admin, nil
}

// user reloads a seeded user so memberships added since creation are visible.
func (s *Seeder) user(ctx context.Context, email string) (*models.User, error) {
	u, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, fmt.Errorf("unknown user %s", email)
	}
	return s.Users.GetActor(ctx, u.ID)
}

func (s *Seeder) program(ctx context.Context, admin *models.User, p Program) error {
	in := services.ProgramInput{
		Name:        p.Name,
		Description: p.Description,
		StartDate:   p.Start.Time,
		EndDate:     p.End.Time,
	}
	for _, email := range p.Managers {
		m, err := s.user(ctx, email)
		if err != nil {
			return err
		}
		in.ManagerIDs = append(in.ManagerIDs, m.ID)
	}
	program, err := s.Programs.CreateProgram(ctx, admin, in)
	if err != nil {
		return err
	}
	s.programs[program.Name] = program

	for _, email := range p.Participants {
		res, err := s.Programs.AddParticipantByEmail(ctx, admin, program.ID, email)
		if err != nil {
			return fmt.Errorf("participant %s: %w", email, err)
		}
		if !res.Enrolled {
			logrus.WithField("email", email).Info("Seed participant not registered; invite created")
		}
	}
	return nil
}

func (s *Seeder) cycle(ctx context.Context, c Cycle) (int, error) {
	owner, err := s.user(ctx, c.User)
	if err != nil {
		return 0, err
	}
	view, err := s.Balances.StartCycle(ctx, owner, owner.ID, services.CycleInput{
		Budget:    c.Budget,
		StartDate: c.Start.Time,
		EndDate:   c.End.Time,
	})
	if err != nil {
		return 0, err
	}
	for _, e := range c.Expenses {
		if _, err := s.Balances.AddExpense(ctx, owner, view.ID, services.ExpenseInput{
			Date:    e.Date.Time,
			Item:    e.Item,
			Amount:  e.Amount,
			Contact: e.Contact,
			Remarks: e.Remarks,
		}); err != nil {
			return 0, fmt.Errorf("expense %q: %w", e.Item, err)
		}
	}
	return len(c.Expenses), nil
}

func (s *Seeder) milestone(ctx context.Context, m Milestone) error {
	owner, err := s.user(ctx, m.User)
	if err != nil {
		return err
	}
	in := services.MilestoneInput{
		Title:       m.Title,
		Description: m.Description,
		Category:    m.Category,
		StartDate:   m.Start.Time,
		EndDate:     m.End.Time,
		Status:      models.MilestoneStatus(m.Status),
	}
	if m.Program != "" {
		p, ok := s.programs[m.Program]
		if !ok {
			return fmt.Errorf("unknown program %q", m.Program)
		}
		in.ProgramID = &p.ID
	}
	_, err = s.Milestones.CreateMilestone(ctx, owner, in)
	return err
}
