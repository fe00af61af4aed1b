package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"fintrack/internal/models"
	"fintrack/internal/repository"
	"fintrack/pkg/auth"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type seedOptions struct {
	email    string
	password string
	months   int
	perMonth int
	seed     int64
}

// newSeedCommand fills a demo account with plausible transactions.
func newSeedCommand() *cobra.Command {
	opts := seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo user with generated transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()
			return runSeed(cmd.Context(), cmd.OutOrStdout(), e, opts)
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "demo@fintrack.local", "demo account email")
	cmd.Flags().StringVar(&opts.password, "password", "demo-password", "demo account password")
	cmd.Flags().IntVar(&opts.months, "months", 6, "months of history to generate")
	cmd.Flags().IntVar(&opts.perMonth, "per-month", 40, "transactions generated per month")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "random seed, 0 picks one")

	return cmd
}

func runSeed(ctx context.Context, w io.Writer, e *env, opts seedOptions) error {
	users := repository.NewUserRepository(e.pool, e.logger)
	txRepo := repository.NewTransactionRepository(e.pool, e.logger)

	user, err := users.GetByEmail(ctx, opts.email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		hashed, err := auth.HashPassword(opts.password)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		user = &models.User{
			ID:        uuid.New(),
			Username:  strings.Split(opts.email, "@")[0],
			Email:     opts.email,
			Password:  hashed,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("creating demo user: %w", err)
		}
	case err != nil:
		return fmt.Errorf("looking up demo user: %w", err)
	}

	faker := gofakeit.New(opts.seed)
	txs := fakeTransactions(faker, user.ID, opts.months, opts.perMonth, time.Now().UTC(), e.cfg.Analysis.Currency)

	n, err := txRepo.CreateBatch(ctx, txs)
	if err != nil {
		return fmt.Errorf("inserting transactions: %w", err)
	}

	e.logger.Info("Seeded demo account", zap.String("email", opts.email), zap.Int64("transactions", n))
	_, err = fmt.Fprintf(w, "seeded %d transactions for %s\n", n, opts.email)
	return err
}

// fakeTransactions generates one salary per month plus perMonth-1 expenses,
// all dated within the last months calendar months up to now.
func fakeTransactions(faker *gofakeit.Faker, userID uuid.UUID, months, perMonth int, now time.Time, currency string) []*models.Transaction {
	expenses := models.Categories(models.TransactionTypeExpense)
	banks := []string{"Vietcombank", "Techcombank", "MB Bank", "ACB"}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var out []*models.Transaction
	for m := 0; m < months; m++ {
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -m, 0)
		end := start.AddDate(0, 1, -1)
		if end.After(today) {
			end = today
		}

		out = append(out, fakeTransaction(userID, currency, models.TransactionTypeIncome, "Salary",
			decimal.NewFromInt(int64(faker.Number(15, 40))*1_000_000), start, faker.RandomString(banks), "Monthly salary"))

		for i := 1; i < perMonth; i++ {
			amount := decimal.NewFromInt(int64(faker.Number(20, 2_000)) * 1_000)
			date := faker.DateRange(start, end.Add(time.Hour))
			out = append(out, fakeTransaction(userID, currency, models.TransactionTypeExpense,
				faker.RandomString(expenses), amount, date, faker.RandomString(banks), faker.Company()))
		}
	}
	return out
}

func fakeTransaction(userID uuid.UUID, currency string, t models.TransactionType, category string, amount decimal.Decimal, date time.Time, bank, desc string) *models.Transaction {
	now := time.Now().UTC()
	return &models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        t,
		Category:    category,
		Amount:      amount,
		Currency:    currency,
		Description: desc,
		Bank:        bank,
		Source:      models.SourceImport,
		Date:        time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
