package service

import (
	"context"
	"strings"
	"time"

	"fintrack/internal/dto"
	"fintrack/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type GoalStore interface {
	Create(ctx context.Context, g *models.Goal) error
	List(ctx context.Context, userID uuid.UUID) ([]*models.Goal, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Goal, error)
	Update(ctx context.Context, g *models.Goal) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Contribute(ctx context.Context, userID, id uuid.UUID, amount decimal.Decimal, at time.Time) (*models.Goal, error)
}

type GoalService struct {
	repo   GoalStore
	now    func() time.Time
	logger *zap.Logger
}

func NewGoalService(repo GoalStore, logger *zap.Logger) *GoalService {
	return &GoalService{repo: repo, now: time.Now, logger: logger}
}

func (s *GoalService) Create(ctx context.Context, userID uuid.UUID, req *dto.GoalRequest) (*dto.GoalResponse, error) {
	name, deadline, err := validateGoal(req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	g := &models.Goal{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          name,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: decimal.Zero,
		Deadline:      deadline,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, &PersistenceError{Op: "create goal", Err: err}
	}
	resp := toGoalResponse(g)
	return &resp, nil
}

func (s *GoalService) List(ctx context.Context, userID uuid.UUID) ([]dto.GoalResponse, error) {
	goals, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Op: "list goals", Err: err}
	}
	out := make([]dto.GoalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	return out, nil
}

func (s *GoalService) Update(ctx context.Context, userID, id uuid.UUID, req *dto.GoalRequest) (*dto.GoalResponse, error) {
	g, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, mapStoreErr("load goal", err)
	}
	name, deadline, err := validateGoal(req)
	if err != nil {
		return nil, err
	}

	g.Name = name
	g.TargetAmount = req.TargetAmount
	g.Deadline = deadline
	g.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, g); err != nil {
		return nil, mapStoreErr("update goal", err)
	}
	resp := toGoalResponse(g)
	return &resp, nil
}

func (s *GoalService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return mapStoreErr("delete goal", err)
	}
	return nil
}

// Contribute adds a positive amount to the goal's savings.
func (s *GoalService) Contribute(ctx context.Context, userID, id uuid.UUID, amount decimal.Decimal) (*dto.GoalResponse, error) {
	if !amount.IsPositive() {
		return nil, &ValidationError{Message: "amount must be positive"}
	}
	g, err := s.repo.Contribute(ctx, userID, id, amount, s.now())
	if err != nil {
		return nil, mapStoreErr("contribute to goal", err)
	}
	if g.Completed() {
		s.logger.Info("Savings goal reached", zap.String("goal_id", g.ID.String()))
	}
	resp := toGoalResponse(g)
	return &resp, nil
}

func validateGoal(req *dto.GoalRequest) (string, *time.Time, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", nil, &ValidationError{Message: "name is required"}
	}
	if !req.TargetAmount.IsPositive() {
		return "", nil, &ValidationError{Message: "targetAmount must be positive"}
	}
	if req.Deadline == nil || strings.TrimSpace(*req.Deadline) == "" {
		return name, nil, nil
	}
	d, err := parseISODate(*req.Deadline)
	if err != nil {
		return "", nil, &ValidationError{Message: "deadline must be YYYY-MM-DD"}
	}
	return name, &d, nil
}

func toGoalResponse(g *models.Goal) dto.GoalResponse {
	resp := dto.GoalResponse{
		ID:              g.ID.String(),
		Name:            g.Name,
		TargetAmount:    g.TargetAmount,
		CurrentAmount:   g.CurrentAmount,
		ProgressPercent: g.ProgressPercent(),
		Completed:       g.Completed(),
		CreatedAt:       g.CreatedAt.Format(time.RFC3339),
	}
	if g.Deadline != nil {
		d := g.Deadline.Format(models.DateLayout)
		resp.Deadline = &d
	}
	return resp
}
