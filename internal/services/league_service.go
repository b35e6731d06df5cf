package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/exp/slog"

	"github.com/housiehub/housie-backend/internal/apperrors"
	"github.com/housiehub/housie-backend/internal/models"
	"github.com/housiehub/housie-backend/internal/repositories"
	"github.com/housiehub/housie-backend/internal/utils"
)

const inviteCodeLength = 8

// LeagueService defines the interface for league operations. Private leagues
// are joined by invite code, public ones directly.
type LeagueService interface {
	CreateLeague(ctx context.Context, creatorID primitive.ObjectID, name, visibility string) (*models.League, error)
	GetLeague(ctx context.Context, id primitive.ObjectID) (*models.League, error)
	JoinLeague(ctx context.Context, userID, leagueID primitive.ObjectID) (*models.League, error)
	JoinByCode(ctx context.Context, userID primitive.ObjectID, code string) (*models.League, error)
	PublicLeagues(ctx context.Context, limit int64) ([]*models.League, error)
	MyLeagues(ctx context.Context, userID primitive.ObjectID) ([]*models.League, error)
}

// LeagueServiceImpl implements the LeagueService interface
type LeagueServiceImpl struct {
	leagueRepo repositories.LeagueRepository
}

var _ LeagueService = (*LeagueServiceImpl)(nil)

// NewLeagueService creates a new LeagueService
func NewLeagueService(leagueRepo repositories.LeagueRepository) *LeagueServiceImpl {
	return &LeagueServiceImpl{leagueRepo: leagueRepo}
}

// CreateLeague creates a league with a fresh invite code. The creator is the
// first member.
func (s *LeagueServiceImpl) CreateLeague(ctx context.Context, creatorID primitive.ObjectID, name, visibility string) (*models.League, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("league name is required: %w", apperrors.ErrValidationFailure)
	}
	if visibility != "public" && visibility != "private" {
		return nil, fmt.Errorf("visibility must be public or private: %w", apperrors.ErrValidationFailure)
	}

	code, err := utils.GenerateRandomString(inviteCodeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite code: %w", err)
	}

	league := &models.League{
		ID:         primitive.NewObjectID(),
		Name:       name,
		Code:       code,
		Visibility: visibility,
		CreatorID:  creatorID,
		Members:    []models.LeagueMember{{UserID: creatorID, JoinedAt: time.Now()}},
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := s.leagueRepo.Create(ctx, league); err != nil {
		return nil, fmt.Errorf("failed to create league: %w", err)
	}

	slog.Info("League created", "leagueId", league.ID.Hex(), "name", name, "visibility", visibility)
	return league, nil
}

// GetLeague returns a league by ID.
func (s *LeagueServiceImpl) GetLeague(ctx context.Context, id primitive.ObjectID) (*models.League, error) {
	league, err := s.leagueRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("league %s: %w", id.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load league: %w", err)
	}
	return league, nil
}

// JoinLeague adds the user to a public league.
func (s *LeagueServiceImpl) JoinLeague(ctx context.Context, userID, leagueID primitive.ObjectID) (*models.League, error) {
	league, err := s.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if league.Visibility != "public" {
		return nil, fmt.Errorf("league %s requires an invite code: %w", leagueID.Hex(), apperrors.ErrInvalidState)
	}
	return s.addMember(ctx, league, userID)
}

// JoinByCode adds the user to the league behind an invite code.
func (s *LeagueServiceImpl) JoinByCode(ctx context.Context, userID primitive.ObjectID, code string) (*models.League, error) {
	league, err := s.leagueRepo.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("invite code: %w", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up invite code: %w", err)
	}
	return s.addMember(ctx, league, userID)
}

// PublicLeagues lists joinable public leagues.
func (s *LeagueServiceImpl) PublicLeagues(ctx context.Context, limit int64) ([]*models.League, error) {
	leagues, err := s.leagueRepo.FindPublic(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}
	return leagues, nil
}

// MyLeagues lists the leagues the user belongs to.
func (s *LeagueServiceImpl) MyLeagues(ctx context.Context, userID primitive.ObjectID) ([]*models.League, error) {
	leagues, err := s.leagueRepo.FindByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}
	return leagues, nil
}

func (s *LeagueServiceImpl) addMember(ctx context.Context, league *models.League, userID primitive.ObjectID) (*models.League, error) {
	member := models.LeagueMember{UserID: userID, JoinedAt: time.Now()}
	ok, err := s.leagueRepo.AddMember(ctx, league.ID, member)
	if err != nil {
		return nil, fmt.Errorf("failed to join league: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("already a member of league %s: %w", league.ID.Hex(), apperrors.ErrInvalidState)
	}
	league.Members = append(league.Members, member)
	return league, nil
}
