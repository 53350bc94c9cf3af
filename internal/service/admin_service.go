package service

import (
	"context"
	stderrors "errors"
	"strings"

	"bb-fantasy/internal/domain"
	"bb-fantasy/internal/repository"
	"bb-fantasy/internal/service/scoring"
	"bb-fantasy/pkg/errors"
	"bb-fantasy/pkg/logger"
)

// adminService implements AdminService
type adminService struct {
	repos  *repository.Repositories
	cache  *CacheService
	logger *logger.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(repos *repository.Repositories, cache *CacheService, logger *logger.Logger) AdminService {
	return &adminService{
		repos:  repos,
		cache:  cache,
		logger: logger,
	}
}

// CreateWeek opens the week after the latest one
func (s *adminService) CreateWeek(ctx context.Context) (*domain.Week, error) {
	week, err := s.repos.Week.CreateNext(ctx)
	if err != nil {
		if stderrors.Is(err, repository.ErrConflict) {
			return nil, errors.NewConflictError("Week already exists")
		}
		return nil, errors.NewInternalError("Failed to create week", err)
	}

	// Survival points depend on the current week
	s.cache.InvalidateLeague(ctx)
	s.logger.WithField("week", week.Number).Info("Week created")
	return week, nil
}

// UpdateWeek applies a partial update, then recomputes houseguest stats
func (s *adminService) UpdateWeek(ctx context.Context, number int, update domain.WeekUpdate) (*domain.Week, error) {
	if number < 1 {
		return nil, errors.NewValidationError("Invalid week number", nil)
	}

	week, err := s.repos.Week.GetByNumber(ctx, number)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load week", err)
	}
	if week == nil {
		return nil, errors.NewNotFoundError("Week not found")
	}

	if err := s.validateWeekUpdate(ctx, &update); err != nil {
		return nil, err
	}

	var released []domain.EvictionRef
	previous := week.EvictedNomineeID
	update.Apply(week)
	if previous != nil && *previous != "" && (week.EvictedNomineeID == nil || *week.EvictedNomineeID != *previous) {
		released = append(released, domain.EvictionRef{HouseguestID: *previous, Week: number})
	}

	if err := s.repos.Week.Update(ctx, week); err != nil {
		if stderrors.Is(err, repository.ErrInvalidReference) {
			return nil, errors.NewValidationError("Unknown houseguest id", nil)
		}
		return nil, errors.NewInternalError("Failed to update week", err)
	}

	if err := s.recomputeStats(ctx, released...); err != nil {
		return nil, err
	}

	s.logger.WithField("week", number).Info("Week updated")
	return week, nil
}

func (s *adminService) validateWeekUpdate(ctx context.Context, update *domain.WeekUpdate) error {
	if update.Nominees.Set && !update.Nominees.Null {
		seen := make(map[string]bool, len(update.Nominees.Value))
		count := 0
		for _, id := range update.Nominees.Value {
			if id == "" {
				continue
			}
			if seen[id] {
				return errors.NewValidationError("Duplicate nominee", map[string]interface{}{"id": id})
			}
			seen[id] = true
			count++
		}
		if count > domain.MaxNominees {
			return errors.NewValidationError("Too many nominees", map[string]interface{}{
				"max": domain.MaxNominees,
			})
		}
	}

	ids := uniqueIDs(update.ReferencedIDs())
	if len(ids) == 0 {
		return nil
	}

	existing, err := s.repos.Houseguest.CountExisting(ctx, ids)
	if err != nil {
		return errors.NewInternalError("Failed to validate houseguests", err)
	}
	if existing != len(ids) {
		return errors.NewValidationError("Unknown houseguest id", nil)
	}
	return nil
}

// UpdateHouseguest edits the admin fields of a houseguest
func (s *adminService) UpdateHouseguest(ctx context.Context, id string, update domain.HouseguestUpdate) (*domain.Houseguest, error) {
	hg, err := s.repos.Houseguest.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load houseguest", err)
	}
	if hg == nil {
		return nil, errors.NewNotFoundError("Houseguest not found")
	}

	if err := applyHouseguestUpdate(hg, &update); err != nil {
		return nil, err
	}

	if err := s.repos.Houseguest.Update(ctx, hg); err != nil {
		return nil, errors.NewInternalError("Failed to update houseguest", err)
	}

	if err := s.RecomputeStats(ctx); err != nil {
		return nil, err
	}

	updated, err := s.repos.Houseguest.GetByID(ctx, id)
	if err != nil || updated == nil {
		return hg, nil
	}

	s.logger.WithField("houseguest_id", id).Info("Houseguest updated")
	return updated, nil
}

func applyHouseguestUpdate(hg *domain.Houseguest, u *domain.HouseguestUpdate) error {
	if u.Bio.Set {
		hg.Bio = u.Bio.Value
	}
	if u.PhotoURL.Set {
		hg.PhotoURL = u.PhotoURL.Value
	}

	if u.Status.Set && !u.Status.Null {
		if !u.Status.Value.Valid() {
			return errors.NewValidationError("Invalid status", map[string]interface{}{
				"allowed": []domain.HouseguestStatus{domain.StatusIn, domain.StatusEvicted},
			})
		}
		hg.Status = u.Status.Value
		if hg.Status == domain.StatusIn && !u.EvictionWeek.Set {
			hg.Eviction = nil
		}
	}

	if u.EvictionWeek.Set {
		if u.EvictionWeek.Null {
			hg.Eviction = nil
		} else {
			if u.EvictionWeek.Value < 1 {
				return errors.NewValidationError("Invalid eviction week", nil)
			}
			if hg.Eviction == nil {
				hg.Eviction = &domain.Eviction{}
			}
			hg.Eviction.Week = u.EvictionWeek.Value
			if !u.Status.Set {
				hg.Status = domain.StatusEvicted
			}
		}
	}
	if u.EvictionVote.Set && hg.Eviction != nil {
		hg.Eviction.Vote = u.EvictionVote.Value
	}

	if u.FinalPlacement.Set {
		if u.FinalPlacement.Null || u.FinalPlacement.Value == "" {
			hg.FinalPlacement = nil
		} else {
			if !u.FinalPlacement.Value.Valid() {
				return errors.NewValidationError("Invalid final placement", map[string]interface{}{
					"allowed": []domain.FinalPlacement{domain.PlacementWinner, domain.PlacementRunnerUp},
				})
			}
			p := u.FinalPlacement.Value
			hg.FinalPlacement = &p
		}
	}
	return nil
}

// SeedHouseguests upserts the season roster and returns the full list
func (s *adminService) SeedHouseguests(ctx context.Context) ([]*domain.Houseguest, error) {
	n, err := s.repos.Houseguest.UpsertBySlug(ctx, domain.SeasonRoster)
	if err != nil {
		return nil, errors.NewInternalError("Failed to seed houseguests", err)
	}

	houseguests, err := s.repos.Houseguest.List(ctx)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load houseguests", err)
	}

	s.cache.InvalidateLeague(ctx)
	s.logger.WithField("seeded", n).Info("Houseguests seeded")
	return houseguests, nil
}

// Promote grants admin to the user with email
func (s *adminService) Promote(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.NewValidationError("Email is required", nil)
	}

	user, err := s.repos.User.SetAdmin(ctx, email, true)
	if err != nil {
		return nil, errors.NewInternalError("Failed to promote user", err)
	}
	if user == nil {
		return nil, errors.NewNotFoundError("User not found")
	}

	s.logger.WithField("user_id", user.ID).Info("User promoted to admin")
	return user, nil
}

// RecomputeStats derives wins, nominations and evictions from every week,
// stores them and drops cached standings.
func (s *adminService) RecomputeStats(ctx context.Context) error {
	return s.recomputeStats(ctx)
}

// recomputeStats also resets evictions a week update has taken back
func (s *adminService) recomputeStats(ctx context.Context, released ...domain.EvictionRef) error {
	houseguests, err := s.repos.Houseguest.List(ctx)
	if err != nil {
		return errors.NewInternalError("Failed to load houseguests", err)
	}
	weeks, err := s.repos.Week.List(ctx, false)
	if err != nil {
		return errors.NewInternalError("Failed to load weeks", err)
	}

	stats := scoring.DeriveStats(houseguests, weeks, released...)
	if err := s.repos.Houseguest.ApplyStats(ctx, stats); err != nil {
		return errors.NewInternalError("Failed to store houseguest stats", err)
	}

	s.cache.InvalidateLeague(ctx)
	s.logger.WithFields(map[string]interface{}{
		"houseguests": len(houseguests),
		"weeks":       len(weeks),
	}).Debug("Houseguest stats recomputed")
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
