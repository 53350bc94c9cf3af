package service

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"

	"bb-fantasy/internal/domain"
	"bb-fantasy/internal/repository"
	"bb-fantasy/internal/service/scoring"
	"bb-fantasy/pkg/errors"
	"bb-fantasy/pkg/logger"
	"bb-fantasy/pkg/redis"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// leagueService implements LeagueService
type leagueService struct {
	repos  *repository.Repositories
	cache  *CacheService
	scorer *scoring.Scorer
	logger *logger.Logger
}

// NewLeagueService creates a new league service
func NewLeagueService(repos *repository.Repositories, cache *CacheService, scorer *scoring.Scorer, logger *logger.Logger) LeagueService {
	return &leagueService{
		repos:  repos,
		cache:  cache,
		scorer: scorer,
		logger: logger,
	}
}

// snapshot is the roster and current week, the inputs of every score
type snapshot struct {
	houseguests []*domain.Houseguest
	roster      map[string]*domain.Houseguest
	currentWeek int
}

func (s *leagueService) loadSnapshot(ctx context.Context) (*snapshot, error) {
	houseguests, err := s.repos.Houseguest.List(ctx)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load houseguests", err)
	}
	currentWeek, err := s.repos.Week.CurrentWeek(ctx)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load current week", err)
	}
	return &snapshot{
		houseguests: houseguests,
		roster:      scoring.Roster(houseguests),
		currentWeek: currentWeek,
	}, nil
}

func (s *leagueService) withPoints(hg *domain.Houseguest, currentWeek int, breakdown bool) domain.HouseguestWithPoints {
	b := s.scorer.Breakdown(hg, currentWeek)
	out := domain.HouseguestWithPoints{Houseguest: *hg, Points: b.Total}
	if breakdown {
		out.Breakdown = &b
	}
	return out
}

// ListHouseguests returns every houseguest with points. A non-empty query
// keeps only fuzzy name matches, best match first.
func (s *leagueService) ListHouseguests(ctx context.Context, query string) ([]domain.HouseguestWithPoints, error) {
	all, err := getOrLoad(ctx, s.cache, s.keyHouseguestsAll(), redis.TTLHouseguests,
		func(ctx context.Context) ([]domain.HouseguestWithPoints, error) {
			snap, err := s.loadSnapshot(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]domain.HouseguestWithPoints, 0, len(snap.houseguests))
			for _, hg := range snap.houseguests {
				out = append(out, s.withPoints(hg, snap.currentWeek, false))
			}
			return out, nil
		})
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return all, nil
	}
	return searchHouseguests(all, query), nil
}

func searchHouseguests(all []domain.HouseguestWithPoints, query string) []domain.HouseguestWithPoints {
	names := make([]string, len(all))
	for i := range all {
		names[i] = all[i].FullName()
	}

	ranks := fuzzy.RankFindNormalizedFold(query, names)
	sort.Stable(ranks)

	out := make([]domain.HouseguestWithPoints, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, all[r.OriginalIndex])
	}
	return out
}

// GetHouseguest returns one houseguest with a points breakdown
func (s *leagueService) GetHouseguest(ctx context.Context, slug string) (*domain.HouseguestWithPoints, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, errors.NewValidationError("Slug is required", nil)
	}

	return getOrLoad(ctx, s.cache, s.keyHouseguest(slug), redis.TTLHouseguests,
		func(ctx context.Context) (*domain.HouseguestWithPoints, error) {
			hg, err := s.repos.Houseguest.GetBySlug(ctx, slug)
			if err != nil {
				return nil, errors.NewInternalError("Failed to load houseguest", err)
			}
			if hg == nil {
				return nil, errors.NewNotFoundError("Houseguest not found")
			}

			currentWeek, err := s.repos.Week.CurrentWeek(ctx)
			if err != nil {
				return nil, errors.NewInternalError("Failed to load current week", err)
			}

			out := s.withPoints(hg, currentWeek, true)
			return &out, nil
		})
}

// History returns all weeks
func (s *leagueService) History(ctx context.Context, desc bool) ([]*domain.Week, error) {
	order := "asc"
	if desc {
		order = "desc"
	}

	return getOrLoad(ctx, s.cache, s.keyHistory(order), redis.TTLHistory,
		func(ctx context.Context) ([]*domain.Week, error) {
			weeks, err := s.repos.Week.List(ctx, desc)
			if err != nil {
				return nil, errors.NewInternalError("Failed to load weeks", err)
			}
			return weeks, nil
		})
}

// Leaderboard returns ranked standings
func (s *leagueService) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	return getOrLoad(ctx, s.cache, s.keyLeaderboard(), redis.TTLLeaderboard,
		func(ctx context.Context) ([]domain.LeaderboardEntry, error) {
			snap, err := s.loadSnapshot(ctx)
			if err != nil {
				return nil, err
			}
			users, err := s.repos.User.ListWithPicks(ctx)
			if err != nil {
				return nil, errors.NewInternalError("Failed to load users", err)
			}

			entries := s.scorer.BuildLeaderboard(users, snap.roster, snap.currentWeek)
			s.logger.WithFields(map[string]interface{}{
				"entries":      len(entries),
				"current_week": snap.currentWeek,
			}).Debug("Leaderboard computed")
			return entries, nil
		})
}

// PublicProfile returns a user's team and totals
func (s *leagueService) PublicProfile(ctx context.Context, username string) (*domain.PublicProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.NewValidationError("Username is required", nil)
	}

	return getOrLoad(ctx, s.cache, s.keyUserProfile(username), redis.TTLUserProfile,
		func(ctx context.Context) (*domain.PublicProfile, error) {
			user, err := s.repos.User.GetByUsername(ctx, username)
			if err != nil {
				return nil, errors.NewInternalError("Failed to load user", err)
			}
			if user == nil {
				return nil, errors.NewNotFoundError("User not found")
			}

			pickIDs, err := s.repos.Pick.ListByUser(ctx, user.ID)
			if err != nil {
				return nil, errors.NewInternalError("Failed to load picks", err)
			}

			snap, err := s.loadSnapshot(ctx)
			if err != nil {
				return nil, err
			}

			profile := &domain.PublicProfile{
				Username:    user.Username,
				PhotoURL:    user.PhotoURL,
				Houseguests: make([]domain.HouseguestWithPoints, 0, len(pickIDs)),
			}
			for _, id := range pickIDs {
				hg, ok := snap.roster[id]
				if !ok {
					continue
				}
				profile.Houseguests = append(profile.Houseguests, s.withPoints(hg, snap.currentWeek, false))
			}
			sort.SliceStable(profile.Houseguests, func(i, j int) bool {
				return profile.Houseguests[i].Points > profile.Houseguests[j].Points
			})
			profile.TotalPoints, profile.RemainingCount = s.scorer.TeamTotals(pickIDs, snap.roster, snap.currentWeek)
			return profile, nil
		})
}

// Me returns the signed-in user with pick ids
func (s *leagueService) Me(ctx context.Context, userID string) (*domain.Me, error) {
	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load user", err)
	}
	if user == nil {
		return nil, errors.NewNotFoundError("User not found")
	}

	picks, err := s.repos.Pick.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load picks", err)
	}
	if picks == nil {
		picks = []string{}
	}

	return &domain.Me{User: *user, Picks: picks}, nil
}

// CompleteOnboarding sets username and photo. Both are required.
func (s *leagueService) CompleteOnboarding(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.User, error) {
	if update.PhotoURL == "" {
		return nil, errors.NewValidationError("Profile photo is required", map[string]interface{}{
			"field": "photo",
		})
	}
	return s.updateProfile(ctx, userID, update)
}

// UpdateProfile changes username and, when given, the photo
func (s *leagueService) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.User, error) {
	return s.updateProfile(ctx, userID, update)
}

func (s *leagueService) updateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.User, error) {
	update.Username = strings.TrimSpace(update.Username)
	if !domain.ValidUsername(update.Username) {
		return nil, errors.NewValidationError("Invalid username", map[string]interface{}{
			"field":     "username",
			"minLength": domain.UsernameMinLength,
			"maxLength": domain.UsernameMaxLength,
		})
	}

	taken, err := s.repos.User.UsernameTaken(ctx, update.Username, userID)
	if err != nil {
		return nil, errors.NewInternalError("Failed to check username", err)
	}
	if taken {
		return nil, errors.NewConflictError("Username already taken")
	}

	user, err := s.repos.User.UpdateProfile(ctx, userID, update)
	if err != nil {
		if stderrors.Is(err, repository.ErrConflict) {
			return nil, errors.NewConflictError("Username already taken")
		}
		return nil, errors.NewInternalError("Failed to update profile", err)
	}
	if user == nil {
		return nil, errors.NewNotFoundError("User not found")
	}

	s.cache.InvalidateLeague(ctx)
	s.logger.WithField("user_id", userID).Info("Profile updated")
	return user, nil
}

// SubmitPicks stores exactly PicksPerUser distinct, existing houseguests.
// Picks can be made once.
func (s *leagueService) SubmitPicks(ctx context.Context, userID string, houseguestIDs []string) error {
	if len(houseguestIDs) != domain.PicksPerUser {
		return errors.NewValidationError("You must pick exactly 5 houseguests", map[string]interface{}{
			"expected": domain.PicksPerUser,
			"received": len(houseguestIDs),
		})
	}

	seen := make(map[string]struct{}, len(houseguestIDs))
	for _, id := range houseguestIDs {
		if id == "" {
			return errors.NewValidationError("Houseguest id is required", nil)
		}
		if _, dup := seen[id]; dup {
			return errors.NewValidationError("Duplicate houseguest selections are not allowed", nil)
		}
		seen[id] = struct{}{}
	}

	existing, err := s.repos.Houseguest.CountExisting(ctx, houseguestIDs)
	if err != nil {
		return errors.NewInternalError("Failed to validate houseguests", err)
	}
	if existing != len(houseguestIDs) {
		return errors.NewValidationError("One or more houseguests do not exist", nil)
	}

	if err := s.repos.Pick.CreateForUser(ctx, userID, houseguestIDs); err != nil {
		switch {
		case stderrors.Is(err, repository.ErrConflict):
			return errors.NewConflictError("Picks already submitted")
		case stderrors.Is(err, repository.ErrInvalidReference):
			return errors.NewValidationError("One or more houseguests do not exist", nil)
		default:
			return errors.NewInternalError("Failed to save picks", err)
		}
	}

	s.cache.InvalidateLeague(ctx)
	s.logger.WithField("user_id", userID).Info("Picks submitted")
	return nil
}

// Key helpers return "" when caching is off; getOrLoad never reads them then.
func (s *leagueService) keyHouseguestsAll() string {
	if kb := s.cache.Keys(); kb != nil {
		return kb.KeyHouseguestsAll()
	}
	return ""
}

func (s *leagueService) keyHouseguest(slug string) string {
	if kb := s.cache.Keys(); kb != nil {
		return kb.KeyHouseguestBySlug(slug)
	}
	return ""
}

func (s *leagueService) keyHistory(order string) string {
	if kb := s.cache.Keys(); kb != nil {
		return kb.KeyHistory(order)
	}
	return ""
}

func (s *leagueService) keyLeaderboard() string {
	if kb := s.cache.Keys(); kb != nil {
		return kb.KeyLeaderboard()
	}
	return ""
}

func (s *leagueService) keyUserProfile(username string) string {
	if kb := s.cache.Keys(); kb != nil {
		return kb.KeyUserProfile(username)
	}
	return ""
}
