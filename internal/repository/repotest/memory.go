// Package repotest provides in-memory repositories for service and handler tests.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bb-fantasy/internal/domain"
	"bb-fantasy/internal/repository"

	"github.com/google/uuid"
)

// Store holds all in-memory tables behind one lock
type Store struct {
	mu          sync.Mutex
	houseguests map[string]*domain.Houseguest
	weeks       map[int]*domain.Week
	users       map[string]*domain.User
	picks       map[string][]string
	sessions    map[string]*domain.Session
	tokens      map[string]*domain.VerificationToken

	// Err, when set, is returned by every call
	Err error
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{
		houseguests: make(map[string]*domain.Houseguest),
		weeks:       make(map[int]*domain.Week),
		users:       make(map[string]*domain.User),
		picks:       make(map[string][]string),
		sessions:    make(map[string]*domain.Session),
		tokens:      make(map[string]*domain.VerificationToken),
	}
}

// Repositories exposes the store through the repository interfaces
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Houseguest:        (*houseguestRepo)(s),
		Week:              (*weekRepo)(s),
		User:              (*userRepo)(s),
		Pick:              (*pickRepo)(s),
		Session:           (*sessionRepo)(s),
		VerificationToken: (*tokenRepo)(s),
	}
}

// AddHouseguest inserts a houseguest, filling id and empty lists
func (s *Store) AddHouseguest(hg *domain.Houseguest) *domain.Houseguest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hg.ID == "" {
		hg.ID = uuid.NewString()
	}
	if hg.Status == "" {
		hg.Status = domain.StatusIn
	}
	if hg.Slug == "" {
		hg.Slug = strings.ToLower(hg.FirstName + "-" + hg.LastName)
	}
	normalizeLists(hg)
	s.houseguests[hg.ID] = hg
	return hg
}

// AddUser inserts a user
func (s *Store) AddUser(u *domain.User) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = u
	return u
}

// AddWeek inserts a week
func (s *Store) AddWeek(w *domain.Week) *domain.Week {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Nominees == nil {
		w.Nominees = []string{}
	}
	s.weeks[w.Number] = w
	return w
}

// SetPicks stores picks directly
func (s *Store) SetPicks(userID string, ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.picks[userID] = append([]string(nil), ids...)
}

// Session returns a stored session
func (s *Store) Session(token string) *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[token]
}

// TokenCount returns how many verification tokens are stored
func (s *Store) TokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

func normalizeLists(hg *domain.Houseguest) {
	if hg.OnTheBlockWeeks == nil {
		hg.OnTheBlockWeeks = []int{}
	}
	if hg.Wins.HOH == nil {
		hg.Wins.HOH = []int{}
	}
	if hg.Wins.POV == nil {
		hg.Wins.POV = []int{}
	}
	if hg.Wins.Blockbuster == nil {
		hg.Wins.Blockbuster = []int{}
	}
}

func cloneHouseguest(hg *domain.Houseguest) *domain.Houseguest {
	c := *hg
	c.OnTheBlockWeeks = append([]int{}, hg.OnTheBlockWeeks...)
	c.Wins.HOH = append([]int{}, hg.Wins.HOH...)
	c.Wins.POV = append([]int{}, hg.Wins.POV...)
	c.Wins.Blockbuster = append([]int{}, hg.Wins.Blockbuster...)
	if hg.Eviction != nil {
		ev := *hg.Eviction
		c.Eviction = &ev
	}
	if hg.FinalPlacement != nil {
		p := *hg.FinalPlacement
		c.FinalPlacement = &p
	}
	return &c
}

func cloneWeek(w *domain.Week) *domain.Week {
	c := *w
	c.Nominees = append([]string{}, w.Nominees...)
	return &c
}

type houseguestRepo Store

func (r *houseguestRepo) List(ctx context.Context) ([]*domain.Houseguest, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]*domain.Houseguest, 0, len(s.houseguests))
	for _, hg := range s.houseguests {
		out = append(out, cloneHouseguest(hg))
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].Status == domain.StatusEvicted, out[j].Status == domain.StatusEvicted
		if ai != aj {
			return !ai
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (r *houseguestRepo) GetByID(ctx context.Context, id string) (*domain.Houseguest, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if hg, ok := s.houseguests[id]; ok {
		return cloneHouseguest(hg), nil
	}
	return nil, nil
}

func (r *houseguestRepo) GetBySlug(ctx context.Context, slug string) (*domain.Houseguest, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, hg := range s.houseguests {
		if hg.Slug == slug {
			return cloneHouseguest(hg), nil
		}
	}
	return nil, nil
}

func (r *houseguestRepo) Update(ctx context.Context, hg *domain.Houseguest) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	existing, ok := s.houseguests[hg.ID]
	if !ok {
		return fmt.Errorf("houseguest %s not found", hg.ID)
	}
	existing.Bio = hg.Bio
	existing.PhotoURL = hg.PhotoURL
	existing.Status = hg.Status
	existing.Eviction = hg.Eviction
	existing.FinalPlacement = hg.FinalPlacement
	existing.UpdatedAt = time.Now()
	hg.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *houseguestRepo) UpsertBySlug(ctx context.Context, seeds []domain.SeedHouseguest) (int, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	count := 0
	for _, seed := range seeds {
		var found *domain.Houseguest
		for _, hg := range s.houseguests {
			if hg.Slug == seed.Slug {
				found = hg
				break
			}
		}
		if found == nil {
			found = &domain.Houseguest{ID: uuid.NewString(), Slug: seed.Slug, Status: domain.StatusIn, Bio: seed.Bio}
			normalizeLists(found)
			s.houseguests[found.ID] = found
		}
		found.FirstName = seed.FirstName
		found.LastName = seed.LastName
		if seed.PhotoURL != "" {
			found.PhotoURL = seed.PhotoURL
		}
		count++
	}
	return count, nil
}

func (r *houseguestRepo) ApplyStats(ctx context.Context, stats []domain.HouseguestStats) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, st := range stats {
		hg, ok := s.houseguests[st.HouseguestID]
		if !ok {
			continue
		}
		hg.Wins.HOH = st.HOHWins
		hg.Wins.POV = st.POVWins
		hg.Wins.Blockbuster = st.BlockbusterWins
		hg.OnTheBlockWeeks = st.OnTheBlockWeeks
		switch {
		case st.Eviction != nil:
			ev := *st.Eviction
			hg.Status = domain.StatusEvicted
			hg.Eviction = &ev
		case st.ClearEviction:
			hg.Status = domain.StatusIn
			hg.Eviction = nil
		}
	}
	return nil
}

func (r *houseguestRepo) CountExisting(ctx context.Context, ids []string) (int, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	count := 0
	for _, id := range ids {
		if _, ok := s.houseguests[id]; ok {
			count++
		}
	}
	return count, nil
}

type weekRepo Store

func (r *weekRepo) List(ctx context.Context, desc bool) ([]*domain.Week, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]*domain.Week, 0, len(s.weeks))
	for _, w := range s.weeks {
		out = append(out, cloneWeek(w))
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].Number > out[j].Number
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (r *weekRepo) GetByNumber(ctx context.Context, number int) (*domain.Week, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if w, ok := s.weeks[number]; ok {
		return cloneWeek(w), nil
	}
	return nil, nil
}

func (r *weekRepo) CreateNext(ctx context.Context) (*domain.Week, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	next := 1
	for n := range s.weeks {
		if n >= next {
			next = n + 1
		}
	}
	now := time.Now()
	w := &domain.Week{ID: uuid.NewString(), Number: next, Nominees: []string{}, CreatedAt: now, UpdatedAt: now}
	s.weeks[next] = w
	return cloneWeek(w), nil
}

func (r *weekRepo) Update(ctx context.Context, w *domain.Week) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.weeks[w.Number]; !ok {
		return fmt.Errorf("week %d not found", w.Number)
	}
	for _, id := range w.NominatedIDs() {
		if _, ok := s.houseguests[id]; !ok {
			return fmt.Errorf("failed to update week: %w", repository.ErrInvalidReference)
		}
	}
	w.UpdatedAt = time.Now()
	s.weeks[w.Number] = cloneWeek(w)
	return nil
}

func (r *weekRepo) CurrentWeek(ctx context.Context) (int, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	current := 0
	for n := range s.weeks {
		if n > current {
			current = n
		}
	}
	return current, nil
}

type userRepo Store

func (r *userRepo) find(match func(u *domain.User) bool) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id })
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username })
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, u := range s.users {
		if u.Email == user.Email || strings.EqualFold(u.Username, user.Username) {
			return fmt.Errorf("failed to create user: %w", repository.ErrConflict)
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	for _, other := range s.users {
		if other.ID != id && strings.EqualFold(other.Username, update.Username) {
			return nil, fmt.Errorf("failed to update profile: %w", repository.ErrConflict)
		}
	}
	u.Username = update.Username
	if update.PhotoURL != "" {
		u.PhotoURL = update.PhotoURL
	}
	u.UpdatedAt = time.Now()
	c := *u
	return &c, nil
}

func (r *userRepo) SetAdmin(ctx context.Context, email string, isAdmin bool) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			u.IsAdmin = isAdmin
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *userRepo) UsernameTaken(ctx context.Context, username, excludeUserID string) (bool, error) {
	u, err := r.find(func(u *domain.User) bool {
		return strings.EqualFold(u.Username, username) && u.ID != excludeUserID
	})
	return u != nil, err
}

func (r *userRepo) ListWithPicks(ctx context.Context) ([]domain.UserWithPicks, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]domain.UserWithPicks, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, domain.UserWithPicks{User: *u, PickIDs: append([]string{}, s.picks[u.ID]...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

type pickRepo Store

func (r *pickRepo) ListByUser(ctx context.Context, userID string) ([]string, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]string{}, s.picks[userID]...), nil
}

func (r *pickRepo) CreateForUser(ctx context.Context, userID string, houseguestIDs []string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if len(s.picks[userID]) > 0 {
		return fmt.Errorf("failed to create picks: %w", repository.ErrConflict)
	}
	for _, id := range houseguestIDs {
		if _, ok := s.houseguests[id]; !ok {
			return fmt.Errorf("failed to create picks: %w", repository.ErrInvalidReference)
		}
	}
	s.picks[userID] = append([]string(nil), houseguestIDs...)
	return nil
}

type sessionRepo Store

func (r *sessionRepo) Create(ctx context.Context, session *domain.Session) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	session.CreatedAt = time.Now()
	c := *session
	s.sessions[session.Token] = &c
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, token string) (*domain.Session, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if session, ok := s.sessions[token]; ok {
		c := *session
		return &c, nil
	}
	return nil, nil
}

func (r *sessionRepo) Delete(ctx context.Context, token string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.sessions, token)
	return nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for token, session := range s.sessions {
		if session.Expires.Before(now) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

type tokenRepo Store

func (r *tokenRepo) Create(ctx context.Context, token *domain.VerificationToken) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	c := *token
	s.tokens[token.Token] = &c
	return nil
}

func (r *tokenRepo) Consume(ctx context.Context, token string) (*domain.VerificationToken, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	t, ok := s.tokens[token]
	if !ok {
		return nil, nil
	}
	delete(s.tokens, token)
	return t, nil
}

func (r *tokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for key, t := range s.tokens {
		if t.Expires.Before(now) {
			delete(s.tokens, key)
			n++
		}
	}
	return n, nil
}
