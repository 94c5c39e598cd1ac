package memory

import (
	"context"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"salesdesk/backend/internal/domain"
	"salesdesk/backend/internal/sale"
	"salesdesk/backend/internal/store"
)

// Store is an in-memory Repository used by tests and as the fallback when no
// DATABASE_URL is configured. Sales are held as snapshots so callers never
// share aggregate instances with the store.
type Store struct {
	mu              sync.RWMutex
	salesByID       map[uuid.UUID]sale.Snapshot
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		salesByID:       make(map[uuid.UUID]sale.Snapshot),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store pre-loaded with dev/demo auth accounts.
func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()
	return s
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_OPERATOR_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	operatorPwd := envOr("SEED_OPERATOR_PASSWORD", "operator123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_OPERATOR_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_OPERATOR_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"operator", operatorPwd, domain.RoleOperator},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) InsertSale(_ context.Context, aggregate *sale.Sale) error {
	snap := aggregate.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.salesByID[snap.ID]; exists {
		return store.ErrConflict
	}
	s.salesByID[snap.ID] = snap
	return nil
}

func (s *Store) GetSale(_ context.Context, id uuid.UUID) (*sale.Sale, error) {
	s.mu.RLock()
	snap, ok := s.salesByID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return sale.FromSnapshot(cloneSnapshot(snap)), nil
}

func (s *Store) ListSales(_ context.Context, offset int, limit int) ([]*sale.Sale, int64, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	s.mu.RLock()
	snaps := make([]sale.Snapshot, 0, len(s.salesByID))
	for _, snap := range s.salesByID {
		snaps = append(snaps, cloneSnapshot(snap))
	}
	s.mu.RUnlock()

	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].SaleDate.Equal(snaps[j].SaleDate) {
			return snaps[i].SaleDate.After(snaps[j].SaleDate)
		}
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})

	total := int64(len(snaps))
	if offset >= len(snaps) {
		return []*sale.Sale{}, total, nil
	}
	end := offset + limit
	if end > len(snaps) {
		end = len(snaps)
	}

	page := make([]*sale.Sale, 0, end-offset)
	for _, snap := range snaps[offset:end] {
		page = append(page, sale.FromSnapshot(snap))
	}
	return page, total, nil
}

func (s *Store) UpdateSale(_ context.Context, aggregate *sale.Sale) error {
	snap := aggregate.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.salesByID[snap.ID]; !exists {
		return store.ErrNotFound
	}
	s.salesByID[snap.ID] = snap
	return nil
}

func (s *Store) DeleteSale(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.salesByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.salesByID, id)
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return store.ErrConflict
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneSnapshot(snap sale.Snapshot) sale.Snapshot {
	items := make([]sale.ItemSnapshot, len(snap.Items))
	copy(items, snap.Items)
	snap.Items = items
	return snap
}
