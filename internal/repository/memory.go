package repository

import (
	"context"
	"sync"
	"time"

	"github.com/yoday/yoday/internal/models"
)

// NewMemoryStores builds process-local stores. They back the test suites and
// STORAGE_DRIVER=memory development runs.
func NewMemoryStores() Stores {
	return Stores{
		Users:    NewMemoryUserStore(),
		Admins:   NewMemoryAdminStore(),
		Profiles: NewMemoryProfileStore(),
		OTP:      NewMemoryOTPLedger(),
	}
}

type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]models.User)}
}

func (s *MemoryUserStore) FindByMobile(_ context.Context, mobileNumber string) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.MobileNumber == mobileNumber })
}

func (s *MemoryUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.ID == id })
}

func (s *MemoryUserStore) FindByFacebookID(_ context.Context, facebookID string) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.FacebookID == facebookID })
}

func (s *MemoryUserStore) find(match func(models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if !u.IsDeleted && match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.IsDeleted {
			continue
		}
		if user.MobileNumber != "" && u.MobileNumber == user.MobileNumber {
			return ErrAlreadyExists
		}
		if user.FacebookID != "" && u.FacebookID == user.FacebookID {
			return ErrAlreadyExists
		}
	}
	if _, exists := s.users[user.ID]; exists {
		return ErrAlreadyExists
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.ModifiedAt = now
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryUserStore) UpdateFacebookLogin(_ context.Context, facebookID, token string, device models.DeviceInfo) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.IsDeleted || u.FacebookID != facebookID {
			continue
		}
		u.FacebookToken = token
		u.Device = device
		u.ModifiedAt = time.Now().UTC()
		s.users[id] = u
		updated := u
		return &updated, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) SoftDelete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.IsDeleted {
		return ErrNotFound
	}
	u.IsDeleted = true
	u.Status = models.UserStatusDeleted
	u.MobileNumber = models.DeletedHandle(u.ID, u.MobileNumber)
	u.ModifiedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

type MemoryAdminStore struct {
	mu     sync.RWMutex
	admins map[string]models.Admin
}

func NewMemoryAdminStore() *MemoryAdminStore {
	return &MemoryAdminStore{admins: make(map[string]models.Admin)}
}

// Put provisions an admin. Admins have no self-service create path.
func (s *MemoryAdminStore) Put(admin models.Admin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[admin.Email] = admin
}

func (s *MemoryAdminStore) FindByEmail(_ context.Context, email string) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.admins[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]models.Profile)}
}

func (s *MemoryProfileStore) FindByID(_ context.Context, id string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryProfileStore) Create(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[profile.ID]; exists {
		return ErrAlreadyExists
	}
	profile.CreatedAt = time.Now().UTC()
	s.profiles[profile.ID] = *profile
	return nil
}

type otpKey struct {
	transactionID string
	mobileNumber  string
}

type MemoryOTPLedger struct {
	mu   sync.Mutex
	rows map[otpKey]models.OTPChallenge
}

func NewMemoryOTPLedger() *MemoryOTPLedger {
	return &MemoryOTPLedger{rows: make(map[otpKey]models.OTPChallenge)}
}

func (l *MemoryOTPLedger) Insert(_ context.Context, challenge *models.OTPChallenge) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := otpKey{challenge.TransactionID, challenge.MobileNumber}
	if _, exists := l.rows[key]; exists {
		return ErrAlreadyExists
	}
	l.rows[key] = *challenge
	return nil
}

func (l *MemoryOTPLedger) FindPending(_ context.Context, purpose, transactionID, mobileNumber string) (*models.OTPChallenge, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[otpKey{transactionID, mobileNumber}]
	if !ok || row.Purpose != purpose || row.Status != models.OTPStatusPending {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (l *MemoryOTPLedger) MarkVerified(_ context.Context, purpose, transactionID, mobileNumber string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := otpKey{transactionID, mobileNumber}
	row, ok := l.rows[key]
	if !ok || row.Purpose != purpose || row.Status != models.OTPStatusPending {
		return ErrNotPending
	}
	row.Status = models.OTPStatusVerified
	l.rows[key] = row
	return nil
}

// Get returns a ledger row regardless of status.
func (l *MemoryOTPLedger) Get(transactionID, mobileNumber string) (models.OTPChallenge, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[otpKey{transactionID, mobileNumber}]
	return row, ok
}

// Len reports how many challenges have been issued.
func (l *MemoryOTPLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

// MemoryAdminSessionStore drops sessions lazily once they are past
// ExpiresAt.
type MemoryAdminSessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.AdminSession
}

func NewMemoryAdminSessionStore() *MemoryAdminSessionStore {
	return &MemoryAdminSessionStore{sessions: make(map[string]models.AdminSession)}
}

func (s *MemoryAdminSessionStore) Store(_ context.Context, session *models.AdminSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *MemoryAdminSessionStore) Get(_ context.Context, id string) (*models.AdminSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !time.Now().Before(session.ExpiresAt) {
		delete(s.sessions, id)
		return nil, ErrNotFound
	}
	return &session, nil
}

func (s *MemoryAdminSessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
