package repositories

import (
	"sync"
	"time"

	"uru_backend/internal/models"

	"github.com/google/uuid"
)

// MemoryStore — потокобезопасная реализация Store в памяти для тестов и
// локальной разработки без Postgres. Семантика повторяет GormStore:
// те же sentinel-ошибки, те же уникальные ограничения.
type MemoryStore struct {
	mu      sync.Mutex
	users   map[string]*models.User               // по ID
	pending map[string]*models.PendingEmailChange // по ID

	// locked=true у представления, выданного внутрь Transaction:
	// такой Store работает под уже взятым mu и не берет его повторно
	locked bool
	parent *MemoryStore
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*models.User),
		pending: make(map[string]*models.PendingEmailChange),
	}
}

func (s *MemoryStore) Users() UserRepository {
	return &memoryUserRepository{store: s}
}

func (s *MemoryStore) PendingEmailChanges() PendingEmailChangeRepository {
	return &memoryPendingRepository{store: s}
}

// Transaction выполняет fn под общим мьютексом. При ошибке состояние
// откатывается на снимок, сделанный перед вызовом.
func (s *MemoryStore) Transaction(fn func(Store) error) error {
	root := s.root()
	if s.locked {
		// вложенная транзакция: уже под mu, снимок не нужен
		return fn(s)
	}

	root.mu.Lock()
	defer root.mu.Unlock()

	usersSnap := make(map[string]*models.User, len(root.users))
	for id, u := range root.users {
		clone := *u
		usersSnap[id] = &clone
	}
	pendingSnap := make(map[string]*models.PendingEmailChange, len(root.pending))
	for id, p := range root.pending {
		clone := *p
		pendingSnap[id] = &clone
	}

	view := &MemoryStore{users: root.users, pending: root.pending, locked: true, parent: root}
	if err := fn(view); err != nil {
		root.users = usersSnap
		root.pending = pendingSnap
		return err
	}
	return nil
}

func (s *MemoryStore) root() *MemoryStore {
	if s.parent != nil {
		return s.parent
	}
	return s
}

// lock берет mu, если этот Store не является транзакционным
// представлением
func (s *MemoryStore) lock() func() {
	if s.locked {
		return func() {}
	}
	root := s.root()
	root.mu.Lock()
	return root.mu.Unlock
}

func (s *MemoryStore) data() (map[string]*models.User, map[string]*models.PendingEmailChange) {
	root := s.root()
	return root.users, root.pending
}

// --- UserRepository ---

type memoryUserRepository struct {
	store *MemoryStore
}

func (r *memoryUserRepository) Create(user *models.User) error {
	unlock := r.store.lock()
	defer unlock()
	users, _ := r.store.data()

	for _, existing := range users {
		if existing.Email == user.Email {
			return ErrUserAlreadyExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	clone := *user
	users[user.ID] = &clone
	return nil
}

func (r *memoryUserRepository) FindByID(id string) (*models.User, error) {
	unlock := r.store.lock()
	defer unlock()
	users, _ := r.store.data()

	u, ok := users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memoryUserRepository) FindByEmail(email string) (*models.User, error) {
	unlock := r.store.lock()
	defer unlock()
	users, _ := r.store.data()

	for _, u := range users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memoryUserRepository) Update(user *models.User) error {
	unlock := r.store.lock()
	defer unlock()
	users, _ := r.store.data()

	if _, ok := users[user.ID]; !ok {
		return ErrUserNotFound
	}
	user.UpdatedAt = time.Now()
	clone := *user
	users[user.ID] = &clone
	return nil
}

func (r *memoryUserRepository) SetPassword(userID, hash string, changedAt time.Time) error {
	unlock := r.store.lock()
	defer unlock()
	users, _ := r.store.data()

	u, ok := users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	at := changedAt
	u.LastPasswordChange = &at
	u.UpdatedAt = time.Now()
	return nil
}

func (r *memoryUserRepository) MarkEmailVerified(userID string) error {
	unlock := r.store.lock()
	defer unlock()
	users, _ := r.store.data()

	u, ok := users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.IsEmailVerified = true
	u.UpdatedAt = time.Now()
	return nil
}

func (r *memoryUserRepository) UpdateEmail(userID, newEmail string) error {
	unlock := r.store.lock()
	defer unlock()
	users, _ := r.store.data()

	u, ok := users[userID]
	if !ok {
		return ErrUserNotFound
	}
	for id, other := range users {
		if id != userID && other.Email == newEmail {
			return ErrUserAlreadyExists
		}
	}
	u.Email = newEmail
	u.UpdatedAt = time.Now()
	return nil
}

func (r *memoryUserRepository) Delete(userID string) error {
	unlock := r.store.lock()
	defer unlock()
	users, pending := r.store.data()

	if _, ok := users[userID]; !ok {
		return ErrUserNotFound
	}
	delete(users, userID)
	// каскад: заявка на смену email уходит вместе с пользователем
	for id, p := range pending {
		if p.UserID == userID {
			delete(pending, id)
		}
	}
	return nil
}

func (r *memoryUserRepository) ExistsEmail(email string) (bool, error) {
	unlock := r.store.lock()
	defer unlock()
	users, _ := r.store.data()

	for _, u := range users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryUserRepository) ExistsVerifiedEmail(email, excludeUserID string) (bool, error) {
	unlock := r.store.lock()
	defer unlock()
	users, _ := r.store.data()

	for id, u := range users {
		if id != excludeUserID && u.Email == email && u.IsEmailVerified {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryUserRepository) DeleteUnverifiedByEmail(email, excludeUserID string) (int64, error) {
	unlock := r.store.lock()
	defer unlock()
	users, pending := r.store.data()

	var removed int64
	for id, u := range users {
		if id != excludeUserID && u.Email == email && !u.IsEmailVerified {
			delete(users, id)
			for pid, p := range pending {
				if p.UserID == id {
					delete(pending, pid)
				}
			}
			removed++
		}
	}
	return removed, nil
}

// --- PendingEmailChangeRepository ---

type memoryPendingRepository struct {
	store *MemoryStore
}

func (r *memoryPendingRepository) Create(p *models.PendingEmailChange) error {
	unlock := r.store.lock()
	defer unlock()
	_, pending := r.store.data()

	for _, existing := range pending {
		if existing.UserID == p.UserID || existing.Token == p.Token {
			return ErrPendingEmailTaken
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	clone := *p
	pending[p.ID] = &clone
	return nil
}

func (r *memoryPendingRepository) DeleteByUserID(userID string) error {
	unlock := r.store.lock()
	defer unlock()
	_, pending := r.store.data()

	for id, p := range pending {
		if p.UserID == userID {
			delete(pending, id)
		}
	}
	return nil
}

func (r *memoryPendingRepository) ExistsLiveForEmail(email, excludeUserID string, now time.Time) (bool, error) {
	unlock := r.store.lock()
	defer unlock()
	_, pending := r.store.data()

	for _, p := range pending {
		if p.UserID != excludeUserID && p.NewEmail == email && !p.IsExpired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryPendingRepository) FindLiveByToken(token string, now time.Time) (*models.PendingEmailChange, error) {
	unlock := r.store.lock()
	defer unlock()
	_, pending := r.store.data()

	for _, p := range pending {
		if p.Token == token && !p.IsExpired(now) {
			clone := *p
			return &clone, nil
		}
	}
	return nil, ErrPendingChangeNotFound
}

func (r *memoryPendingRepository) Delete(id string) error {
	unlock := r.store.lock()
	defer unlock()
	_, pending := r.store.data()

	if _, ok := pending[id]; !ok {
		return ErrPendingChangeNotFound
	}
	delete(pending, id)
	return nil
}

func (r *memoryPendingRepository) DeleteExpired(now time.Time) (int64, error) {
	unlock := r.store.lock()
	defer unlock()
	_, pending := r.store.data()

	var removed int64
	for id, p := range pending {
		if p.IsExpired(now) {
			delete(pending, id)
			removed++
		}
	}
	return removed, nil
}
