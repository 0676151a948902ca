// FilePath: internal/repository/memory/memory.store.go
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/varroawatch/hub/internal/errors"
	"github.com/varroawatch/hub/internal/models"
	"github.com/varroawatch/hub/internal/repository"
)

type hiveKey struct {
	userID string
	hiveID string
}

type imageKey struct {
	userID  string
	hiveID  string
	imageID string
}

type state struct {
	mu      sync.Mutex
	users   map[string]models.User
	hives   map[hiveKey]models.Hive
	images  map[imageKey]models.Image
	reports map[string]models.Report
}

type snapshot struct {
	users   map[string]models.User
	hives   map[hiveKey]models.Hive
	images  map[imageKey]models.Image
	reports map[string]models.Report
}

func (s *state) snapshot() snapshot {
	snap := snapshot{
		users:   make(map[string]models.User, len(s.users)),
		hives:   make(map[hiveKey]models.Hive, len(s.hives)),
		images:  make(map[imageKey]models.Image, len(s.images)),
		reports: make(map[string]models.Report, len(s.reports)),
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.hives {
		snap.hives[k] = v
	}
	for k, v := range s.images {
		snap.images[k] = v
	}
	for k, v := range s.reports {
		snap.reports[k] = v
	}
	return snap
}

func (s *state) restore(snap snapshot) {
	s.users = snap.users
	s.hives = snap.hives
	s.images = snap.images
	s.reports = snap.reports
}

// Store is an in-process repository.Store. Transactions are serializable:
// WithTx holds the store lock for the whole callback and restores the
// previous contents when the callback fails.
type Store struct {
	st   *state
	inTx bool
}

func NewStore() *Store {
	return &Store{st: &state{
		users:   make(map[string]models.User),
		hives:   make(map[hiveKey]models.Hive),
		images:  make(map[imageKey]models.Image),
		reports: make(map[string]models.Report),
	}}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.st.mu.Lock()
	return s.st.mu.Unlock
}

func (s *Store) Users() repository.UserRepository     { return &userRepo{s} }
func (s *Store) Hives() repository.HiveRepository     { return &hiveRepo{s} }
func (s *Store) Images() repository.ImageRepository   { return &imageRepo{s} }
func (s *Store) Reports() repository.ReportRepository { return &reportRepo{s} }

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return errors.NewDatabaseError("failed to begin transaction", err)
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	snap := s.st.snapshot()
	if err := fn(&Store{st: s.st, inTx: true}); err != nil {
		s.st.restore(snap)
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	defer r.s.lock()()
	if _, ok := r.s.st.users[user.ID]; ok {
		return errors.NewConflictError("user already exists", repository.ErrDuplicate)
	}
	for _, u := range r.s.st.users {
		if u.Email == user.Email {
			return errors.NewConflictError("user already exists", repository.ErrDuplicate)
		}
	}
	r.s.st.users[user.ID] = *user
	return nil
}

func (r *userRepo) Get(ctx context.Context, id string) (*models.User, error) {
	defer r.s.lock()()
	u, ok := r.s.st.users[id]
	if !ok {
		return nil, errors.NewNotFoundError("user not found", repository.ErrNotFound)
	}
	return &u, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, errors.NewNotFoundError("user not found", repository.ErrNotFound)
}

func (r *userRepo) List(ctx context.Context) ([]*models.User, error) {
	defer r.s.lock()()
	users := make([]*models.User, 0, len(r.s.st.users))
	for _, u := range r.s.st.users {
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *userRepo) UpdateLogin(ctx context.Context, id, pushToken string, at time.Time) error {
	defer r.s.lock()()
	u, ok := r.s.st.users[id]
	if !ok {
		return errors.NewNotFoundError("user not found", repository.ErrNotFound)
	}
	u.PushToken = &pushToken
	u.LastLogin = &at
	r.s.st.users[id] = u
	return nil
}

type hiveRepo struct{ s *Store }

func (r *hiveRepo) Create(ctx context.Context, hive *models.Hive) error {
	defer r.s.lock()()
	if _, ok := r.s.st.users[hive.UserID]; !ok {
		return errors.NewNotFoundError("user not found", repository.ErrNotFound)
	}
	key := hiveKey{hive.UserID, hive.ID}
	if _, ok := r.s.st.hives[key]; ok {
		return errors.NewConflictError("hive already exists", repository.ErrDuplicate)
	}
	r.s.st.hives[key] = *hive
	return nil
}

func (r *hiveRepo) Get(ctx context.Context, userID, hiveID string) (*models.Hive, error) {
	defer r.s.lock()()
	h, ok := r.s.st.hives[hiveKey{userID, hiveID}]
	if !ok {
		return nil, errors.NewNotFoundError("hive not found", repository.ErrNotFound)
	}
	return &h, nil
}

// GetForUpdate is Get; a transaction already holds the store lock.
func (r *hiveRepo) GetForUpdate(ctx context.Context, userID, hiveID string) (*models.Hive, error) {
	return r.Get(ctx, userID, hiveID)
}

func (r *hiveRepo) ListByUser(ctx context.Context, userID string) ([]*models.Hive, error) {
	return r.list(userID, func(*models.Hive) bool { return true }), nil
}

func (r *hiveRepo) ListStale(ctx context.Context, userID string, cutoff time.Time) ([]*models.Hive, error) {
	return r.list(userID, func(h *models.Hive) bool { return h.IsStale(cutoff) }), nil
}

func (r *hiveRepo) list(userID string, keep func(*models.Hive) bool) []*models.Hive {
	defer r.s.lock()()
	hives := []*models.Hive{}
	for key, h := range r.s.st.hives {
		if key.userID != userID {
			continue
		}
		if keep(&h) {
			hives = append(hives, &h)
		}
	}
	sort.Slice(hives, func(i, j int) bool { return hives[i].ID < hives[j].ID })
	return hives
}

func (r *hiveRepo) Activate(ctx context.Context, userID, hiveID string, at time.Time) error {
	defer r.s.lock()()
	key := hiveKey{userID, hiveID}
	h, ok := r.s.st.hives[key]
	if !ok {
		return errors.NewNotFoundError("hive not found", repository.ErrNotFound)
	}
	h.Activate(at)
	r.s.st.hives[key] = h
	return nil
}

func (r *hiveRepo) DeactivateIfStale(ctx context.Context, userID, hiveID string, cutoff time.Time) (bool, error) {
	defer r.s.lock()()
	key := hiveKey{userID, hiveID}
	h, ok := r.s.st.hives[key]
	if !ok || !h.IsStale(cutoff) {
		return false, nil
	}
	h.IsActive = false
	r.s.st.hives[key] = h
	return true, nil
}

func (r *hiveRepo) UpdateDetectionState(ctx context.Context, hive *models.Hive) error {
	defer r.s.lock()()
	key := hiveKey{hive.UserID, hive.ID}
	h, ok := r.s.st.hives[key]
	if !ok {
		return errors.NewNotFoundError("hive not found", repository.ErrNotFound)
	}
	h.DetectionCount = hive.DetectionCount
	h.RiskLevel = hive.RiskLevel
	h.LastDetection = hive.LastDetection
	r.s.st.hives[key] = h
	return nil
}

type imageRepo struct{ s *Store }

func (r *imageRepo) Create(ctx context.Context, image *models.Image) error {
	defer r.s.lock()()
	if _, ok := r.s.st.hives[hiveKey{image.UserID, image.HiveID}]; !ok {
		return errors.NewNotFoundError("hive not found", repository.ErrNotFound)
	}
	key := imageKey{image.UserID, image.HiveID, image.ID}
	if _, ok := r.s.st.images[key]; ok {
		return errors.NewConflictError("image already exists", repository.ErrDuplicate)
	}
	r.s.st.images[key] = *image
	return nil
}

func (r *imageRepo) Get(ctx context.Context, userID, hiveID, imageID string) (*models.Image, error) {
	defer r.s.lock()()
	img, ok := r.s.st.images[imageKey{userID, hiveID, imageID}]
	if !ok {
		return nil, errors.NewNotFoundError("image not found", repository.ErrNotFound)
	}
	return &img, nil
}

func (r *imageRepo) ListByHive(ctx context.Context, userID, hiveID string) ([]*models.Image, error) {
	defer r.s.lock()()
	images := []*models.Image{}
	for key, img := range r.s.st.images {
		if key.userID != userID || key.hiveID != hiveID {
			continue
		}
		images = append(images, &img)
	}
	sort.Slice(images, func(i, j int) bool {
		if !images[i].CreatedAt.Equal(images[j].CreatedAt) {
			return images[i].CreatedAt.After(images[j].CreatedAt)
		}
		return images[i].ID > images[j].ID
	})
	return images, nil
}

func (r *imageRepo) Delete(ctx context.Context, userID, hiveID, imageID string) error {
	defer r.s.lock()()
	key := imageKey{userID, hiveID, imageID}
	if _, ok := r.s.st.images[key]; !ok {
		return errors.NewNotFoundError("image not found", repository.ErrNotFound)
	}
	delete(r.s.st.images, key)
	return nil
}

type reportRepo struct{ s *Store }

func (r *reportRepo) Create(ctx context.Context, report *models.Report) error {
	defer r.s.lock()()
	if _, ok := r.s.st.reports[report.ID]; ok {
		return errors.NewConflictError("report already exists", repository.ErrDuplicate)
	}
	r.s.st.reports[report.ID] = *report
	return nil
}

func (r *reportRepo) Get(ctx context.Context, id string) (*models.Report, error) {
	defer r.s.lock()()
	rep, ok := r.s.st.reports[id]
	if !ok {
		return nil, errors.NewNotFoundError("report not found", repository.ErrNotFound)
	}
	return &rep, nil
}

func (r *reportRepo) ListByHive(ctx context.Context, userID, hiveID string) ([]*models.Report, error) {
	defer r.s.lock()()
	reports := []*models.Report{}
	for _, rep := range r.s.st.reports {
		if rep.UserID != userID || rep.HiveID != hiveID {
			continue
		}
		reports = append(reports, &rep)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].ReportedAt.After(reports[j].ReportedAt) })
	return reports, nil
}
