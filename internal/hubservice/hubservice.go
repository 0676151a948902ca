package hubservice

import (
	"regexp"
	"time"

	"github.com/varroawatch/hub/internal/auth"
	"github.com/varroawatch/hub/internal/cleanup"
	"github.com/varroawatch/hub/internal/config"
	"github.com/varroawatch/hub/internal/errors"
	"github.com/varroawatch/hub/internal/notification"
	"github.com/varroawatch/hub/internal/repository"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Observer is told about detection outcomes. The monitoring service
// implements it.
type Observer interface {
	DetectionRecorded(riskLevel string)
	FalseDetectionReported()
}

type noopObserver struct{}

func (noopObserver) DetectionRecorded(string) {}
func (noopObserver) FalseDetectionReported()  {}

// Options tune a HubService. Zero values select the defaults.
type Options struct {
	Hasher   *auth.PasswordHasher
	Display  config.DisplayConfig
	Observer Observer
	Now      func() time.Time
}

// HubService contains all repositories and service-wide dependencies
type HubService struct {
	Store    repository.Store
	Blobs    repository.BlobStore
	Notifier *notification.Dispatcher
	Cleanup  *cleanup.CleanupService

	hasher     *auth.PasswordHasher
	location   *time.Location
	timeFormat string
	observer   Observer
	now        func() time.Time
}

// New creates a new HubService instance
func New(
	store repository.Store,
	blobs repository.BlobStore,
	notifier *notification.Dispatcher,
	opts Options,
) *HubService {
	svc := &HubService{
		Store:      store,
		Blobs:      blobs,
		Notifier:   notifier,
		hasher:     opts.Hasher,
		location:   opts.Display.Location(),
		timeFormat: opts.Display.TimeFormat,
		observer:   opts.Observer,
		now:        opts.Now,
	}
	if svc.hasher == nil {
		svc.hasher = auth.NewPasswordHasher(auth.DefaultParams)
	}
	if svc.timeFormat == "" {
		svc.timeFormat = "02.01.2006 15:04:05"
	}
	if svc.observer == nil {
		svc.observer = noopObserver{}
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	svc.Cleanup = cleanup.New(store, blobs)
	return svc
}

// Validate checks if all required dependencies are initialized
func (s *HubService) Validate() error {
	if s.Store == nil {
		return ErrMissingRepository("store")
	}
	if s.Blobs == nil {
		return ErrMissingRepository("blobs")
	}
	if s.Notifier == nil {
		return ErrMissingRepository("notifier")
	}
	return nil
}

func ErrMissingRepository(name string) error {
	return errors.NewInternalError("missing repository: "+name, nil)
}

// Now is the service clock in UTC.
func (s *HubService) Now() time.Time {
	return s.now().UTC()
}

func (s *HubService) formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(s.location).Format(s.timeFormat)
}

func validateIDs(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		name, value := pairs[i], pairs[i+1]
		if value == "" {
			return errors.NewValidationError(name+" is required", nil)
		}
		if !idPattern.MatchString(value) {
			return errors.NewValidationError(name+" is malformed", nil)
		}
	}
	return nil
}
