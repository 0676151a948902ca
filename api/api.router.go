// FilePath: api/api.router.go
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/varroawatch/hub/api/middleware"
	"github.com/varroawatch/hub/api/resources"
	"github.com/varroawatch/hub/internal/hubservice"
)

// APIPrefix is the version prefix of every API route.
const APIPrefix = "/v1"

// Options wire the router to its optional collaborators.
type Options struct {
	MaxBodyBytes   int64
	Observer       middleware.HTTPObserver
	MetricsPath    string
	MetricsHandler http.Handler
	// MediaDir is served under /media/ when set.
	MediaDir string
}

type Router struct {
	router    *mux.Router
	handler   http.Handler
	resources *resources.Resources
	opts      Options
}

func NewRouter(svc *hubservice.HubService, opts Options) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		resources: resources.NewResources(svc, resources.Config{MaxBodyBytes: opts.MaxBodyBytes}),
		opts:      opts,
	}

	r.setupRoutes()
	r.handler = middleware.RequestID(middleware.AccessLog(r.router))
	return r
}

func (r *Router) setupRoutes() {
	r.router.MethodNotAllowedHandler = http.HandlerFunc(resources.MethodNotAllowed)
	r.router.NotFoundHandler = http.HandlerFunc(resources.NotFound)
	if r.opts.Observer != nil {
		r.router.Use(middleware.Metrics(r.opts.Observer))
	}

	// Routes hang off the root router with their full path. Inside a
	// subrouter the shared prefix matcher clears a method mismatch found on
	// an earlier route, turning 405s into 404s.
	v1 := func(path string) string { return APIPrefix + path }

	r.router.HandleFunc(v1("/health"), r.resources.Health.HealthCheck).Methods(http.MethodGet)

	// Hives
	r.router.HandleFunc(v1("/activateHive"), r.resources.Hives.ActivateHive).Methods(http.MethodPost)
	r.router.HandleFunc(v1("/getUserHives"), r.resources.Hives.ListHives).Methods(http.MethodGet)
	r.router.HandleFunc(v1("/clearHiveImages"), r.resources.Hives.ClearHiveImages).Methods(http.MethodPost)

	// Images
	r.router.HandleFunc(v1("/saveImage"), r.resources.Images.SaveImage).Methods(http.MethodPost)
	r.router.HandleFunc(v1("/getHiveImages"), r.resources.Images.ListImages).Methods(http.MethodGet)
	r.router.HandleFunc(v1("/reportFalseDetection"), r.resources.Images.ReportFalseDetection).Methods(http.MethodPost)

	// Users
	r.router.HandleFunc(v1("/loginUser"), r.resources.Users.Login).Methods(http.MethodPost)

	if r.opts.MetricsHandler != nil {
		path := r.opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.router.Handle(path, r.opts.MetricsHandler).Methods(http.MethodGet)
	}

	if r.opts.MediaDir != "" {
		media := http.StripPrefix("/media/", http.FileServer(http.Dir(r.opts.MediaDir)))
		r.router.PathPrefix("/media/").Handler(media).Methods(http.MethodGet, http.MethodHead)
	}
}

// ServeHTTP tags the request with an id and logs it before routing.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}
