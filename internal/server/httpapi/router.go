package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
	"github.com/dmitrijs2005/foodcrm/internal/logging"
	"github.com/dmitrijs2005/foodcrm/internal/server/models"
	"github.com/dmitrijs2005/foodcrm/internal/server/repositories/entities"
)

// UserService is the account side of the API.
type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (common.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (common.TokenPair, error)
}

// EntityService serves the generic CRUD and bulk routes for every table.
type EntityService interface {
	List(ctx context.Context, table string, q crm.Query) (crm.Page[entities.Row], error)
	Get(ctx context.Context, table, id string) (entities.Row, error)
	Create(ctx context.Context, userID, table string, fields crm.Patch) (entities.Row, error)
	Update(ctx context.Context, userID, table, id string, fields crm.Patch) (entities.Row, error)
	Delete(ctx context.Context, userID, table, id string) error
	DeleteMany(ctx context.Context, userID, table string, ids []string) (crm.BulkResult, error)
	UpdateMany(ctx context.Context, userID, table string, updates []crm.BulkUpdate) (crm.BulkResult, error)
}

type AttachmentService interface {
	UploadURL(ctx context.Context, userID, contentType string) (common.PresignedURL, error)
	DownloadURL(ctx context.Context, key string) (string, error)
}

// Deps is everything the router needs. Metrics and Limiter are optional.
type Deps struct {
	Users       UserService
	Entities    EntityService
	Attachments AttachmentService
	Logger      logging.Logger
	SecretKey   []byte
	Metrics     interface {
		Handler() http.Handler
		Middleware() mux.MiddlewareFunc
	}
	Limiter *RateLimiter
}

type handlers struct {
	users       UserService
	entities    EntityService
	attachments AttachmentService
	log         logging.Logger
}

// NewRouter wires every route under common.APIPrefix.
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = logging.Nop()
	}
	h := &handlers{users: d.Users, entities: d.Entities, attachments: d.Attachments, log: log.With("module", "httpapi")}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, h.log, common.NewServiceError(http.StatusNotFound, "route not found", common.ErrorNotFound))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, h.log, common.NewServiceError(http.StatusMethodNotAllowed, "method not allowed", nil))
	})
	r.Use(requestLogger(h.log))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix(common.APIPrefix).Subrouter()
	api.HandleFunc("/ping", h.ping).Methods(http.MethodGet)

	authRoutes := api.PathPrefix("/auth").Subrouter()
	if d.Limiter != nil {
		authRoutes.Use(d.Limiter.Middleware)
	}
	authRoutes.HandleFunc("/register", h.register).Methods(http.MethodPost)
	authRoutes.HandleFunc("/login", h.login).Methods(http.MethodPost)
	authRoutes.HandleFunc("/refresh", h.refresh).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(authenticate(d.SecretKey, h.log))
	if d.Limiter != nil {
		protected.Use(d.Limiter.Middleware)
	}

	protected.HandleFunc("/attachments/upload-url", h.uploadURL).Methods(http.MethodPost)
	protected.HandleFunc("/attachments/download-url", h.downloadURL).Methods(http.MethodGet)

	table := "/{table:" + strings.Join(crm.Tables(), "|") + "}"
	protected.HandleFunc(table, h.list).Methods(http.MethodGet)
	protected.HandleFunc(table, h.create).Methods(http.MethodPost)
	protected.HandleFunc(table+"/bulk/delete", h.bulkDelete).Methods(http.MethodPost)
	protected.HandleFunc(table+"/bulk/update", h.bulkUpdate).Methods(http.MethodPost)
	protected.HandleFunc(table+"/{id}", h.get).Methods(http.MethodGet)
	protected.HandleFunc(table+"/{id}", h.update).Methods(http.MethodPatch)
	protected.HandleFunc(table+"/{id}", h.delete).Methods(http.MethodDelete)

	return r
}
