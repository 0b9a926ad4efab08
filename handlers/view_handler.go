package handlers

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"tours_backend/authorization"
	"tours_backend/domain"
	"tours_backend/query"
	"tours_backend/views"
)

// ViewHandler serves the server-rendered pages. Routes run behind
// ResolveOptional, so templates see the logged-in user when there is one.
type ViewHandler struct {
	renderer *views.Renderer
	tours    domain.TourStore
	reviews  domain.ReviewStore
	users    domain.UserStore
	logger   *log.Logger
}

func NewViewHandler(renderer *views.Renderer, tours domain.TourStore, reviews domain.ReviewStore, users domain.UserStore, logger *log.Logger) *ViewHandler {
	return &ViewHandler{
		renderer: renderer,
		tours:    tours,
		reviews:  reviews,
		users:    users,
		logger:   logger,
	}
}

type viewData struct {
	Title   string
	User    *domain.User
	Tours   []*domain.Tour
	Tour    *domain.Tour
	Reviews []*domain.Review
	Guides  []*domain.User
	Message string
}

func (handler *ViewHandler) render(writer http.ResponseWriter, name string, data viewData) {
	if err := handler.renderer.Render(writer, name, data); err != nil {
		handler.logger.Errorf("Rendering %s failed: %v", name, err)
		http.Error(writer, "Something went very wrong!", http.StatusInternalServerError)
	}
}

func sessionUser(req *http.Request) *domain.User {
	if user, ok := authorization.UserFromContext(req.Context()); ok {
		return user
	}
	return nil
}

func (handler *ViewHandler) Overview(writer http.ResponseWriter, req *http.Request) {
	tours, err := handler.tours.GetAll(req.Context(), nil,
		query.New(url.Values{}, TourRegistry, query.AliasOptions{Sort: "name"}))
	if err != nil {
		handler.renderError(writer, req, err)
		return
	}

	handler.render(writer, "overview.gohtml", viewData{
		Title: "All Tours",
		User:  sessionUser(req),
		Tours: tours,
	})
}

func (handler *ViewHandler) TourPage(writer http.ResponseWriter, req *http.Request) {
	tour, err := handler.tours.GetBySlug(req.Context(), mux.Vars(req)["slug"])
	if err != nil {
		handler.renderError(writer, req, err)
		return
	}

	reviews, err := handler.reviews.GetAll(req.Context(), map[string]interface{}{"tour": tour.ID},
		query.New(url.Values{}, ReviewRegistry, query.AliasOptions{}))
	if err != nil {
		handler.renderError(writer, req, err)
		return
	}

	guides, err := handler.users.GetByIDs(req.Context(), tour.Guides)
	if err != nil {
		handler.renderError(writer, req, err)
		return
	}

	handler.render(writer, "tour.gohtml", viewData{
		Title:   tour.Name,
		User:    sessionUser(req),
		Tour:    tour,
		Reviews: reviews,
		Guides:  guides,
	})
}

func (handler *ViewHandler) LoginForm(writer http.ResponseWriter, req *http.Request) {
	handler.render(writer, "login.gohtml", viewData{
		Title: "Log into your account",
		User:  sessionUser(req),
	})
}

func (handler *ViewHandler) Account(writer http.ResponseWriter, req *http.Request) {
	user := sessionUser(req)
	if user == nil {
		http.Redirect(writer, req, "/login", http.StatusSeeOther)
		return
	}

	handler.render(writer, "account.gohtml", viewData{
		Title: "Your account",
		User:  user,
	})
}

func (handler *ViewHandler) renderError(writer http.ResponseWriter, req *http.Request, err error) {
	appErr := translate(err)
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.WriteHeader(appErr.StatusCode)
	handler.render(writer, "error.gohtml", viewData{
		Title:   "Something went wrong!",
		User:    sessionUser(req),
		Message: appErr.Message,
	})
}
