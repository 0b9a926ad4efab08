package startup

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/casbin/casbin"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"

	"tours_backend/authorization"
	"tours_backend/casbinAuthorization"
	"tours_backend/domain"
	"tours_backend/errors"
	"tours_backend/handlers"
	"tours_backend/mail"
	"tours_backend/payment"
	"tours_backend/query"
	application "tours_backend/service"
	"tours_backend/startup/config"
	"tours_backend/storage"
	"tours_backend/store"
	"tours_backend/views"
)

type Server struct {
	config *config.Config
}

var Logger = logrus.New()

const LogFilePath = "/app/logs/tours_backend.log"

type CustomFormatter struct{}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	msg := fmt.Sprintf("[%s] [%s] %s\n",
		entry.Time.Format("2006-01-02T15:04:05Z07:00"),
		entry.Level,
		entry.Message,
	)
	return []byte(msg), nil
}

func initLogger() {
	writer, err := rotatelogs.New(
		LogFilePath+"_%Y%m%d%H%M",
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		Logger.Warnf("Failed to create rotatelogs writer, logging to stderr: %v", err)
		return
	}
	Logger.SetOutput(writer)
	Logger.SetFormatter(&CustomFormatter{})
}

func NewServer(config *config.Config) *Server {
	return &Server{
		config: config,
	}
}

func (server *Server) Start() {
	initLogger()
	handlers.Env = server.config.Env

	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			MaxConnsPerHost:     10,
		},
	}

	mongoClient := server.initMongoClient(httpClient)
	defer func(mongoClient *mongo.Client, ctx context.Context) {
		if err := mongoClient.Disconnect(ctx); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}(mongoClient, context.Background())

	ctx := context.Background()
	exp, err := newExporter(server.config.JaegerAddress)
	if err != nil {
		log.Fatalf("Failed to Initialize Exporter: %v", err)
	}
	tp := newTraceProvider(exp)
	defer func() { _ = tp.Shutdown(ctx) }()
	otel.SetTracerProvider(tp)
	tracer := tp.Tracer("tours_backend")
	otel.SetTextMapPropagator(propagation.TraceContext{})

	storeLogger := log.New(os.Stdout, "[tours-store] ", log.LstdFlags)

	userStore := store.NewUserMongoDBStore(mongoClient, storeLogger, tracer)
	tourStore := store.NewTourMongoDBStore(mongoClient, storeLogger, tracer)
	reviewStore := store.NewReviewMongoDBStore(mongoClient, storeLogger, tracer)
	bookingStore := store.NewBookingMongoDBStore(mongoClient, storeLogger, tracer)
	counterStore := server.initCounterStore(storeLogger)
	photoStorage := server.initPhotoStorage(tracer)

	mailer := mail.NewSMTPMailer(server.config.SMTPHost, server.config.SMTPPort,
		server.config.SMTPEmail, server.config.SMTPPassword, Logger)
	paymentClient := payment.NewClient(server.config.PaymentURL, storeLogger)

	authService := application.NewAuthService(userStore, mailer, server.config.TokenTTL, tracer, Logger)
	userService := application.NewUserService(userStore, photoStorage, tracer, Logger)
	bookingService := application.NewBookingService(bookingStore, tourStore, paymentClient, tracer, Logger)

	secureCookie := server.config.Env == "production"
	authHandler := handlers.NewAuthHandler(authService, server.config.CookieTTL, secureCookie, Logger)
	userHandler := handlers.NewUserHandler(
		handlers.NewFactory[*domain.User]("user", "users", userStore, func() *domain.User { return &domain.User{} }, handlers.UserRegistry, Logger).
			WithBlockedFields("password", "passwordConfirm"),
		userService, Logger)
	tourHandler := handlers.NewTourHandler(
		handlers.NewFactory[*domain.Tour]("tour", "tours", tourStore, handlers.NewTour, handlers.TourRegistry, Logger),
		tourStore, reviewStore, userStore, Logger)
	reviewHandler := handlers.NewReviewHandler(
		handlers.NewFactory[*domain.Review]("review", "reviews", reviewStore, func() *domain.Review { return &domain.Review{} }, handlers.ReviewRegistry, Logger),
		reviewStore, Logger)
	bookingHandler := handlers.NewBookingHandler(
		handlers.NewFactory[*domain.Booking]("booking", "bookings", bookingStore, func() *domain.Booking { return &domain.Booking{} }, handlers.BookingRegistry, Logger),
		bookingService, bookingStore, Logger)

	renderer, err := views.NewRenderer(server.config.TemplatesGlob)
	if err != nil {
		log.Fatal(err)
	}
	viewHandler := handlers.NewViewHandler(renderer, tourStore, reviewStore, userStore, Logger)

	enforcer, err := casbin.NewEnforcerSafe("./rbac_model.conf", "./policy.csv")
	if err != nil {
		log.Fatal(err)
	}

	router := server.buildRouter(enforcer, counterStore, userStore,
		authHandler, userHandler, tourHandler, reviewHandler, bookingHandler, viewHandler)

	server.start(router)
}

func (server *Server) initMongoClient(httpClient *http.Client) *mongo.Client {
	client, err := store.Connect(context.Background(), server.config.DBHost, server.config.DBPort, httpClient)
	if err != nil {
		log.Fatal(err)
	}
	return client
}

// initCounterStore prefers Redis so the rate limit holds across replicas;
// without a cache host the in-process counter still protects a single
// instance.
func (server *Server) initCounterStore(storeLogger *log.Logger) domain.CounterStore {
	if server.config.RedisHost == "" {
		Logger.Warn("RATELIMIT_CACHE_HOST not set, using in-memory rate limit counters")
		return store.NewLimiterMemoryStore()
	}
	client, err := store.GetRedisClient(server.config.RedisHost, server.config.RedisPort)
	if err != nil {
		log.Fatal(err)
	}
	return store.NewLimiterRedisStore(client, storeLogger)
}

func (server *Server) initPhotoStorage(tracer trace.Tracer) domain.PhotoStorage {
	if server.config.HDFSUri != "" {
		fileStorage, err := storage.New(Logger, tracer)
		if err != nil {
			log.Fatal(err)
		}
		return fileStorage
	}
	localStorage, err := storage.NewLocal(server.config.PhotoDir, Logger)
	if err != nil {
		log.Fatal(err)
	}
	return localStorage
}

func (server *Server) buildRouter(
	enforcer *casbin.Enforcer,
	counterStore domain.CounterStore,
	userStore domain.UserStore,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	tourHandler *handlers.TourHandler,
	reviewHandler *handlers.ReviewHandler,
	bookingHandler *handlers.BookingHandler,
	viewHandler *handlers.ViewHandler,
) *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		handlers.WriteError(rw, errors.Newf(404, "Can't find %s on this server!", req.URL.Path))
	})

	protect := authorization.Protect(userStore, Logger, handlers.WriteError)
	restrict := func(next http.HandlerFunc, roles ...domain.UserRole) http.HandlerFunc {
		return authorization.RestrictTo(handlers.WriteError, next, roles...)
	}
	none := query.AliasOptions{}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(handlers.MiddlewareRequestLog(Logger))
	api.Use(handlers.MiddlewareContentTypeSet)
	api.Use(handlers.MiddlewareBodyLimit(100 << 10))
	api.Use(handlers.MiddlewareRateLimit(counterStore, server.config.RateLimitMax, server.config.RateWindow, Logger))
	api.Use(casbinAuthorization.CasbinMiddleware(enforcer, Logger, handlers.WriteError))

	users := api.PathPrefix("/users").Subrouter()
	users.HandleFunc("/signup", authHandler.Register).Methods(http.MethodPost)
	users.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	users.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodGet)
	users.HandleFunc("/forgotPassword", authHandler.ForgotPassword).Methods(http.MethodPost)
	users.HandleFunc("/resetPassword/{token}", authHandler.ResetPassword).Methods(http.MethodPatch)

	usersAuth := api.PathPrefix("/users").Subrouter()
	usersAuth.Use(protect)
	usersAuth.HandleFunc("/updateMyPassword", authHandler.UpdatePassword).Methods(http.MethodPatch)
	usersAuth.HandleFunc("/me", userHandler.GetMe).Methods(http.MethodGet)
	usersAuth.HandleFunc("/updateMe", userHandler.UpdateMe).Methods(http.MethodPatch)
	usersAuth.HandleFunc("/deleteMe", userHandler.DeleteMe).Methods(http.MethodDelete)
	usersAuth.HandleFunc("", restrict(userHandler.GetAll(none), domain.RoleAdmin)).Methods(http.MethodGet)
	usersAuth.HandleFunc("", restrict(userHandler.CreateUser, domain.RoleAdmin)).Methods(http.MethodPost)
	usersAuth.HandleFunc("/{id}", restrict(userHandler.GetOne, domain.RoleAdmin)).Methods(http.MethodGet)
	usersAuth.HandleFunc("/{id}", restrict(userHandler.UpdateOne, domain.RoleAdmin)).Methods(http.MethodPatch)
	usersAuth.HandleFunc("/{id}", restrict(userHandler.DeleteOne, domain.RoleAdmin)).Methods(http.MethodDelete)

	tours := api.PathPrefix("/tours").Subrouter()
	tours.HandleFunc("", tourHandler.GetAll(none)).Methods(http.MethodGet)
	tours.HandleFunc("/top-5-cheap", tourHandler.TopTours()).Methods(http.MethodGet)
	tours.HandleFunc("/tour-stats", tourHandler.TourStats).Methods(http.MethodGet)
	tours.HandleFunc("/tours-within/{distance}/center/{latlng}/unit/{unit}", tourHandler.ToursWithin).Methods(http.MethodGet)
	tours.HandleFunc("/distances/{latlng}/unit/{unit}", tourHandler.Distances).Methods(http.MethodGet)
	tours.HandleFunc("/{id}", tourHandler.GetTour).Methods(http.MethodGet)

	toursAuth := api.PathPrefix("/tours").Subrouter()
	toursAuth.Use(protect)
	toursAuth.HandleFunc("/monthly-plan/{year}", restrict(tourHandler.MonthlyPlan,
		domain.RoleAdmin, domain.RoleLeadGuide, domain.RoleGuide)).Methods(http.MethodGet)
	toursAuth.HandleFunc("", restrict(tourHandler.CreateOne,
		domain.RoleAdmin, domain.RoleLeadGuide)).Methods(http.MethodPost)
	toursAuth.HandleFunc("/{id}", restrict(tourHandler.UpdateOne,
		domain.RoleAdmin, domain.RoleLeadGuide)).Methods(http.MethodPatch)
	toursAuth.HandleFunc("/{id}", restrict(tourHandler.DeleteOne,
		domain.RoleAdmin, domain.RoleLeadGuide)).Methods(http.MethodDelete)

	tourReviews := api.PathPrefix("/tours/{tourId}/reviews").Subrouter()
	tourReviews.HandleFunc("", reviewHandler.GetAll(none)).Methods(http.MethodGet)

	tourReviewsAuth := api.PathPrefix("/tours/{tourId}/reviews").Subrouter()
	tourReviewsAuth.Use(protect)
	tourReviewsAuth.HandleFunc("", restrict(reviewHandler.CreateReview, domain.RoleUser)).Methods(http.MethodPost)

	reviews := api.PathPrefix("/reviews").Subrouter()
	reviews.HandleFunc("", reviewHandler.GetAll(none)).Methods(http.MethodGet)
	reviews.HandleFunc("/{id}", reviewHandler.GetOne).Methods(http.MethodGet)

	reviewsAuth := api.PathPrefix("/reviews").Subrouter()
	reviewsAuth.Use(protect)
	reviewsAuth.HandleFunc("", restrict(reviewHandler.CreateReview, domain.RoleUser)).Methods(http.MethodPost)
	reviewsAuth.HandleFunc("/{id}", restrict(reviewHandler.UpdateReview,
		domain.RoleUser, domain.RoleAdmin)).Methods(http.MethodPatch)
	reviewsAuth.HandleFunc("/{id}", restrict(reviewHandler.DeleteReview,
		domain.RoleUser, domain.RoleAdmin)).Methods(http.MethodDelete)

	bookings := api.PathPrefix("/bookings").Subrouter()
	bookings.Use(protect)
	bookings.HandleFunc("/checkout-session/{tourId}", bookingHandler.GetCheckoutSession).Methods(http.MethodGet)
	bookings.HandleFunc("/checkout", bookingHandler.ConfirmCheckout).Methods(http.MethodPost)
	bookings.HandleFunc("/my-bookings", bookingHandler.MyBookings).Methods(http.MethodGet)
	bookings.HandleFunc("", restrict(bookingHandler.GetAll(none),
		domain.RoleAdmin, domain.RoleLeadGuide)).Methods(http.MethodGet)
	bookings.HandleFunc("", restrict(bookingHandler.CreateOne,
		domain.RoleAdmin, domain.RoleLeadGuide)).Methods(http.MethodPost)
	bookings.HandleFunc("/{id}", restrict(bookingHandler.GetOne,
		domain.RoleAdmin, domain.RoleLeadGuide)).Methods(http.MethodGet)
	bookings.HandleFunc("/{id}", restrict(bookingHandler.UpdateOne,
		domain.RoleAdmin, domain.RoleLeadGuide)).Methods(http.MethodPatch)
	bookings.HandleFunc("/{id}", restrict(bookingHandler.DeleteOne,
		domain.RoleAdmin, domain.RoleLeadGuide)).Methods(http.MethodDelete)

	web := router.PathPrefix("/").Subrouter()
	web.Use(authorization.ResolveOptional(userStore))
	web.HandleFunc("/", viewHandler.Overview).Methods(http.MethodGet)
	web.HandleFunc("/tour/{slug}", viewHandler.TourPage).Methods(http.MethodGet)
	web.HandleFunc("/login", viewHandler.LoginForm).Methods(http.MethodGet)
	web.HandleFunc("/me", viewHandler.Account).Methods(http.MethodGet)

	return router
}

func (server *Server) start(router *mux.Router) {
	cors := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", server.config.Port),
		Handler: cors(router),
	}

	wait := time.Second * 15
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Println(err)
		}
	}()

	c := make(chan os.Signal, 1)

	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	<-c

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Error Shutting Down Server %s", err)
	}
	log.Println("Server Gracefully Stopped")
}

func newExporter(address string) (*jaeger.Exporter, error) {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(address)))
	if err != nil {
		return nil, err
	}
	return exp, nil
}

func newTraceProvider(exp sdktrace.SpanExporter) *sdktrace.TracerProvider {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("tours_backend"),
		),
	)
	if err != nil {
		panic(err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(r),
	)
}
