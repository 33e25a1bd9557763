package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-attendance/internal/config"
	"github.com/cmlabs-hris/hris-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance/internal/domain/officehours"
	appHTTP "github.com/cmlabs-hris/hris-attendance/internal/handler/http"
	"github.com/cmlabs-hris/hris-attendance/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-attendance/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-attendance/internal/repository/memory"
	"github.com/cmlabs-hris/hris-attendance/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hris-attendance/internal/service/attendance"
	"github.com/cmlabs-hris/hris-attendance/internal/service/evidence"
	officeHoursService "github.com/cmlabs-hris/hris-attendance/internal/service/officehours"
	"github.com/go-chi/httplog/v3"
)

type repositories struct {
	policies    officehours.PolicyRepository
	attendances attendance.AttendanceRepository
	employees   employee.Directory
	close       func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}

	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "production")
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(slog.String("app", "hris-attendance"), slog.String("env", cfg.App.Env)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		log.Fatal("Error opening store: ", err)
	}
	defer repos.close()

	fileStorage, err := storage.NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.BaseURL)
	if err != nil {
		log.Fatal("Failed to initialize local storage: ", err)
	}

	var geocoder evidence.Geocoder
	if cfg.Geocoder.URL != "" {
		geocoder = evidence.NewNominatimGeocoder(cfg.Geocoder.URL, cfg.Geocoder.Timeout)
	} else {
		slog.Warn("GEOCODER_URL not set, addresses will fall back to coordinates")
	}

	loc := cfg.Attendance.Timezone
	resolver := officeHoursService.NewPolicyResolver(repos.policies)
	policyService := officeHoursService.NewPolicyService(repos.policies, resolver)
	attendanceSvc := attendanceService.NewAttendanceService(repos.attendances, resolver, repos.employees, fileStorage, loc)
	recorder := evidence.NewRecorder(fileStorage, geocoder, loc)
	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	if cfg.Attendance.SeedFile != "" {
		reqs, err := officeHoursService.LoadSeedFile(cfg.Attendance.SeedFile)
		if err != nil {
			log.Fatal("Error loading office hours seed: ", err)
		}
		if err := policyService.Seed(ctx, reqs); err != nil {
			log.Fatal("Error seeding office hours: ", err)
		}
		slog.Info("Office hours seeded", "file", cfg.Attendance.SeedFile, "policies", len(reqs))
	}

	scheduler := cron.NewScheduler()
	cron.NewAttendanceJobs(attendanceSvc, time.Duration(cfg.Attendance.StaleSessionHours)*time.Hour).RegisterJobs(scheduler)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	router := appHTTP.NewRouter(
		cfg.App,
		JWTService,
		appHTTP.NewAttendanceHandler(attendanceSvc, recorder, fileStorage),
		appHTTP.NewOfficeHoursHandler(policyService),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server running", "addr", srv.Addr, "timezone", cfg.Attendance.TimezoneName, "store", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}
}

func openRepositories(ctx context.Context, cfg *config.Config) (repositories, error) {
	switch cfg.Database.Driver {
	case config.StoreDriverMemory:
		slog.Warn("Using in-memory store, data is lost on restart")
		return repositories{
			policies:    memory.NewPolicyRepository(),
			attendances: memory.NewAttendanceRepository(),
			employees:   memory.NewEmployeeDirectory(),
			close:       func() {},
		}, nil

	case config.StoreDriverPostgres:
		db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
		if err != nil {
			return repositories{}, err
		}
		if err := postgresql.Migrate(ctx, db); err != nil {
			db.Close()
			return repositories{}, err
		}
		return repositories{
			policies:    postgresql.NewPolicyRepository(db),
			attendances: postgresql.NewAttendanceRepository(db),
			employees:   postgresql.NewEmployeeRepository(db),
			close:       db.Close,
		}, nil
	}
	return repositories{}, fmt.Errorf("unsupported store driver %q", cfg.Database.Driver)
}
