package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"deora-backend/internal/auth"
	"deora-backend/internal/billing"
	"deora-backend/internal/booking"
	"deora-backend/internal/config"
	"deora-backend/internal/database"
	"deora-backend/internal/events"
	"deora-backend/internal/logger"
	"deora-backend/internal/models"
	"deora-backend/internal/pricing"
	"deora-backend/internal/sequence"
	"deora-backend/internal/settlement"
	"deora-backend/internal/units"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	if err := database.Init(cfg, log); err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}

	rdb, err := config.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, falling back to database counters", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var pub events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQ.Enabled {
		amqpPub, err := events.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			log.Warn("rabbitmq unavailable, events disabled", zap.Error(err))
		} else {
			pub = amqpPub
		}
	}
	defer pub.Close()

	seq := sequence.New(rdb, database.DB)
	bookings := booking.NewService(database.DB, seq, pub, log.Named("booking"))
	bills := billing.NewService(database.DB, seq, log.Named("billing"))
	settlements := settlement.NewService(database.DB, pub, log.Named("settlement"), cfg.Settlement.OwnerPercentage)

	app := fiber.New(fiber.Config{
		ErrorHandler: logger.ErrorHandler(log),
	})

	app.Use(logger.Middleware(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOriginList(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-super-admin", auth.RegisterSuperAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginRateLimit(rdb, 5, 15*time.Minute, log), auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleSuperAdmin, models.RoleOwner))
	adminRoutes.Post("/users", auth.CreateUserHandler())
	adminRoutes.Get("/users", auth.ListUsersHandler())

	destructive := []fiber.Handler{auth.RequireRole(models.RoleSuperAdmin), auth.ConfirmPassword()}

	// Rooms
	protected.Get("/rooms", booking.ListRoomsHandler(bookings))
	protected.Post("/rooms", auth.RequireFinancial(), booking.CreateRoomHandler(bookings))
	protected.Put("/rooms/:id", auth.RequireFinancial(), booking.UpdateRoomHandler(bookings))
	protected.Delete("/rooms/:id", append(destructive, booking.DeleteRoomHandler(bookings))...)
	protected.Get("/rooms/:id/active-booking", booking.ActiveBookingHandler(bookings))

	// Bookings
	protected.Get("/bookings", booking.ListBookingsHandler(bookings))
	protected.Get("/bookings/availability", booking.AvailabilityHandler(bookings))
	protected.Get("/bookings/:id", booking.GetBookingHandler(bookings))
	protected.Post("/bookings", booking.CreateBookingHandler(bookings))
	protected.Post("/bookings/:id/payments", booking.AddPaymentHandler(bookings))
	protected.Post("/bookings/:id/reconcile", auth.RequireFinancial(), booking.ReconcileHandler(bookings))
	protected.Put("/bookings/:id/status", booking.UpdateStatusHandler(bookings))
	protected.Delete("/bookings/:id", append(destructive, booking.DeleteBookingHandler(bookings))...)

	protected.Post("/pricing/quote", pricing.QuoteHandler())

	// Bills
	protected.Get("/bills", billing.ListBillsHandler(bills))
	protected.Get("/bills/revenue/daily", auth.RequireFinancial(), auth.RequireUnitAccess("business_unit"), billing.DailyRevenueHandler(bills))
	protected.Get("/bills/:id", billing.GetBillHandler(bills))
	protected.Post("/bills", billing.CreateBillHandler(bills))
	protected.Post("/bills/:id/payment", billing.ProcessPaymentHandler(bills))
	protected.Delete("/bills/:id", append(destructive, billing.DeleteBillHandler(bills))...)

	gst := protected.Group("/gst", auth.RequireFinancial())
	gst.Get("/report", billing.GSTReportHandler(bills))
	gst.Get("/summary", billing.GSTSummaryHandler(bills))
	gst.Get("/export", billing.GSTExportHandler(bills))

	// Settlements
	st := protected.Group("/settlements", auth.RequireFinancial())
	st.Get("", settlement.ListHandler(settlements))
	st.Get("/current", settlement.CurrentMonthHandler(settlements))
	st.Get("/daily", settlement.DailyReportHandler(settlements))
	st.Get("/export", settlement.ExportHandler(settlements))
	st.Post("/generate", settlement.GenerateHandler(settlements))
	st.Post("/:id/paid", auth.RequireRole(models.RoleSuperAdmin, models.RoleOwner), settlement.MarkPaidHandler(settlements))

	// Units
	protected.Get("/units", units.ListUnitsHandler())
	protected.Put("/units/:unit", auth.RequireRole(models.RoleSuperAdmin, models.RoleOwner), units.UpdateUnitHandler())

	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
