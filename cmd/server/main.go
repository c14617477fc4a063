package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/audit"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/auth"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/config"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/database"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/fleet"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/importer"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/inventory"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/logger"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/mailer"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/metrics"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/notify"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/report"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/scheduler"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/settings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.LogLevel, cfg.Env); err != nil {
		panic(err)
	}
	log := logger.Get()
	defer log.Sync()

	if cfg.DefaultDSN() {
		log.Warn("DATABASE_DSN tanımlanmamış, varsayılan yerel bağlantı kullanılıyor")
	}
	if err := database.Init(cfg); err != nil {
		log.Fatal("Veritabanı başlatılamadı", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Kuyruktaki işler kapanışta yarıda kesilmez, Stop hepsini bekler.
	runner := importer.NewRunner(database.DB, cfg.ImportWorkers)
	runner.Start(context.Background())

	mail := mailer.New(cfg)
	pusher := notify.NewPusher(cfg)
	defaults := settings.DefaultsFrom(cfg)
	reports := &report.Sender{DB: database.DB, Mailer: mail, Defaults: defaults}

	cron, err := scheduler.Start(ctx, scheduler.Jobs(cfg, database.DB, scheduler.Deps{Pusher: pusher, Reports: reports}))
	if err != nil {
		log.Fatal("Zamanlayıcı başlatılamadı", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		BodyLimit: cfg.ImportMaxUploadMB * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			logger.FromCtx(c).Error("Beklenmeyen hata", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Beklenmeyen sunucu hatası",
			})
		},
	})

	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(logger.Middleware())
	app.Use(metrics.Middleware())

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := database.DB.DB()
		if err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "db-unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register", auth.RegisterHandler())
	api.Post("/auth/bootstrap-admin", auth.BootstrapAdminHandler())
	api.Post("/auth/login", auth.LoginHandler(cfg))
	api.Post("/auth/forgot-password", auth.ForgotPasswordHandler(mail))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())
	protected.Get("/users", auth.ListUsersHandler())
	protected.Post("/device-token", notify.SaveDeviceTokenHandler())
	protected.Get("/notifications", notify.HistoryHandler())

	// Ürünler ve kullanıcı stoğu
	protected.Get("/products", inventory.ListProductsHandler())
	protected.Get("/products/critical", inventory.CriticalProductsHandler())
	protected.Get("/products/:id", inventory.GetProductHandler())
	protected.Post("/products/:id/take", inventory.TakeHandler())
	protected.Post("/products/:id/return", inventory.ReturnHandler())
	protected.Post("/products/:id/transfer", inventory.TransferHandler())
	protected.Get("/my-stock", inventory.MyStockHandler())
	protected.Get("/stock-movements", inventory.StockMovementsHandler())
	protected.Get("/device-part-usage", inventory.ListPartUsageHandler())
	protected.Post("/device-part-usage", inventory.CreatePartUsageHandler())
	protected.Get("/device-part-usage/:id", inventory.GetPartUsageHandler())

	// Kurumlar ve cihazlar
	protected.Get("/institutions", fleet.ListInstitutionsHandler())
	protected.Post("/institutions", fleet.CreateInstitutionHandler())
	protected.Get("/institutions/:id", fleet.GetInstitutionHandler())
	protected.Put("/institutions/:id", fleet.UpdateInstitutionHandler())
	protected.Get("/institutions/:id/installations", fleet.InstitutionInstallationsHandler())
	protected.Get("/institutions/:id/notes", fleet.ListNotesHandler())
	protected.Post("/institutions/:id/notes", fleet.CreateNoteHandler())
	protected.Put("/notes/:id", fleet.UpdateNoteHandler())
	protected.Delete("/notes/:id", fleet.DeleteNoteHandler())

	protected.Get("/device-types", fleet.ListDeviceTypesHandler())
	protected.Post("/device-types", fleet.CreateDeviceTypeHandler())
	protected.Get("/device-records", fleet.ListDevicesHandler())
	protected.Post("/device-records", fleet.CreateDeviceHandler())
	protected.Get("/device-records/:id", fleet.GetDeviceHandler())
	protected.Get("/device-records/:id/history", fleet.DeviceHistoryHandler())

	protected.Get("/installations", fleet.ListInstallationsHandler())
	protected.Post("/installations", fleet.CreateInstallationHandler())
	protected.Get("/installations/:id", fleet.GetInstallationHandler())
	protected.Patch("/installations/:id/uninstall", fleet.UninstallHandler())

	protected.Get("/maintenance", fleet.ListMaintenanceHandler())
	protected.Post("/maintenance", fleet.CreateMaintenanceHandler())
	protected.Get("/faults", fleet.ListFaultsHandler())
	protected.Post("/faults", fleet.CreateFaultHandler())
	protected.Get("/faults/:id", fleet.GetFaultHandler())
	protected.Put("/faults/:id", fleet.UpdateFaultHandler())

	// Admin
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireAdmin())

	adminRoutes.Post("/access-code", auth.GenerateAccessCodeHandler())

	adminRoutes.Post("/products/add", inventory.AdminAddStockHandler())
	adminRoutes.Put("/products/:id", inventory.AdminUpdateProductHandler())
	adminRoutes.Post("/products/:id/adjust", inventory.AdminAdjustProductHandler())
	adminRoutes.Patch("/products/:id/min-limit", inventory.AdminUpdateMinLimitHandler())
	adminRoutes.Post("/products/:id/toggle-order", inventory.ToggleOrderPlacedHandler())
	adminRoutes.Delete("/products/:id", inventory.DeleteProductHandler())

	adminRoutes.Get("/user-stocks", inventory.ListUserStocksHandler())
	adminRoutes.Post("/user-stocks/adjust", inventory.AdminAdjustUserStockHandler())
	adminRoutes.Get("/transactions", inventory.ListTransactionsHandler())

	adminRoutes.Get("/imports", importer.ListCollectionsHandler())
	adminRoutes.Get("/imports/jobs/:id", importer.ImportJobHandler())
	adminRoutes.Post("/imports/:collection", importer.ImportHandler(cfg, runner))
	adminRoutes.Get("/exports/:collection", importer.ExportHandler())

	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler())

	adminRoutes.Post("/notifications", notify.SendHandler(pusher))
	adminRoutes.Delete("/notifications/:id", notify.DeleteHandler())
	adminRoutes.Get("/settings", settings.GetHandler(defaults))
	adminRoutes.Put("/settings", settings.UpdateHandler(defaults))
	adminRoutes.Get("/reports/:kind", report.DownloadHandler())
	adminRoutes.Post("/reports/:kind/email", report.EmailHandler(reports))

	go func() {
		log.Info("Server çalışıyor", zap.String("port", cfg.HTTPPort))
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			log.Error("Server durdu", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Kapanıyor")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		log.Warn("HTTP kapanışı zaman aşımına uğradı", zap.Error(err))
	}
	<-cron.Stop().Done()
	runner.Stop()
}
