package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	config "github.com/meetly/messagebox/configs"
	"github.com/meetly/messagebox/database"
	"github.com/meetly/messagebox/handlers"
	"github.com/meetly/messagebox/jobs"
	"github.com/meetly/messagebox/middleware"
	"github.com/meetly/messagebox/routes"
	"github.com/meetly/messagebox/services"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	settings config.Settings
	log      *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "messagebox",
	Short:         "Direct and thread messaging API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if settings, err = config.Load(); err != nil {
			return err
		}
		if settings.Development() {
			log, err = zap.NewDevelopment()
		} else {
			log, err = zap.NewProduction()
		}
		return errors.Wrap(err, "build logger")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduled jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if settings.JWTSecret == "" {
			return errors.New("JWT_SECRET is not set")
		}
		db, err := connect()
		if err != nil {
			return err
		}
		if err := database.Migrate(db, log); err != nil {
			return err
		}

		c := cron.New()
		if err := jobs.Schedule(c, settings.OrphanPurgeCron, db, log); err != nil {
			return err
		}
		c.Start()
		defer c.Stop()

		app := newApp(db)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-quit
			log.Info("shutting down")
			_ = app.ShutdownWithTimeout(10 * time.Second)
		}()

		log.Info("server is running", zap.String("addr", settings.Addr()))
		return errors.Wrap(app.Listen(settings.Addr()), "server failed")
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := connect()
		if err != nil {
			return err
		}
		return database.Migrate(db, log)
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge-orphans",
	Short: "Remove direct messages deleted by both sides",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := connect()
		if err != nil {
			return err
		}
		n, err := jobs.PurgeOrphanedMessages(db, log)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d message(s)\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, purgeCmd)
}

func connect() (*gorm.DB, error) {
	if settings.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	db, err := database.ConnectDB(settings.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	if err := database.SetupJoinTables(db); err != nil {
		return nil, errors.Wrap(err, "setup join tables")
	}
	return db, nil
}

func newApp(db *gorm.DB) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:       false,
		AppName:       "Messagebox",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Error("unhandled error", zap.Error(err), zap.String("path", c.Path()), zap.String("method", c.Method()))
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	users := services.NewUserDirectory(db, log)
	box := services.NewMessageboxService(db, log)
	protected := []fiber.Handler{middleware.Protected(settings.JWTSecret), middleware.ActiveUser(users)}

	routes.PublicRoutes(app)
	routes.AuthRoutes(app, handlers.NewAuthHandler(users, log, settings.JWTSecret, settings.JWTTTL), protected...)
	routes.MessagingRoutes(app, handlers.NewMessagingHandler(box, log, settings.DefaultPageSize, settings.MaxPageSize), protected...)
	return app
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
