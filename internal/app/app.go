package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"booking-service/internal/booking"
	"booking-service/internal/calendar"
	"booking-service/internal/config"
	"booking-service/internal/credit"
	"booking-service/internal/rules"
)

// App wires the HTTP handlers to the core components.
type App struct {
	Cfg     config.Config
	Log     *zap.Logger
	Orc     *booking.Orchestrator
	Rules   *rules.Store
	Credits *credit.PgStore
	OAuth   *calendar.OAuthManager
	DB      *pgxpool.Pool
	Redis   *redis.Client
}
