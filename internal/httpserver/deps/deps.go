package deps

import (
	"time"

	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/metrics"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	Storage   string

	Service *backend.Service  // per-user remote contract
	Metrics *metrics.Registry // nil disables /metrics and request counters

	APIKey       string   // shared key expected in X-Marks-Key, empty disables the check
	AllowedHosts []string // Host headers allowed to access the API
	AllowedCIDRS []string // IPs allowed to access readyz and metrics
	TrustProxy   bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)

	RateLimit float64 // requests per second per client, 0 disables
	RateBurst int
}
