package deps

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/MrSnakeDoc/noticeboard/internal/auth"
	"github.com/MrSnakeDoc/noticeboard/internal/board"
	"github.com/MrSnakeDoc/noticeboard/internal/broadcast"
	"github.com/MrSnakeDoc/noticeboard/internal/live"
	"github.com/MrSnakeDoc/noticeboard/internal/logger"
	"github.com/MrSnakeDoc/noticeboard/internal/store"
	"github.com/MrSnakeDoc/noticeboard/internal/uploads"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	AllowedHosts []string // Host headers allowed on operational endpoints
	AllowedCIDRS []string // IPs allowed on operational endpoints
	TrustProxy   bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)
	CORSOrigins  []string // origins allowed for the API and the WebSocket transport

	RateLimitRPS   float64
	RateLimitBurst int

	StoreBackend string      // reported by /infra
	Store        store.Store // pinged by /readyz and /infra
	RelayEnabled bool        // events are mirrored to peer instances

	Board    *board.Manager
	Live     *live.Controller
	Auth     *auth.Service
	Hub      *broadcast.Hub
	Uploads  *uploads.Store
	Upgrader *websocket.Upgrader
	Validate *validator.Validate

	// AuthRequired rejects anonymous mutations. When false, callers may
	// attribute a mutation with an explicit userEmail field.
	AuthRequired bool
}

// Now returns d.TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
