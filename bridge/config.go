package bridge

import (
	"time"

	"github.com/wippyai/steam-dispatch/schema"
	"go.uber.org/zap"
)

// DefaultTicketBufferSize is the auth ticket buffer used when Config.TicketBufferSize is zero.
const DefaultTicketBufferSize = 1024

// Config configures a Bridge. A nil Config means defaults.
type Config struct {
	// Logger receives bridge and loop diagnostics. nil means the package Logger().
	Logger *zap.Logger

	// Table holds the callback layouts. nil means schema.NewTable(Pack).
	Table *schema.Table

	// PollInterval is the dispatch tick period. 0 means 100ms.
	PollInterval time.Duration

	// CallTimeout bounds Await. 0 means wait until the future settles or the
	// caller's context ends.
	CallTimeout time.Duration

	// TicketBufferSize is the buffer handed to GetAuthSessionTicket.
	TicketBufferSize int

	// AppID enables the SteamAPI_RestartAppIfNecessary check in Initialize.
	AppID uint32

	// Pack is the callback struct packing. 0 means schema.DefaultPack().
	Pack uint32

	// ManualPump disables the dispatch goroutine; the caller drives Poll.
	ManualPump bool
}
