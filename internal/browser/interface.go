// Package browser defines the remote browser contract used by the execution
// engine, and a Pool that serializes session lifecycle operations across the
// process.
package browser

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Kisii856/task-automation-platform/api/schemas"
)

// ErrTargetNotFound is returned when a selector resolves to no element.
var ErrTargetNotFound = errors.New("browser: target element not found")

// ErrPoolClosed is returned by a Pool after Shutdown.
var ErrPoolClosed = errors.New("browser: pool is shut down")

// Driver launches remote browser sessions.
type Driver interface {
	LaunchSession(ctx context.Context) (Session, error)
}

// Session is one live browser instance.
type Session interface {
	ID() string
	NewPage(ctx context.Context) (Page, error)
	Close(ctx context.Context) error
}

// Page is a single tab inside a session. Every method blocks on the remote
// browser and honours ctx.
type Page interface {
	Goto(ctx context.Context, url string) error
	// WaitForIdle blocks until the document is ready and network activity settles.
	WaitForIdle(ctx context.Context) error
	// LocateBoundingBox returns nil, nil when no element matches selector.
	LocateBoundingBox(ctx context.Context, selector string) (*schemas.BoundingBox, error)
	MoveCursor(ctx context.Context, x, y float64, steps int) error
	// Click presses and releases the primary button on the element. If the
	// cursor lies inside the element the click lands there, otherwise at its center.
	Click(ctx context.Context, selector string) error
	Focus(ctx context.Context, selector string) error
	TypeChar(ctx context.Context, r rune) error
	EvaluateScript(ctx context.Context, expression string) (json.RawMessage, error)
	// ReadText returns ErrTargetNotFound when no element matches selector.
	ReadText(ctx context.Context, selector string) (string, error)
	ScrollTo(ctx context.Context, y float64) error
	DocumentScrollHeight(ctx context.Context) (float64, error)
	ViewportHeight(ctx context.Context) (float64, error)
	WaitMillis(ctx context.Context, ms int) error
	Close(ctx context.Context) error
}
