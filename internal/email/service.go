package email

import (
	"context"
)

// Service is the raw email transport. Rendering and recipient
// resolution happen upstream; this only delivers.
type Service interface {
	SendCustom(ctx context.Context, to string, subject string, content string) error
}
