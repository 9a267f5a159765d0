package worker

import (
	"github.com/spec-kit/hms-gateway/internal/service"
)

// StartChangeRelay registers the change notification handlers.
func StartChangeRelay(notifier *service.ChangeNotifier) {
	if notifier == nil {
		return
	}
	notifier.RegisterHandlers()
}
