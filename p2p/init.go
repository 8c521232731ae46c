package p2p

import (
	"github.com/uptrace/opentelemetry-go-extra/otelzap"

	"gitlab.com/fidonext/connectivity-service/internal/logger"
)

var zlog otelzap.Logger

func init() {
	zlog = logger.OtelZapLogger("p2p")
}

// Stream protocol version announced by the identify service
const IdentifyProtocolVersion = "/fidonext/1.0.0"
