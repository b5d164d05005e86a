// Package autoload configures the global logger from the LOG_* environment
// on import:
//
//	import _ "github.com/afquintero/cierre-agent/pkg/logger/autoload"
package autoload

import (
	configx "github.com/afquintero/cierre-agent/pkg/config"
	logx "github.com/afquintero/cierre-agent/pkg/logger"
)

func init() {
	cfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*cfg)
}
