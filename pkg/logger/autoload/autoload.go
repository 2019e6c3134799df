// Package autoload configures the global zerolog logger from the LOG_*
// environment at import time. Import it for its side effect only.
package autoload

import (
	configx "github.com/codcoz/chefia/pkg/config"
	logx "github.com/codcoz/chefia/pkg/logger"
)

func init() {
	cfg, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*cfg)
}
