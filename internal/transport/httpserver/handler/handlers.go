package handler

import (
	"babyhabits/internal/transport/httpserver/handler/babies"
	"babyhabits/internal/transport/httpserver/handler/common"
	"babyhabits/internal/transport/httpserver/handler/tracking"
)

type Handlers struct {
	Common   *common.Handlers
	Babies   *babies.Handlers
	Tracking *tracking.Handlers
}

func New(common *common.Handlers, babies *babies.Handlers, tracking *tracking.Handlers) *Handlers {
	return &Handlers{
		Common:   common,
		Babies:   babies,
		Tracking: tracking,
	}
}
