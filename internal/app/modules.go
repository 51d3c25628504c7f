package app

import (
	"github.com/vk/appgraphgo/internal/registry"
	"github.com/vk/appgraphgo/modules/sight"
	"github.com/vk/appgraphgo/modules/simbridge"
	"github.com/vk/appgraphgo/modules/velodyne"
)

// coreModules is the definitive list of all modules that are compiled into
// the launcher binary.
var coreModules = []registry.Module{
	&sight.Module{},
	&simbridge.Module{},
	&velodyne.Module{},
}
