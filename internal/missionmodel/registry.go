// Package missionmodel names the mission models the tools can load.
package missionmodel

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/missionsim/internal/driver"
	"github.com/roach88/missionsim/internal/missionmodel/banananation"
)

var models = map[string]func() *driver.MissionModel{
	banananation.Name: func() *driver.MissionModel { return banananation.New().MissionModel },
}

// Load builds a fresh instance of a registered model.
func Load(name string) (*driver.MissionModel, error) {
	build, ok := models[name]
	if !ok {
		return nil, fmt.Errorf("unknown mission model %q (available: %v)", name, Names())
	}
	return build(), nil
}

// Names returns the registered model names, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(models))
}
