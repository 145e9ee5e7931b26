package manufacturers

import (
	"fmt"

	"github.com/xkilldash9x/snapreg/internal/automation"
	"github.com/xkilldash9x/snapreg/internal/registry"
)

// All returns the constructors of every dedicated strategy.
func All() []func() *Site {
	return []func() *Site{NewSamsung, NewLG, NewWhirlpool}
}

// RegisterAll binds every dedicated strategy, with its aliases, into r.
func RegisterAll(r *registry.Registry) error {
	for _, build := range All() {
		site := build()
		factory := func() automation.Strategy { return build() }
		if err := r.Register(site.Name(), factory, site.Aliases()...); err != nil {
			return fmt.Errorf("failed to register %s: %w", site.Name(), err)
		}
	}
	return nil
}
