package session

import (
	"github.com/lumeolabs/lexilens/internal/config"
	"github.com/lumeolabs/lexilens/internal/forwarder"
	"github.com/lumeolabs/lexilens/internal/geocoder"
	"github.com/lumeolabs/lexilens/internal/inference"
	"github.com/lumeolabs/lexilens/internal/metrics"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		engine := do.MustInvoke[inference.Engine](i)
		geo := do.MustInvoke[geocoder.Geocoder](i)
		fwd := do.MustInvoke[forwarder.Forwarder](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		return NewManager(cfg, engine, geo, fwd, m), nil
	})
}
