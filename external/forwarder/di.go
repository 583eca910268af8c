package forwarder

import (
	"github.com/lumeolabs/lexilens/internal/config"
	"github.com/lumeolabs/lexilens/internal/forwarder"
	"github.com/lumeolabs/lexilens/internal/metrics"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (forwarder.Forwarder, error) {
		c := do.MustInvoke[*config.Config](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		return NewHTTPForwarder(c.WordbaseURL, m), nil
	})
}
