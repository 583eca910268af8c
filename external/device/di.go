package device

import (
	"github.com/lumeolabs/lexilens/internal/config"
	"github.com/lumeolabs/lexilens/internal/device"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (device.Client, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewCloudClient(c), nil
	})
}
