package inference

import (
	"github.com/lumeolabs/lexilens/internal/config"
	"github.com/lumeolabs/lexilens/internal/inference"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (inference.Engine, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewGeminiEngine(c.GeminiAPIKey, c.GeminiModel), nil
	})
}
