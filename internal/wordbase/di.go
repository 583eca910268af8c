package wordbase

import (
	"github.com/samber/do/v2"

	"github.com/lumeolabs/lexilens/internal/wordstore"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		repo := do.MustInvoke[wordstore.Repository](i)
		return NewServer(repo), nil
	})
}
