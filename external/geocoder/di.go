package geocoder

import (
	"github.com/lumeolabs/lexilens/internal/geocoder"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (geocoder.Geocoder, error) {
		return NewNominatimGeocoder(), nil
	})
}
