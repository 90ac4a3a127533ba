package methods

import (
	"github.com/basekick-labs/dfio/internal/database"
	apperrors "github.com/basekick-labs/dfio/internal/errors"
)

// Registry is an explicit catalogue of strategies. Build one with
// NewRegistry or DefaultCatalog and pass it to whoever needs it.
type Registry struct {
	env        Env
	strategies []Strategy
}

// New builds the strategy a descriptor names. Unknown classes and invalid
// options are configuration errors.
func New(d Descriptor, env Env) (Strategy, error) {
	var (
		s   Strategy
		err error
	)
	switch d.Class {
	case ClassRaw:
		if d.Engine != "" || d.Journal != "" {
			return nil, invalidMethod(d, "Raw takes only codec and level")
		}
		s, err = NewRaw(d.Codec, d.Level)
	case ClassFeather:
		if d.Level != 0 || d.Engine != "" || d.Journal != "" {
			return nil, invalidMethod(d, "Feather takes only codec")
		}
		s, err = NewFeather(d.Codec)
	case ClassParquet:
		if d.Journal != "" {
			return nil, invalidMethod(d, "Parquet takes no journal")
		}
		s, err = NewParquet(d.Engine, d.Codec, d.Level, env)
	case ClassDatabase:
		if d.Codec != "" || d.Level != 0 {
			return nil, invalidMethod(d, "Database takes only engine and journal")
		}
		s, err = NewDatabase(d.Engine, d.Journal, env)
	default:
		return nil, invalidMethod(d, "unknown class "+d.Class)
	}
	if err != nil {
		return nil, invalidMethod(d, err.Error())
	}
	return s, nil
}

func invalidMethod(d Descriptor, msg string) error {
	return apperrors.NewConfigurationError(apperrors.CodeInvalidMethod, msg).
		WithDetails(map[string]interface{}{"method": d.String()})
}

// NewRegistry builds a registry holding the strategies for descriptors,
// in order.
func NewRegistry(env Env, descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{env: env, strategies: make([]Strategy, 0, len(descriptors))}
	for _, d := range descriptors {
		s, err := New(d, env)
		if err != nil {
			return nil, err
		}
		r.strategies = append(r.strategies, s)
	}
	return r, nil
}

// DefaultCatalog returns a registry with the standard cross product of
// families, codecs and levels.
func DefaultCatalog(env Env) *Registry {
	r, err := NewRegistry(env, DefaultDescriptors()...)
	if err != nil {
		panic("methods: invalid default catalogue: " + err.Error())
	}
	return r
}

// DefaultDescriptors lists the standard catalogue.
func DefaultDescriptors() []Descriptor {
	var ds []Descriptor
	levels := []int{1, 5, 9}

	ds = append(ds, Descriptor{Class: ClassRaw, Codec: CodecNone})
	for _, codec := range []string{CodecGzip, CodecZstd, CodecS2, CodecLZ4} {
		for _, level := range levels {
			ds = append(ds, Descriptor{Class: ClassRaw, Codec: codec, Level: level})
		}
	}
	ds = append(ds, Descriptor{Class: ClassRaw, Codec: CodecSnappy})

	for _, codec := range []string{CodecNone, CodecLZ4, CodecZstd} {
		ds = append(ds, Descriptor{Class: ClassFeather, Codec: codec})
	}

	for _, codec := range []string{CodecNone, CodecSnappy, CodecLZ4} {
		ds = append(ds, Descriptor{Class: ClassParquet, Engine: EngineArrow, Codec: codec})
	}
	for _, codec := range []string{CodecGzip, CodecZstd, CodecBrotli} {
		for _, level := range levels {
			ds = append(ds, Descriptor{Class: ClassParquet, Engine: EngineArrow, Codec: codec, Level: level})
		}
	}
	for _, codec := range []string{CodecNone, CodecSnappy, CodecGzip, CodecZstd, CodecBrotli, CodecLZ4} {
		ds = append(ds, Descriptor{Class: ClassParquet, Engine: EngineDuckDB, Codec: codec})
	}

	ds = append(ds,
		Descriptor{Class: ClassDatabase, Engine: EngineSQLite, Journal: database.JournalWAL},
		Descriptor{Class: ClassDatabase, Engine: EngineSQLite, Journal: database.JournalDelete},
		Descriptor{Class: ClassDatabase, Engine: EngineDuckDB},
	)
	return ds
}

// All returns every strategy in catalogue order.
func (r *Registry) All() []Strategy {
	return append([]Strategy(nil), r.strategies...)
}

// Filter returns the strategies of one class; an empty class matches all.
func (r *Registry) Filter(class string) []Strategy {
	if class == "" {
		return r.All()
	}
	var out []Strategy
	for _, s := range r.strategies {
		if s.Descriptor().Class == class {
			out = append(out, s)
		}
	}
	return out
}

// Reconstruct rebuilds a strategy from its descriptor using the registry's
// environment. The result need not be in the catalogue.
func (r *Registry) Reconstruct(d Descriptor) (Strategy, error) {
	return New(d, r.env)
}

// Lookup returns the catalogue entry whose descriptor equals d.
func (r *Registry) Lookup(d Descriptor) (Strategy, bool) {
	for _, s := range r.strategies {
		if s.Descriptor() == d {
			return s, true
		}
	}
	return nil, false
}

// Find returns the catalogue entry whose String() is name.
func (r *Registry) Find(name string) (Strategy, bool) {
	for _, s := range r.strategies {
		if s.String() == name {
			return s, true
		}
	}
	return nil, false
}
