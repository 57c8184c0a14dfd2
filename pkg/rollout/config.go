package rollout

import "errors"

// Config holds engine settings read from the environment.
type Config struct {
	KeyPrefix           string `env:"ROLLOUT_KEY_PREFIX" envDefault:"feature"`         // KeyPrefix namespaces all keys.
	DefaultFormat       string `env:"ROLLOUT_DEFAULT_FORMAT" envDefault:"sets"`        // DefaultFormat applies to flags without a record: "sets" or "embedded".
	ForceFormat         string `env:"ROLLOUT_FORCE_FORMAT"`                            // ForceFormat pins every read to one encoding; empty resolves per record.
	RandomizePercentage bool   `env:"ROLLOUT_RANDOMIZE_PERCENTAGE" envDefault:"false"` // RandomizePercentage salts bucketing with the flag name.
	IDField             string `env:"ROLLOUT_ID_FIELD" envDefault:"ID"`                // IDField is the struct field or map key holding user ids.
}

// Options converts the config into engine options.
func (c Config) Options() ([]Option, error) {
	fallback, err := ParseFormat(c.DefaultFormat)
	if err != nil {
		return nil, errors.Join(errors.New("ROLLOUT_DEFAULT_FORMAT"), err)
	}
	forced, err := ParseFormat(c.ForceFormat)
	if err != nil {
		return nil, errors.Join(errors.New("ROLLOUT_FORCE_FORMAT"), err)
	}

	return []Option{
		WithKeyPrefix(c.KeyPrefix),
		WithDefaultFormat(fallback),
		WithFormat(forced),
		WithRandomizePercentage(c.RandomizePercentage),
		WithIDField(c.IDField),
	}, nil
}

// NewFromConfig creates an engine from cfg. Options in opts are applied
// after the config and override it.
func NewFromConfig(store Store, cfg Config, opts ...Option) (*Engine, error) {
	base, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return New(store, append(base, opts...)...)
}
