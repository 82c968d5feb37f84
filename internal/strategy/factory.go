package strategy

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnknownStrategy is returned for names outside the closed registry.
var ErrUnknownStrategy = errors.New("unknown strategy")

const NameSMACross = "sma_cross"

// Defaults returns the default parameter set for a registered strategy.
func Defaults(name string) (Params, bool) {
	switch name {
	case NameSMACross:
		return Params{"fast": 20, "slow": 60}, true
	}
	return nil, false
}

// New builds a strategy by name. Overrides are merged over the defaults;
// override keys outside the default set are accepted and passed through.
func New(name string, overrides Params) (Strategy, error) {
	defaults, ok := Defaults(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	params := Params{}
	for k, v := range defaults {
		params[k] = v
	}
	for k, v := range overrides {
		params[k] = v
	}

	switch name {
	case NameSMACross:
		return NewSMACross(params), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}
