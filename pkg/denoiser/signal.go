package denoiser

import (
	"fmt"
	"strings"
)

// Signal identifies one ray traced quantity that is denoised independently
type Signal int

const (
	Shadows Signal = iota
	Reflection
	AmbientOcclusion
)

// AllSignals lists every signal in display order
var AllSignals = []Signal{Shadows, Reflection, AmbientOcclusion}

func (s Signal) String() string {
	switch s {
	case Shadows:
		return "shadows"
	case Reflection:
		return "reflection"
	case AmbientOcclusion:
		return "ao"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

// ParseSignal accepts the names produced by String plus a few aliases
func ParseSignal(name string) (Signal, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "shadows", "shadow":
		return Shadows, nil
	case "reflection", "reflections":
		return Reflection, nil
	case "ao", "ambient-occlusion", "occlusion":
		return AmbientOcclusion, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSignal, name)
}

// ParseSignals parses a comma separated list. An empty string selects all signals.
func ParseSignals(list string) ([]Signal, error) {
	if strings.TrimSpace(list) == "" {
		return append([]Signal(nil), AllSignals...), nil
	}

	var signals []Signal
	for _, name := range strings.Split(list, ",") {
		s, err := ParseSignal(name)
		if err != nil {
			return nil, err
		}
		signals = append(signals, s)
	}
	return signals, nil
}
