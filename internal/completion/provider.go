package completion

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultPriority is the fixed provider preference order when no explicit
// override is configured.
var DefaultPriority = []string{ProviderClaude, ProviderGemini}

// SelectProvider resolves which configured provider serves a run. An explicit
// override must name a configured provider; otherwise the first configured
// provider in priority order wins.
func SelectProvider(override string, configured map[string]Invoker, priority []string) (Invoker, error) {
	if len(priority) == 0 {
		priority = DefaultPriority
	}

	if override != "" {
		inv, ok := configured[strings.ToLower(override)]
		if !ok {
			return nil, eris.Errorf("completion: provider %q is not configured", override)
		}
		zap.L().Info("completion provider selected", zap.String("provider", inv.Provider()), zap.Bool("override", true))
		return inv, nil
	}

	for _, name := range priority {
		if inv, ok := configured[name]; ok {
			zap.L().Info("completion provider selected", zap.String("provider", inv.Provider()), zap.Bool("override", false))
			return inv, nil
		}
	}
	return nil, eris.New("completion: no provider configured")
}
