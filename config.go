package llama_bpe

import (
	"fmt"

	"github.com/mohdsm81/llama_bpe/resources"
)

const DefaultCacheSize = 65536

// SplitUnit selects the initial segments of a string before merging.
type SplitUnit int

const (
	SplitBytes SplitUnit = iota // one segment per byte
	SplitRunes                  // one segment per UTF-8 encoded rune
)

func (u SplitUnit) String() string {
	switch u {
	case SplitBytes:
		return "byte"
	case SplitRunes:
		return "rune"
	default:
		return fmt.Sprintf("SplitUnit(%d)", int(u))
	}
}

func ParseSplitUnit(s string) (SplitUnit, error) {
	switch s {
	case "", "byte":
		return SplitBytes, nil
	case "rune":
		return SplitRunes, nil
	default:
		return SplitBytes, fmt.Errorf("unknown split unit %q", s)
	}
}

// Config controls a Tokenizer.
type Config struct {
	// Bos and Eos name the boundary tokens added when AddBos and AddEos
	// are set and EncodeOptions does not name its own.
	Bos    string
	Eos    string
	AddBos bool
	AddEos bool
	Unit   SplitUnit
	// Specials are matched verbatim in the input and emitted as their ids
	// without merging.
	Specials []string
	// CacheSize bounds the encode cache; 0 disables it.
	CacheSize int
}

func DefaultConfig() Config {
	return Config{
		Bos:       "<s>",
		Eos:       "</s>",
		CacheSize: DefaultCacheSize,
	}
}

// ConfigFromResources overlays a resolved tokenizer configuration onto
// DefaultConfig.
func ConfigFromResources(rsrc *resources.TokenizerConfig) (Config, error) {
	config := DefaultConfig()
	if rsrc == nil {
		return config, nil
	}
	if rsrc.BosToken != nil {
		config.Bos = string(*rsrc.BosToken)
	}
	if rsrc.EosToken != nil {
		config.Eos = string(*rsrc.EosToken)
	}
	if rsrc.AddBosToken != nil {
		config.AddBos = *rsrc.AddBosToken
	}
	if rsrc.AddEosToken != nil {
		config.AddEos = *rsrc.AddEosToken
	}
	if rsrc.SplitUnit != nil {
		unit, err := ParseSplitUnit(*rsrc.SplitUnit)
		if err != nil {
			return config, err
		}
		config.Unit = unit
	}
	for _, special := range rsrc.SpecialTokens {
		config.Specials = append(config.Specials, string(special))
	}
	if rsrc.CacheSize != nil {
		if *rsrc.CacheSize < 0 {
			return config, fmt.Errorf("negative cache_size %d", *rsrc.CacheSize)
		}
		config.CacheSize = *rsrc.CacheSize
	}
	return config, nil
}
