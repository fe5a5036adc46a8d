package analytics

// Weights sets the contribution of each signed component to the final score.
type Weights struct {
	Base              float64 `yaml:"base"`
	Microstructure    float64 `yaml:"microstructure"`
	Volume            float64 `yaml:"volume"`
	LiquidityPressure float64 `yaml:"liquidity_pressure"`
}

// Fusion variants.
const (
	VariantMicrostructure = "microstructure"
	VariantBasic          = "basic"
)

var (
	// MicrostructureWeights blends order-book information into the score.
	MicrostructureWeights = Weights{Base: 0.50, Microstructure: 0.15, Volume: 0.20, LiquidityPressure: 0.15}
	// BasicWeights ignores the top of book and leans on candles and depth.
	BasicWeights = Weights{Base: 0.60, Microstructure: 0, Volume: 0.20, LiquidityPressure: 0.20}
)

// WeightsFor returns the weights of a named variant, falling back to the
// microstructure variant for unknown names.
func WeightsFor(variant string) Weights {
	if variant == VariantBasic {
		return BasicWeights
	}
	return MicrostructureWeights
}

// FusionOption configures FusionEngine.
type FusionOption func(*FusionConfig)

// FusionConfig holds the tunable parameters of the fusion pipeline.
type FusionConfig struct {
	RSILength        int
	ATRLength        int
	ADXLength        int
	ATRTargetMult    float64
	VolumeBoomMult   float64
	SwingSensitivity int
	Weights          Weights
}

// DefaultFusionConfig returns the stock parameters.
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		RSILength:        14,
		ATRLength:        14,
		ADXLength:        14,
		ATRTargetMult:    0.5,
		VolumeBoomMult:   1.3,
		SwingSensitivity: 3,
		Weights:          MicrostructureWeights,
	}
}

// WithLengths sets RSI, ATR and ADX lookbacks. Non-positive values are ignored.
func WithLengths(rsi, atr, adx int) FusionOption {
	return func(c *FusionConfig) {
		if rsi > 0 {
			c.RSILength = rsi
		}
		if atr > 0 {
			c.ATRLength = atr
		}
		if adx > 0 {
			c.ADXLength = adx
		}
	}
}

// WithATRTargetMult sets the ATR multiplier of the target percentage.
func WithATRTargetMult(m float64) FusionOption {
	return func(c *FusionConfig) {
		c.ATRTargetMult = m
	}
}

// WithVolumeBoomMult sets the volume multiple that confirms a trend start.
func WithVolumeBoomMult(m float64) FusionOption {
	return func(c *FusionConfig) {
		c.VolumeBoomMult = m
	}
}

// WithSwingSensitivity sets the pivot window radius.
func WithSwingSensitivity(s int) FusionOption {
	return func(c *FusionConfig) {
		c.SwingSensitivity = s
	}
}

// WithWeights sets the component weights.
func WithWeights(w Weights) FusionOption {
	return func(c *FusionConfig) {
		c.Weights = w
	}
}

// WithVariant selects weights by variant name.
func WithVariant(name string) FusionOption {
	return WithWeights(WeightsFor(name))
}
