package domain

import (
	"fmt"
	"sort"
)

// 支持的定价模型名称
const (
	ModelBlackScholes      = "BlackScholes"
	ModelFiniteDifference  = "FiniteDifference"
	ModelAmerican          = "AmericanCrankNicolson"
	ModelMonteCarlo        = "MonteCarlo"
	ModelBinomial          = "Binomial"
	ModelLongstaffSchwartz = "LongstaffSchwartz"
)

// EngineSettings 各数值引擎的网格与模拟参数
type EngineSettings struct {
	TimeSteps      int     `mapstructure:"time_steps"`
	AssetSteps     int     `mapstructure:"asset_steps"`
	GridPoints     int     `mapstructure:"grid_points"`
	TimeIncrement  float64 `mapstructure:"time_increment"`
	Simulations    int     `mapstructure:"simulations"`
	Workers        int     `mapstructure:"workers"`
	Seed           int64   `mapstructure:"seed"`
	BinomialSteps  int     `mapstructure:"binomial_steps"`
	LSMPaths       int     `mapstructure:"lsm_paths"`
	LSMSteps       int     `mapstructure:"lsm_steps"`
	SurfacePoints  int     `mapstructure:"surface_points"`
	SurfaceWorkers int     `mapstructure:"surface_workers"`
}

// DefaultEngineSettings 默认引擎参数
func DefaultEngineSettings() EngineSettings {
	return EngineSettings{
		TimeSteps:      100,
		AssetSteps:     100,
		GridPoints:     120,
		TimeIncrement:  0.005,
		Simulations:    100000,
		Workers:        4,
		Seed:           42,
		BinomialSteps:  500,
		LSMPaths:       10000,
		LSMSteps:       50,
		SurfacePoints:  100,
		SurfaceWorkers: 0,
	}
}

type modelBuilder func(EngineSettings) (Model, error)

var registry = map[string]modelBuilder{
	ModelBlackScholes: func(EngineSettings) (Model, error) {
		return NewBlackScholesPricer(), nil
	},
	ModelFiniteDifference: func(s EngineSettings) (Model, error) {
		return NewFiniteDifferencePricer(s.TimeSteps, s.AssetSteps)
	},
	ModelAmerican: func(s EngineSettings) (Model, error) {
		return NewAmericanEngine(s.GridPoints, s.TimeIncrement)
	},
	ModelMonteCarlo: func(s EngineSettings) (Model, error) {
		return NewMonteCarloPricer(s.Simulations, s.Workers, s.Seed)
	},
	ModelBinomial: func(s EngineSettings) (Model, error) {
		return NewBinomialPricer(s.BinomialSteps, false)
	},
	ModelLongstaffSchwartz: func(s EngineSettings) (Model, error) {
		return NewLSMPricer(s.LSMPaths, s.LSMSteps, s.Seed)
	},
}

// NewModel 按名称创建定价模型
func NewModel(name string, s EngineSettings) (Model, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown pricing model %q", ErrInvalidConfig, name)
	}
	return build(s)
}

// ModelNames 已注册的模型名称，按字母排序
func ModelNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
