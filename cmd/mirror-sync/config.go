package main

// this file contains all the code that directly uses the viper package

import (
	"github.com/spf13/viper"

	"github.com/sweeney/mirror-sync/internal/gpio"
	"github.com/sweeney/mirror-sync/internal/timing"
)

// fileConfig is the daemon configuration as loaded from mirror-sync.toml.
// Flags override individual fields after loading.
type fileConfig struct {
	Server serverConfig
	GPIO   gpioConfig
	ADC    adcConfig
	Timing timingConfig
	TTL    ttlConfig
}

type serverConfig struct {
	Broker   string `mapstructure:"broker"`
	HTTPAddr string `mapstructure:"http_addr"`
	CmdAddr  string `mapstructure:"cmd_addr"`
}

type gpioConfig struct {
	Chip    string `mapstructure:"chip"`
	PinMark int    `mapstructure:"pin_mark"`
	PinR    int    `mapstructure:"pin_r"`
	PinG    int    `mapstructure:"pin_g"`
	PinB    int    `mapstructure:"pin_b"`
}

type adcConfig struct {
	Device  int `mapstructure:"device"`
	Channel int `mapstructure:"channel"`
}

type timingConfig struct {
	ShortSeedUs   int64 `mapstructure:"short_seed_us"`
	LongSeedUs    int64 `mapstructure:"long_seed_us"`
	GapSeedUs     int64 `mapstructure:"gap_seed_us"`
	EMAShift      uint  `mapstructure:"ema_shift"`
	SweepShift    uint  `mapstructure:"sweep_shift"`
	SweepMinUs    int64 `mapstructure:"sweep_min_us"`
	SweepMaxUs    int64 `mapstructure:"sweep_max_us"`
	SettleDelayUs int64 `mapstructure:"settle_delay_us"`
}

type ttlConfig struct {
	PixelWidthUs         int64 `mapstructure:"pixel_width_us"`
	ExtraOffsetUs        int64 `mapstructure:"extra_offset_us"`
	TTLFreqHz            int64 `mapstructure:"ttl_freq_hz"`
	RecoveryTimeoutMs    int64 `mapstructure:"recovery_timeout_ms"`
	TestCount            int64 `mapstructure:"test_count"`
	ForwardSlopePositive bool  `mapstructure:"forward_slope_positive"`
}

// loadConfig reads configuration from a TOML file called 'mirror-sync.toml',
// looked for in /etc/mirror-sync and then the current directory. Missing file
// or missing keys fall back to defaults. Returns whether a file was read.
func loadConfig() (fileConfig, bool) {
	cfg := defaultConfig()

	viper.SetConfigName("mirror-sync")
	viper.AddConfigPath("/etc/mirror-sync")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		return cfg, false
	}

	viper.UnmarshalKey("server", &cfg.Server)
	viper.UnmarshalKey("gpio", &cfg.GPIO)
	viper.UnmarshalKey("adc", &cfg.ADC)
	viper.UnmarshalKey("timing", &cfg.Timing)
	viper.UnmarshalKey("ttl", &cfg.TTL)
	return cfg, true
}

// configFileUsed reports which file loadConfig read.
func configFileUsed() string {
	return viper.ConfigFileUsed()
}

// defaultConfig returns the built-in boot values.
func defaultConfig() fileConfig {
	tc := timing.DefaultClassifierConfig()
	sc := timing.DefaultSweepFilterConfig()
	dc := timing.DefaultDirectionConfig()
	return fileConfig{
		Server: serverConfig{
			Broker:   "tcp://localhost:1883",
			HTTPAddr: ":8080",
			CmdAddr:  ":9000",
		},
		GPIO: gpioConfig{
			Chip:    "gpiochip0",
			PinMark: gpio.DefaultPinMark,
			PinR:    gpio.DefaultPinR,
			PinG:    gpio.DefaultPinG,
			PinB:    gpio.DefaultPinB,
		},
		ADC: adcConfig{Device: 0, Channel: 0},
		Timing: timingConfig{
			ShortSeedUs:   tc.ShortSeedUs,
			LongSeedUs:    tc.LongSeedUs,
			GapSeedUs:     tc.GapSeedUs,
			EMAShift:      tc.EMAShift,
			SweepShift:    sc.Shift,
			SweepMinUs:    sc.MinUs,
			SweepMaxUs:    sc.MaxUs,
			SettleDelayUs: dc.SettleDelayUs,
		},
		TTL: ttlConfig{
			PixelWidthUs:         1,
			ExtraOffsetUs:        0,
			TTLFreqHz:            1000000,
			RecoveryTimeoutMs:    100,
			TestCount:            100,
			ForwardSlopePositive: dc.ForwardSlopePositive,
		},
	}
}
